package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

// PebbleStore persists an inventory snapshot. Orders are only ever appended;
// LoadOrders returns them in the order they were written.
type PebbleStore struct {
	db *pebble.DB

	mu      sync.Mutex // serializes appends
	nextSeq uint64
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	return OpenPebbleStore(path, &pebble.Options{})
}

// OpenPebbleStore opens a store with explicit options, e.g. an in-memory
// vfs for tests.
func OpenPebbleStore(path string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, err
	}
	s := &PebbleStore{db: db}

	val, closer, err := db.Get([]byte(keyNextSeq))
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("read sequence: %w", err)
	default:
		seq, derr := decodeSeq(val)
		closer.Close()
		if derr != nil {
			db.Close()
			return nil, derr
		}
		s.nextSeq = seq
	}
	return s, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// AppendOrders validates and writes orders in one atomic batch. Either all
// of them are stored or none are.
func (s *PebbleStore) AppendOrders(orders []order.SignedOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	seq := s.nextSeq
	for i := range orders {
		if err := orders[i].Validate(fmt.Sprintf("orders[%d]", i)); err != nil {
			return err
		}
		val, err := encodeOrder(orders[i])
		if err != nil {
			return fmt.Errorf("failed to marshal order: %w", err)
		}
		if err := batch.Set(orderKey(seq), val, nil); err != nil {
			return fmt.Errorf("failed to stage order: %w", err)
		}
		seq++
	}
	if err := batch.Set([]byte(keyNextSeq), encodeSeq(seq), nil); err != nil {
		return fmt.Errorf("failed to stage sequence: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save orders: %w", err)
	}
	s.nextSeq = seq
	return nil
}

// LoadOrders returns every stored order in insertion order. A record that
// no longer decodes fails the whole load.
func (s *PebbleStore) LoadOrders() ([]order.SignedOrder, error) {
	prefix := []byte(prefixOrder)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	orders := make([]order.SignedOrder, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := seqFromKey(iter.Key())
		if err != nil {
			return nil, err
		}
		o, err := decodeOrder(seq, iter.Value())
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return orders, nil
}

// Count is the number of orders appended so far.
func (s *PebbleStore) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq
}
