package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

// Orders are stored in their canonical wire form so that anything written
// can be read back through the same validation as an orders file.
func encodeOrder(o order.SignedOrder) ([]byte, error) {
	return json.Marshal(order.ToJSON(o))
}

func decodeOrder(seq uint64, b []byte) (order.SignedOrder, error) {
	o, err := order.ParseOrder(b)
	if err != nil {
		return order.SignedOrder{}, fmt.Errorf("stored order %d: %w", seq, err)
	}
	return o, nil
}

func encodeSeq(seq uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return b[:]
}

func decodeSeq(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("sequence value: want 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
