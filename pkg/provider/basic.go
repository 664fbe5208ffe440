package provider

import (
	"context"
	"fmt"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

// BasicOrderProvider answers queries from a fixed list of orders supplied at
// construction. The list never changes afterwards, so GetOrders is safe to
// call from any number of goroutines without locking.
type BasicOrderProvider struct {
	orders []order.SignedOrder
}

// NewBasicOrderProvider validates every order and keeps a private copy of
// the list. A single malformed order rejects the whole batch.
func NewBasicOrderProvider(orders []order.SignedOrder) (*BasicOrderProvider, error) {
	snapshot := make([]order.SignedOrder, len(orders))
	for i := range orders {
		if err := orders[i].Validate(fmt.Sprintf("orders[%d]", i)); err != nil {
			return nil, err
		}
		snapshot[i] = orders[i].Clone()
	}
	return &BasicOrderProvider{orders: snapshot}, nil
}

// GetOrders returns the orders whose maker and taker asset data both equal
// the request's, byte for byte, in the order they were supplied. Duplicates
// are kept. No I/O happens, so ctx is not consulted.
func (p *BasicOrderProvider) GetOrders(_ context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	matched := make([]order.SignedOrder, 0)
	for i := range p.orders {
		if p.orders[i].Matches(req.MakerAssetData, req.TakerAssetData) {
			matched = append(matched, p.orders[i].Clone())
		}
	}
	return &Response{Orders: matched}, nil
}

// Orders returns a copy of the full inventory.
func (p *BasicOrderProvider) Orders() []order.SignedOrder {
	out := make([]order.SignedOrder, len(p.orders))
	for i := range p.orders {
		out[i] = p.orders[i].Clone()
	}
	return out
}

// Len is the number of orders held.
func (p *BasicOrderProvider) Len() int { return len(p.orders) }

var _ OrderProvider = (*BasicOrderProvider)(nil)
