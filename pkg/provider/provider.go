// Package provider answers order inventory queries: which known orders trade
// a given maker asset for a given taker asset.
package provider

import (
	"context"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

// OrderProvider is anything that can answer an order query. Callers depend
// on this interface and not on where the orders come from.
type OrderProvider interface {
	GetOrders(ctx context.Context, req Request) (*Response, error)
}

// Request selects orders by asset pair. Both fields are required.
type Request struct {
	MakerAssetData order.AssetData
	TakerAssetData order.AssetData
}

// Response holds the matching orders in inventory order. Orders is empty,
// not nil, when nothing matches.
type Response struct {
	Orders []order.SignedOrder
}

// Validate rejects requests with a missing asset data field.
func (r Request) Validate() error {
	if len(r.MakerAssetData) == 0 {
		return &order.ValidationError{Name: "request", Field: "makerAssetData", Reason: "required"}
	}
	if len(r.TakerAssetData) == 0 {
		return &order.ValidationError{Name: "request", Field: "takerAssetData", Reason: "required"}
	}
	return nil
}

// RequestFromJSON validates a wire query and converts it to a Request.
func RequestFromJSON(p order.AssetPairJSON) (Request, error) {
	maker, taker, err := order.ParseAssetPair("request", p)
	if err != nil {
		return Request{}, err
	}
	return Request{MakerAssetData: maker, TakerAssetData: taker}, nil
}
