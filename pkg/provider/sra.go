package provider

import (
	"encoding/json"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

// OrdersPage is one page of a Standard Relayer API v2 /orders listing.
type OrdersPage struct {
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"perPage"`
	Records []OrderRecord `json:"records"`
}

// OrderRecord pairs a wire order with relayer metadata, which is passed
// through uninterpreted.
type OrderRecord struct {
	Order    *order.OrderJSON `json:"order"`
	MetaData json.RawMessage  `json:"metaData,omitempty"`
}

// Relayer pagination defaults and limits.
const (
	DefaultPerPage = 100
	MaxPerPage     = 1000
)
