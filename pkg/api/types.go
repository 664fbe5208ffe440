package api

import (
	"encoding/json"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

// API request and response types for REST endpoints and WebSocket messages

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// QueryResponse is the provider response contract as JSON.
type QueryResponse struct {
	Orders []order.OrderJSON `json:"orders"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	WSClients     int     `json:"wsClients"`
}

// WebSocket

// WSRequest is a client message. Only op "query" is defined.
type WSRequest struct {
	Op             string `json:"op"`
	ID             string `json:"id,omitempty"`
	MakerAssetData string `json:"makerAssetData"`
	TakerAssetData string `json:"takerAssetData"`
}

// WSResponse answers one WSRequest; ID echoes the request's. Orders is
// always present on "orders" replies, as [] when nothing matches.
type WSResponse struct {
	Type   string            `json:"type"` // "orders" or "error"
	ID     string            `json:"id,omitempty"`
	Orders []order.OrderJSON `json:"orders"`
	Error  string            `json:"error,omitempty"`
}

// MarshalJSON leaves orders out of error replies.
func (r WSResponse) MarshalJSON() ([]byte, error) {
	type reply WSResponse
	if r.Type == wsTypeError {
		return json.Marshal(struct {
			reply
			Orders []order.OrderJSON `json:"orders,omitempty"`
		}{reply: reply(r)})
	}
	if r.Orders == nil {
		r.Orders = []order.OrderJSON{}
	}
	return json.Marshal(reply(r))
}

const (
	wsOpQuery    = "query"
	wsTypeOrders = "orders"
	wsTypeError  = "error"
)
