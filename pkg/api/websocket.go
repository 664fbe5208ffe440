package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/uhyunpark/assetbuyer/pkg/order"
	"github.com/uhyunpark/assetbuyer/pkg/provider"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced by the HTTP middleware
		return true
	},
}

// Hub tracks connected WebSocket clients so they can be counted and closed
// on shutdown.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
	logger  *zap.Logger
	gauge   prometheus.Gauge
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger, gauge prometheus.Gauge) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
		gauge:   gauge,
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.gauge.Set(float64(len(h.clients)))
	h.logger.Debug("ws_connected", zap.String("client", c.id), zap.Int("total", len(h.clients)))
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.gauge.Set(float64(len(h.clients)))
	h.logger.Debug("ws_disconnected", zap.String("client", c.id), zap.Int("total", len(h.clients)))
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		_ = c.conn.Close()
	}
}

// Client represents a WebSocket connection. Queries are answered in the
// order they arrive.
type Client struct {
	hub    *Hub
	server *Server
	conn   *websocket.Conn
	send   chan []byte
	id     string
}

// readPump reads queries, answers them and owns the send channel.
func (c *Client) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		c.hub.unregister(c)
		close(c.send)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Debug("ws_read_error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
		reply := c.handle(ctx, message)
		data, err := json.Marshal(reply)
		if err != nil {
			c.server.logger.Error("ws_marshal_failed", zap.Error(err))
			return
		}
		select {
		case c.send <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) handle(ctx context.Context, message []byte) WSResponse {
	var req WSRequest
	if err := json.Unmarshal(message, &req); err != nil {
		c.server.metrics.queries.WithLabelValues("ws", outcomeInvalid).Inc()
		return WSResponse{Type: wsTypeError, Error: "invalid message: " + err.Error()}
	}
	if req.Op != wsOpQuery {
		c.server.metrics.queries.WithLabelValues("ws", outcomeInvalid).Inc()
		return WSResponse{Type: wsTypeError, ID: req.ID, Error: "unknown op: " + req.Op}
	}

	pr, err := provider.RequestFromJSON(order.AssetPairJSON{
		MakerAssetData: req.MakerAssetData,
		TakerAssetData: req.TakerAssetData,
	})
	if err != nil {
		c.server.metrics.queries.WithLabelValues("ws", outcomeInvalid).Inc()
		return WSResponse{Type: wsTypeError, ID: req.ID, Error: err.Error()}
	}
	resp, err := c.server.query(ctx, "ws", pr)
	if err != nil {
		_, _, outcome := classify(err)
		c.server.metrics.queries.WithLabelValues("ws", outcome).Inc()
		return WSResponse{Type: wsTypeError, ID: req.ID, Error: err.Error()}
	}
	return WSResponse{Type: wsTypeOrders, ID: req.ID, Orders: order.ToJSONList(resp.Orders)}
}

// writePump writes replies and keeps the connection alive with pings.
func (c *Client) writePump(cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocket handles WebSocket upgrade and client lifecycle
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("ws_upgrade_failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    s.hub,
		server: s,
		conn:   conn,
		send:   make(chan []byte, 16),
		id:     conn.RemoteAddr().String(),
	}
	if !s.hub.register(client) {
		_ = conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	go client.writePump(cancel)
	go client.readPump(ctx, cancel)
}
