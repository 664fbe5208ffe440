// Package api serves order inventory queries over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/assetbuyer/pkg/order"
	"github.com/uhyunpark/assetbuyer/pkg/provider"
	"github.com/uhyunpark/assetbuyer/pkg/util"
)

// Options tune a Server. The zero value is usable.
type Options struct {
	CORSOrigins []string
	Logger      *zap.Logger
	// Registry receives the server's metrics and backs /metrics.
	// A private registry is created when nil.
	Registry *prometheus.Registry
	Clock    util.Clock
}

// Server handles REST API and WebSocket connections
type Server struct {
	provider  provider.OrderProvider
	router    *mux.Router
	handler   http.Handler
	hub       *Hub
	metrics   *metrics
	logger    *zap.Logger
	clock     util.Clock
	startedAt time.Time

	mu      sync.Mutex
	httpSrv *http.Server
	closed  bool
}

// NewServer creates a new API server answering from p.
func NewServer(p provider.OrderProvider, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = util.RealClock{}
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	m := newMetrics(reg)
	s := &Server{
		provider:  p,
		router:    mux.NewRouter(),
		hub:       NewHub(logger, m.wsClients),
		metrics:   m,
		logger:    logger,
		clock:     clock,
		startedAt: clock.Now(),
	}
	s.setupRoutes(reg)

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = c.Handler(s.router)
	return s
}

func (s *Server) setupRoutes(reg *prometheus.Registry) {
	s.router.Use(s.timeRequests)

	// Standard Relayer API v2
	v2 := s.router.PathPrefix("/v2").Subrouter()
	v2.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	v2.HandleFunc("/orders/query", s.handleQueryOrders).Methods(http.MethodPost)

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves on addr until Shutdown. It returns nil after a clean shutdown
// and http.ErrServerClosed when Shutdown already ran.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.httpSrv = srv
	s.mu.Unlock()

	s.logger.Info("api_listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, closes websocket clients and waits
// for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	s.mu.Lock()
	s.closed = true
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := provider.RequestFromJSON(order.AssetPairJSON{
		MakerAssetData: q.Get("makerAssetData"),
		TakerAssetData: q.Get("takerAssetData"),
	})
	if err != nil {
		s.respondQueryError(w, "http", err)
		return
	}
	page, err := positiveParam(q.Get("page"), 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_page", err.Error())
		return
	}
	perPage, err := positiveParam(q.Get("perPage"), provider.DefaultPerPage)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_per_page", err.Error())
		return
	}
	if perPage > provider.MaxPerPage {
		perPage = provider.MaxPerPage
	}

	resp, err := s.query(r.Context(), "http", req)
	if err != nil {
		s.respondQueryError(w, "http", err)
		return
	}

	// pages past the end are empty; checked before multiplying so that
	// huge page numbers cannot overflow the offset
	total := len(resp.Orders)
	start, end := total, total
	if page-1 < (total+perPage-1)/perPage {
		start = (page - 1) * perPage
		end = min(start+perPage, total)
	}
	records := make([]provider.OrderRecord, 0, end-start)
	for _, o := range resp.Orders[start:end] {
		j := order.ToJSON(o)
		records = append(records, provider.OrderRecord{Order: &j, MetaData: json.RawMessage(`{}`)})
	}
	respondJSON(w, http.StatusOK, provider.OrdersPage{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Records: records,
	})
}

func (s *Server) handleQueryOrders(w http.ResponseWriter, r *http.Request) {
	var body order.AssetPairJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.metrics.queries.WithLabelValues("http", outcomeInvalid).Inc()
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	req, err := provider.RequestFromJSON(body)
	if err != nil {
		s.respondQueryError(w, "http", err)
		return
	}
	resp, err := s.query(r.Context(), "http", req)
	if err != nil {
		s.respondQueryError(w, "http", err)
		return
	}
	respondJSON(w, http.StatusOK, QueryResponse{Orders: order.ToJSONList(resp.Orders)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: s.clock.Now().Sub(s.startedAt).Seconds(),
		WSClients:     s.hub.Len(),
	})
}

// query runs req against the provider and records the outcome.
// Failures are counted by respondQueryError.
func (s *Server) query(ctx context.Context, transport string, req provider.Request) (*provider.Response, error) {
	resp, err := s.provider.GetOrders(ctx, req)
	if err != nil {
		return nil, err
	}
	s.metrics.queries.WithLabelValues(transport, outcomeOK).Inc()
	s.metrics.resultSize.Observe(float64(len(resp.Orders)))
	s.logger.Debug("inventory_query",
		zap.String("transport", transport),
		zap.String("maker_asset_data", req.MakerAssetData.Hex()),
		zap.String("taker_asset_data", req.TakerAssetData.Hex()),
		zap.Int("matched", len(resp.Orders)))
	return resp, nil
}

func (s *Server) respondQueryError(w http.ResponseWriter, transport string, err error) {
	status, code, outcome := classify(err)
	s.metrics.queries.WithLabelValues(transport, outcome).Inc()
	if outcome != outcomeInvalid {
		s.logger.Warn("inventory_query_failed", zap.String("transport", transport), zap.Error(err))
	}
	respondError(w, status, code, err.Error())
}

// classify maps a provider error to an HTTP status, an error code and a
// metric outcome.
func classify(err error) (int, string, string) {
	var fetchErr *provider.FetchError
	switch {
	case errors.Is(err, order.ErrValidation):
		return http.StatusBadRequest, "validation_failed", outcomeInvalid
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, "upstream_failed", outcomeUpstream
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "canceled", outcomeError
	default:
		return http.StatusInternalServerError, "internal_error", outcomeError
	}
}

func positiveParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not a positive integer", v)
	}
	return n, nil
}

func (s *Server) timeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		start := time.Now()
		next.ServeHTTP(w, r)
		s.metrics.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code string, message string) {
	respondJSON(w, status, ErrorResponse{Error: code, Message: message})
}
