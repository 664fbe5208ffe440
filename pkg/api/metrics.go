package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes
const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeUpstream = "upstream_error"
	outcomeError    = "error"
)

type metrics struct {
	queries         *prometheus.CounterVec
	resultSize      prometheus.Histogram
	requestDuration *prometheus.HistogramVec
	wsClients       prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "assetbuyer",
				Subsystem: "inventory",
				Name:      "queries_total",
				Help:      "Order queries answered, by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		resultSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "assetbuyer",
				Subsystem: "inventory",
				Name:      "query_result_orders",
				Help:      "Number of orders matched by a query",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
			},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "assetbuyer",
				Subsystem: "api",
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		wsClients: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "assetbuyer",
				Subsystem: "api",
				Name:      "ws_clients",
				Help:      "Connected websocket clients",
			},
		),
	}
}
