// Package metrics exposes the matching engine's Prometheus
// instrumentation. The collector shapes and the register-once
// construction are grounded on abdoElHodaky-tradSys's internal/metrics
// package (WebSocketMetrics et al.): a single struct of pre-built
// collectors, registered against a prometheus.Registerer at
// construction time, with one Record* method per event of interest.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters and histograms for one matching engine
// process. All fields are safe for concurrent use, since the
// underlying prometheus collectors are.
type Metrics struct {
	ordersSubmitted *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec
	tradesRecorded  *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	matchLatency    *prometheus.HistogramVec
	bookDepth       *prometheus.GaugeVec
}

// New builds a Metrics and registers its collectors against registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		ordersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchingengine_orders_submitted_total",
			Help: "Total number of order submissions accepted for matching, by symbol and resulting status.",
		}, []string{"symbol", "status"}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchingengine_orders_rejected_total",
			Help: "Total number of order submissions rejected at validation, by error code.",
		}, []string{"error_code"}),
		tradesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchingengine_trades_recorded_total",
			Help: "Total number of trades produced by the matching loop, by symbol.",
		}, []string{"symbol"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchingengine_publish_failures_total",
			Help: "Total number of order book or trade publish attempts that returned an error, by symbol and kind.",
		}, []string{"symbol", "kind"}),
		matchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "matchingengine_submit_duration_seconds",
			Help:    "Latency of one Engine.Submit call, by symbol.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}, []string{"symbol"}),
		bookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "matchingengine_book_depth",
			Help: "Number of price levels (at most 100) on one side of a symbol's book at the last publish.",
		}, []string{"symbol", "side"}),
	}

	registry.MustRegister(
		m.ordersSubmitted,
		m.ordersRejected,
		m.tradesRecorded,
		m.publishFailures,
		m.matchLatency,
		m.bookDepth,
	)

	return m
}

// RecordSubmit records one Submit call that reached the matching loop
// (i.e. passed validation), observing both its outcome and latency.
func (m *Metrics) RecordSubmit(symbol, status string, latencySeconds float64) {
	m.ordersSubmitted.WithLabelValues(symbol, status).Inc()
	m.matchLatency.WithLabelValues(symbol).Observe(latencySeconds)
}

// RecordRejection records one Submit call that failed validation.
func (m *Metrics) RecordRejection(errorCode string) {
	m.ordersRejected.WithLabelValues(errorCode).Inc()
}

// RecordTrades records n trades produced for symbol by one Submit call.
func (m *Metrics) RecordTrades(symbol string, n int) {
	if n <= 0 {
		return
	}
	m.tradesRecorded.WithLabelValues(symbol).Add(float64(n))
}

// RecordPublishFailure records a failed PublishOrderBook ("book"),
// PublishTrade ("trade") or MirrorBook ("mirror") call for symbol.
func (m *Metrics) RecordPublishFailure(symbol, kind string) {
	m.publishFailures.WithLabelValues(symbol, kind).Inc()
}

// SetBookDepth records the number of price levels in the published
// snapshot of side of symbol's book, as observed at the last publish
// attempt.
func (m *Metrics) SetBookDepth(symbol, side string, depth int) {
	m.bookDepth.WithLabelValues(symbol, side).Set(float64(depth))
}
