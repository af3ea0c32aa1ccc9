package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal      *prometheus.CounterVec
	cacheHitsTotal    *prometheus.CounterVec
	cacheMissesTotal  *prometheus.CounterVec
	staleServesTotal  *prometheus.CounterVec
	flightJoinsTotal  *prometheus.CounterVec
	rejectionsTotal   *prometheus.CounterVec
	lastPrice         *prometheus.GaugeVec
	operationDuration *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinfolio_market_fetches_total",
				Help: "Total upstream market data fetches by outcome",
			},
			[]string{"symbol", "result"},
		),
		cacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinfolio_price_cache_hits_total",
				Help: "Total price cache hits",
			},
			[]string{"symbol"},
		),
		cacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinfolio_price_cache_misses_total",
				Help: "Total price cache misses",
			},
			[]string{"symbol"},
		),
		staleServesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinfolio_price_cache_stale_serves_total",
				Help: "Responses served from expired cache entries after a failed refresh",
			},
			[]string{"symbol"},
		),
		flightJoinsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinfolio_price_cache_flight_joins_total",
				Help: "Callers that joined an in-flight fetch instead of starting one",
			},
			[]string{"symbol"},
		),
		rejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinfolio_ledger_rejections_total",
				Help: "Rejected ledger transactions by kind",
			},
			[]string{"kind"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinfolio_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		operationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinfolio_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFetch records an upstream fetch outcome (ok, error, l2, archive).
func (r *Recorder) RecordFetch(symbol, result string) {
	r.fetchesTotal.WithLabelValues(symbol, result).Inc()
}

// RecordCacheHit records a price cache hit.
func (r *Recorder) RecordCacheHit(symbol string) {
	r.cacheHitsTotal.WithLabelValues(symbol).Inc()
}

// RecordCacheMiss records a price cache miss.
func (r *Recorder) RecordCacheMiss(symbol string) {
	r.cacheMissesTotal.WithLabelValues(symbol).Inc()
}

// RecordStaleServe records a stale fallback response.
func (r *Recorder) RecordStaleServe(symbol string) {
	r.staleServesTotal.WithLabelValues(symbol).Inc()
}

// RecordFlightJoin records a caller piggybacking on an in-flight fetch.
func (r *Recorder) RecordFlightJoin(symbol string) {
	r.flightJoinsTotal.WithLabelValues(symbol).Inc()
}

// RecordLedgerRejection records a rejected transaction by kind.
func (r *Recorder) RecordLedgerRejection(kind string) {
	r.rejectionsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.operationDuration.WithLabelValues(op).Observe(seconds)
}
