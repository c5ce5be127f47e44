package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal      *prometheus.CounterVec
	assetsGenerated *prometheus.CounterVec
	genCollisions   prometheus.Counter
	lastPrice       *prometheus.GaugeVec
	tradesTotal     *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_simulation_ticks_total",
				Help: "Completed simulation passes by kind",
			},
			[]string{"pass"},
		),
		assetsGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_assets_generated_total",
				Help: "Assets minted by the generation pass",
			},
			[]string{"symbol"},
		),
		genCollisions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coinpulse_generation_collisions_total",
				Help: "Name/symbol collisions hit while generating assets",
			},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinpulse_last_price",
				Help: "Last simulated price for a symbol",
			},
			[]string{"symbol"},
		),
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_trades_total",
				Help: "Executed trades by kind",
			},
			[]string{"kind", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTick records one completed simulation pass.
func (r *Recorder) RecordTick(pass string) {
	r.ticksTotal.WithLabelValues(pass).Inc()
}

// RecordAssetGenerated records a newly minted asset.
func (r *Recorder) RecordAssetGenerated(symbol string) {
	r.assetsGenerated.WithLabelValues(symbol).Inc()
}

// RecordGenerationCollision records a duplicate-key retry.
func (r *Recorder) RecordGenerationCollision() {
	r.genCollisions.Inc()
}

// RecordLastPrice records the last simulated price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordTrade records an executed trade.
func (r *Recorder) RecordTrade(kind, symbol string) {
	r.tradesTotal.WithLabelValues(kind, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
