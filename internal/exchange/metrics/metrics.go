package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for cycle generation.
type Metrics struct {
	CyclesGenerated    prometheus.Counter
	GenerationFailures *prometheus.CounterVec
	DrawAttempts       prometheus.Histogram
	GenerateDuration   prometheus.Histogram
	LockWait           prometheus.Histogram
}

// New registers the exchange metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CyclesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftexchange_cycles_generated_total",
			Help: "Total number of cycles drawn and persisted",
		}),
		GenerationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giftexchange_cycle_generation_failures_total",
			Help: "Failed cycle generations by reason",
		}, []string{"reason"}),
		DrawAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "giftexchange_draw_attempts",
			Help:    "Shuffles needed to find a pairing that avoids recent history",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		}),
		GenerateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "giftexchange_generate_duration_seconds",
			Help:    "Duration of cycle generation including persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		LockWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "giftexchange_generate_lock_wait_seconds",
			Help:    "Time spent waiting for the per-cycle generation lock",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

// ObserveGenerated records a persisted cycle and how many shuffles it took.
func (m *Metrics) ObserveGenerated(attempts int) {
	m.CyclesGenerated.Inc()
	m.DrawAttempts.Observe(float64(attempts))
}

// IncrementFailure records a failed generation.
func (m *Metrics) IncrementFailure(reason string) {
	m.GenerationFailures.WithLabelValues(reason).Inc()
}

// ObserveGenerate records the duration of a Generate call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveGenerate(start time.Time) {
	m.GenerateDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveLockWait(start time.Time) {
	m.LockWait.Observe(time.Since(start).Seconds())
}
