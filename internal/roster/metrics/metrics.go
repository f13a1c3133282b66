package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the roster module.
type Metrics struct {
	MembersCreated   prometheus.Counter
	MembersRenamed   prometheus.Counter
	MembersDeleted   prometheus.Counter
	RosterSize       prometheus.Gauge
	MutationDuration *prometheus.HistogramVec
}

// New registers the roster metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MembersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftexchange_members_created_total",
			Help: "Total number of members added to the roster",
		}),
		MembersRenamed: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftexchange_members_renamed_total",
			Help: "Total number of member renames",
		}),
		MembersDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftexchange_members_deleted_total",
			Help: "Total number of members removed from the roster",
		}),
		RosterSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "giftexchange_roster_size",
			Help: "Number of members currently on the roster",
		}),
		MutationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "giftexchange_roster_mutation_duration_seconds",
			Help:    "Duration of roster mutations by operation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.MembersCreated.Inc()
}

func (m *Metrics) IncrementRenamed() {
	m.MembersRenamed.Inc()
}

func (m *Metrics) IncrementDeleted() {
	m.MembersDeleted.Inc()
}

// SetRosterSize records the current roster size.
func (m *Metrics) SetRosterSize(n int) {
	m.RosterSize.Set(float64(n))
}

// ObserveMutation records the duration of a roster mutation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveMutation(operation string, start time.Time) {
	m.MutationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
