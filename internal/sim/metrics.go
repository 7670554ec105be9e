package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/hits"
)

// Metrics counts simulation activity. A nil *Metrics records nothing.
type Metrics struct {
	events        *prometheus.CounterVec
	steps         *prometheus.CounterVec
	records       *prometheus.CounterVec
	eventDuration prometheus.Histogram
	poolReuse     prometheus.Counter
}

// NewMetrics registers the simulation metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hodosim_events_total",
			Help: "Events processed, by status",
		}, []string{"status"}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hodosim_steps_total",
			Help: "Sensitive-volume steps, by attribution outcome",
		}, []string{"outcome"}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hodosim_hit_records_total",
			Help: "Closed hit records, by detector",
		}, []string{"detector"}),
		eventDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hodosim_event_duration_seconds",
			Help:    "Wall time to process one event",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		poolReuse: f.NewCounter(prometheus.CounterOpts{
			Name: "hodosim_record_pool_reuses_total",
			Help: "Hit records served from a worker free list",
		}),
	}
}

func (m *Metrics) observeStep(o hits.Outcome) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeEvent(status string, seconds float64) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(status).Inc()
	m.eventDuration.Observe(seconds)
}

func (m *Metrics) observeStore(store *hits.Store) {
	if m == nil || store == nil {
		return
	}
	for _, c := range store.Collections() {
		m.records.WithLabelValues(c.Detector()).Add(float64(c.Len()))
	}
}

func (m *Metrics) observeReuse(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.poolReuse.Add(float64(n))
}
