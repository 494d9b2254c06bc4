package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the counters the scheduler and gates expose. A nil
// *Metrics is valid and records nothing, so tests can pass nil freely.
type Metrics struct {
	reg           prometheus.Registerer
	jobsSubmitted prometheus.Counter
	jobsFinished  *prometheus.CounterVec
	cyclesTotal   prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		reg: reg,
		jobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pearl_jobs_submitted_total",
			Help: "Total number of submitted agent jobs.",
		}),
		jobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pearl_jobs_finished_total",
			Help: "Total number of finished agent jobs by terminal state.",
		}, []string{"state"}),
		cyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pearl_cycles_total",
			Help: "Total number of executed cognitive cycles.",
		}),
	}
}

// JobSubmitted records one accepted submission.
func (m *Metrics) JobSubmitted() {
	if m == nil {
		return
	}
	m.jobsSubmitted.Inc()
}

// JobFinished records one terminal job by state.
func (m *Metrics) JobFinished(state string) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(state).Inc()
}

// CyclesObserved adds the cycles a finished job executed.
func (m *Metrics) CyclesObserved(n int) {
	if m == nil {
		return
	}
	m.cyclesTotal.Add(float64(n))
}

// TrackReasoningPermits exposes the gate's live permit count as a gauge,
// sampled at scrape time.
func (m *Metrics) TrackReasoningPermits(inFlight func() int) {
	if m == nil {
		return
	}
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pearl_reasoning_permits_in_use",
		Help: "Reasoning gate permits currently held.",
	}, func() float64 {
		return float64(inFlight())
	})
}
