// Package metrics provides Prometheus metrics for driving-permit checks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// DCS exchanges
	AttemptsTotal          *prometheus.CounterVec   // attempts by outcome label
	AttemptDurationSeconds *prometheus.HistogramVec // attempt latency by outcome label
	ResolutionsTotal       *prometheus.CounterVec   // controller resolutions by final state
	AttemptsPerCheck       prometheus.Histogram
	CircuitOpen            prometheus.Gauge

	// Check results
	ChecksTotal *prometheus.CounterVec // completed checks by validity

	// Credentials
	CredentialsIssuedTotal prometheus.Counter
	IssueFailuresTotal     *prometheus.CounterVec // failures by failure kind

	// Store
	StoreLookupsTotal *prometheus.CounterVec // check-result lookups by hit/miss
}

// New registers metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "permitcheck_dcs_attempts_total",
			Help: "DCS attempts by observed outcome",
		}, []string{"outcome"}),

		AttemptDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "permitcheck_dcs_attempt_duration_seconds",
			Help:    "Duration of a single DCS attempt, build to interpretation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"outcome"}),

		ResolutionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "permitcheck_dcs_resolutions_total",
			Help: "Retry controller resolutions by final state",
		}, []string{"state"}),

		AttemptsPerCheck: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "permitcheck_dcs_attempts_per_check",
			Help:    "Number of counted DCS attempts per check",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		}),

		CircuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "permitcheck_dcs_circuit_open",
			Help: "1 while the DCS circuit breaker is open",
		}),

		ChecksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "permitcheck_checks_total",
			Help: "Completed permit checks by validity",
		}, []string{"valid"}),

		CredentialsIssuedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "permitcheck_credentials_issued_total",
			Help: "Signed driving-permit credentials issued",
		}),

		IssueFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "permitcheck_issue_failures_total",
			Help: "Check or issue failures by failure kind",
		}, []string{"kind"}),

		StoreLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "permitcheck_store_lookups_total",
			Help: "Check result lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveAttempt(outcome string, seconds float64) {
	m.AttemptsTotal.WithLabelValues(outcome).Inc()
	m.AttemptDurationSeconds.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) ObserveResolution(state string, attempts int) {
	m.ResolutionsTotal.WithLabelValues(state).Inc()
	m.AttemptsPerCheck.Observe(float64(attempts))
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}

func (m *Metrics) IncrementChecks(valid bool) {
	if valid {
		m.ChecksTotal.WithLabelValues("true").Inc()
		return
	}
	m.ChecksTotal.WithLabelValues("false").Inc()
}

func (m *Metrics) IncrementCredentialsIssued() {
	m.CredentialsIssuedTotal.Inc()
}

func (m *Metrics) IncrementFailure(kind string) {
	m.IssueFailuresTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordStoreLookup(hit bool) {
	if hit {
		m.StoreLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	m.StoreLookupsTotal.WithLabelValues("miss").Inc()
}
