// Package metrics exposes Prometheus instrumentation for check runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/markcheck/internal/check"
)

// Metrics holds the collectors updated after each run.
type Metrics struct {
	RunsTotal         prometheus.Counter
	FilesChecked      prometheus.Counter
	ReferencesChecked *prometheus.CounterVec
	BrokenReferences  *prometheus.CounterVec
	RedirectsFixed    prometheus.Counter
	LastRunTimestamp  prometheus.Gauge
	LastRunBroken     prometheus.Gauge
}

// New registers the markcheck collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "markcheck_runs_total",
			Help: "Number of completed check runs.",
		}),
		FilesChecked: factory.NewCounter(prometheus.CounterOpts{
			Name: "markcheck_files_checked_total",
			Help: "Number of markdown files checked.",
		}),
		ReferencesChecked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "markcheck_references_checked_total",
			Help: "Number of references validated, by kind.",
		}, []string{"kind"}),
		BrokenReferences: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "markcheck_broken_references_total",
			Help: "Number of invalid references found, by kind.",
		}, []string{"kind"}),
		RedirectsFixed: factory.NewCounter(prometheus.CounterOpts{
			Name: "markcheck_redirects_fixed_total",
			Help: "Number of permanently redirected targets rewritten in place.",
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "markcheck_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed run.",
		}),
		LastRunBroken: factory.NewGauge(prometheus.GaugeOpts{
			Name: "markcheck_last_run_broken_references",
			Help: "Invalid references found by the last run.",
		}),
	}
}

// Observe records one completed run.
func (m *Metrics) Observe(results map[string][]check.Result, completedAt float64) {
	m.RunsTotal.Inc()
	m.LastRunTimestamp.Set(completedAt)

	broken := 0
	for _, fileResults := range results {
		m.FilesChecked.Inc()
		for _, r := range fileResults {
			kind := string(r.Reference.Kind)
			m.ReferencesChecked.WithLabelValues(kind).Inc()
			if !r.Valid {
				broken++
				m.BrokenReferences.WithLabelValues(kind).Inc()
			}
			if r.Updated {
				m.RedirectsFixed.Inc()
			}
		}
	}
	m.LastRunBroken.Set(float64(broken))
}

// Handler serves the registry in Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
