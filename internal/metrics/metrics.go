// Package metrics records run metrics on a private Prometheus registry and
// writes them in text exposition format for a node exporter textfile
// collector. A run is a short-lived process, so nothing is served over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/reconciler"
)

// Metrics provides observability for a worldstat run.
type Metrics struct {
	registry *prometheus.Registry

	// Fetch latencies by source
	FetchLatency *prometheus.HistogramVec

	// Raw observations delivered by source
	Observations *prometheus.CounterVec

	// Failed (country, indicator) pairs by source
	PairFailures *prometheus.CounterVec

	// Total source failures by source
	SourceErrors *prometheus.CounterVec

	// Reconciled observations by outcome
	Outcomes *prometheus.CounterVec

	// Countries in the published document
	Countries prometheus.Gauge

	// Overall run latency
	RunLatency prometheus.Histogram

	// Unix time of the last successful publish
	LastSuccess prometheus.Gauge
}

// New creates a new Metrics instance with all run metrics registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		FetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worldstat_source_fetch_duration_seconds",
			Help:    "Duration of a source fetch",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"source"}),

		Observations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worldstat_source_observations_total",
			Help: "Raw observations delivered by a source",
		}, []string{"source"}),

		PairFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worldstat_source_pair_failures_total",
			Help: "Country and indicator pairs a source failed to deliver",
		}, []string{"source"}),

		SourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worldstat_source_errors_total",
			Help: "Fetches that failed for the whole source",
		}, []string{"source"}),

		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worldstat_reconcile_observations_total",
			Help: "Reconciled observations by outcome",
		}, []string{"outcome"}), // outcome: "folded", "null", "malformed", "rejected", "out_of_scope"

		Countries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worldstat_document_countries",
			Help: "Countries in the last assembled document",
		}),

		RunLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "worldstat_run_duration_seconds",
			Help:    "Duration of a full run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 900},
		}),

		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worldstat_last_success_timestamp_seconds",
			Help: "Unix time of the last successful publish",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFetch records the outcome of one source fetch.
func (m *Metrics) ObserveFetch(source string, d time.Duration, observations, failures int, err error) {
	if m == nil {
		return
	}
	m.FetchLatency.WithLabelValues(source).Observe(d.Seconds())
	m.Observations.WithLabelValues(source).Add(float64(observations))
	m.PairFailures.WithLabelValues(source).Add(float64(failures))
	if err != nil {
		m.SourceErrors.WithLabelValues(source).Inc()
	}
}

// ObserveResult records the reconciliation statistics.
func (m *Metrics) ObserveResult(stats reconciler.ResultStatistics) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues("folded").Add(float64(stats.Points))
	m.Outcomes.WithLabelValues("null").Add(float64(stats.Null))
	m.Outcomes.WithLabelValues("malformed").Add(float64(stats.Malformed))
	m.Outcomes.WithLabelValues("rejected").Add(float64(stats.Rejected))
	m.Outcomes.WithLabelValues("out_of_scope").Add(float64(stats.OutOfScope))
	m.Countries.Set(float64(stats.Countries))
}

// ObserveRun records the total run duration and, on success, the publish time.
func (m *Metrics) ObserveRun(d time.Duration, published time.Time) {
	if m == nil {
		return
	}
	m.RunLatency.Observe(d.Seconds())
	if !published.IsZero() {
		m.LastSuccess.Set(float64(published.Unix()))
	}
}

// WriteTextfile writes every metric to path in text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
