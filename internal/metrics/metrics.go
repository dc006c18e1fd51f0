package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	FetchTotal           *prometheus.CounterVec
	FetchDuration        *prometheus.HistogramVec
	ReconciliationErrors *prometheus.CounterVec
	ComparisonsComputed  *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epi_fetch_total",
			Help: "Upstream series downloads by series and outcome",
		}, []string{"series", "outcome"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "epi_fetch_duration_seconds",
			Help:    "Duration of upstream series downloads including retries",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"series"}),
		ReconciliationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epi_reconciliation_errors_total",
			Help: "Age group labels that could not be mapped to a canonical bucket",
		}, []string{"series"}),
		ComparisonsComputed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epi_comparisons_computed_total",
			Help: "Comparisons computed per region",
		}, []string{"region"}),
	}
}

// ObserveFetch records one download attempt of a series.
func (m *Metrics) ObserveFetch(series string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.FetchTotal.WithLabelValues(series, outcome).Inc()
	m.FetchDuration.WithLabelValues(series).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ComparisonComputed(region string) {
	m.ComparisonsComputed.WithLabelValues(region).Inc()
}

func (m *Metrics) ReconciliationFailed(series string) {
	m.ReconciliationErrors.WithLabelValues(series).Inc()
}
