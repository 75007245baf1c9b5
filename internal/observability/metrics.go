package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "forecast_gateway"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// submission gateway.
type Metrics struct {
	SubmissionsReceived prometheus.Counter
	SubmissionsAccepted prometheus.Counter
	SubmissionsRejected *prometheus.CounterVec // labels: reason

	ValidationDuration prometheus.Histogram
	UploadDuration     prometheus.Histogram
	UploadRetries      prometheus.Counter
	UploadFailures     prometheus.Counter
	NotifyErrors       prometheus.Counter

	AllowlistReloads *prometheus.CounterVec // labels: outcome={success,error}
	AllowlistDates   prometheus.Gauge
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		SubmissionsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_received_total",
			Help:      help("Total forecast submissions received."),
		}),
		SubmissionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_accepted_total",
			Help:      help("Total submissions validated and archived."),
		}),
		SubmissionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      help("Submissions rejected, by reason."),
		}, []string{"reason"}),
		ValidationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      help("Duration of metadata validation, normalization and distribution checks."),
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		UploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      help("Duration of archive uploads including retries."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		UploadRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_retries_total",
			Help:      help("Archive upload attempts that were retried."),
		}),
		UploadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_failures_total",
			Help:      help("Submissions that could not be archived after all retries."),
		}),
		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_errors_total",
			Help:      help("Failures publishing submission notifications."),
		}),
		AllowlistReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allowlist_reloads_total",
			Help:      help("Start date allow-list reloads by outcome."),
		}, []string{"outcome"}),
		AllowlistDates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "allowlist_dates",
			Help:      help("Number of start dates currently accepted by the allow-list."),
		}),
	}
}

// NewMetrics creates and registers all gateway metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.SubmissionsReceived,
		m.SubmissionsAccepted,
		m.SubmissionsRejected,
		m.ValidationDuration,
		m.UploadDuration,
		m.UploadRetries,
		m.UploadFailures,
		m.NotifyErrors,
		m.AllowlistReloads,
		m.AllowlistDates,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
