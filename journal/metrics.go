/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package journal

import "github.com/prometheus/client_golang/prometheus"

const metricsSubsystem = "journal"

// Record write results.
const (
	resultWritten = "written"
	resultFailed  = "failed"
	resultDropped = "dropped"
)

// PrometheusMetrics represents a collector of metrics for the journal.
type PrometheusMetrics struct {
	Records        *prometheus.CounterVec
	WriteDurations prometheus.Histogram
}

func newPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "records_total",
			Help:      "Number of job outcome records by write result.",
		}, []string{"result"}),
		WriteDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "write_duration_seconds",
			Help:      "Duration of writing a single record including retries.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegisterMetrics() {
	prometheus.MustRegister(pm.Records, pm.WriteDurations)
}

// UnregisterMetrics unregisters metrics in Prometheus client.
func (pm *PrometheusMetrics) UnregisterMetrics() {
	prometheus.Unregister(pm.Records)
	prometheus.Unregister(pm.WriteDurations)
}
