/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package broker

import "github.com/prometheus/client_golang/prometheus"

const metricsSubsystem = "broker"

const metricsLabelOutcome = "outcome"

// PrometheusMetrics contains Prometheus metrics of the broker.
type PrometheusMetrics struct {
	QueueSize          prometheus.GaugeFunc
	Jobs               *prometheus.CounterVec
	RejectedJobs       prometheus.Counter
	RateLimitedJobs    prometheus.Counter
	QueueWaitDurations prometheus.Histogram
	SendDurations      prometheus.Histogram
}

func newPrometheusMetrics(namespace string, queueSize func() float64) *PrometheusMetrics {
	durationBuckets := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 150, 300, 600}
	return &PrometheusMetrics{
		QueueSize: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "queue_size",
			Help:      "Number of jobs waiting in the queue.",
		}, queueSize),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "jobs_total",
			Help:      "Number of resolved jobs.",
		}, []string{metricsLabelOutcome}),
		RejectedJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "rejected_jobs_total",
			Help:      "Number of submissions rejected because the queue was full.",
		}),
		RateLimitedJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "rate_limited_jobs_total",
			Help:      "Number of jobs that had to wait for a free slot in the rate limiting window.",
		}),
		QueueWaitDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "queue_wait_seconds",
			Help:      "A histogram of time jobs spent in the queue.",
			Buckets:   durationBuckets,
		}),
		SendDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "send_duration_seconds",
			Help:      "A histogram of downstream requests durations.",
			Buckets:   durationBuckets,
		}),
	}
}

func (m *PrometheusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.QueueSize, m.Jobs, m.RejectedJobs, m.RateLimitedJobs, m.QueueWaitDurations, m.SendDurations,
	}
}

// MustRegister registers metrics in Prometheus client and panics if any error occurs.
func (m *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(m.collectors()...)
}

// Unregister cancels registration of metrics in Prometheus client.
func (m *PrometheusMetrics) Unregister() {
	for _, c := range m.collectors() {
		prometheus.Unregister(c)
	}
}
