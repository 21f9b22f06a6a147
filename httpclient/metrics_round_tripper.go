/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector collects metrics of outgoing requests.
type MetricsCollector interface {
	// ObserveRequest is called once per request. Status is 0 if no response was received.
	ObserveRequest(requestType, host, method string, status int, elapsed time.Duration)
}

// PrometheusMetricsCollector implements MetricsCollector with a Prometheus histogram.
type PrometheusMetricsCollector struct {
	Durations *prometheus.HistogramVec
}

var _ MetricsCollector = (*PrometheusMetricsCollector)(nil)

// NewPrometheusMetricsCollector creates a new PrometheusMetricsCollector.
// Buckets go up to 10 minutes since model inference may be slow.
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	return &PrometheusMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_client_request_duration_seconds",
			Help:      "Durations of outgoing HTTP requests.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 150, 300, 600},
		}, []string{"type", "remote_address", "method", "status"}),
	}
}

// MustRegisterMetrics registers the histogram in the default Prometheus registry.
func (c *PrometheusMetricsCollector) MustRegisterMetrics() {
	prometheus.MustRegister(c.Durations)
}

// UnregisterMetrics unregisters the histogram from the default Prometheus registry.
func (c *PrometheusMetricsCollector) UnregisterMetrics() {
	prometheus.Unregister(c.Durations)
}

// ObserveRequest implements MetricsCollector.
func (c *PrometheusMetricsCollector) ObserveRequest(requestType, host, method string, status int, elapsed time.Duration) {
	c.Durations.WithLabelValues(requestType, host, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// MetricsRoundTripperOpts represents options for MetricsRoundTripper.
type MetricsRoundTripperOpts struct {
	// RequestType is used when the request context has no type (see NewContextWithRequestType).
	RequestType string
	Collector   MetricsCollector
}

// MetricsRoundTripper is an http.RoundTripper that reports every request to MetricsCollector.
type MetricsRoundTripper struct {
	delegate http.RoundTripper
	opts     MetricsRoundTripperOpts
}

// NewMetricsRoundTripperWithOpts creates a new MetricsRoundTripper.
func NewMetricsRoundTripperWithOpts(delegate http.RoundTripper, opts MetricsRoundTripperOpts) *MetricsRoundTripper {
	return &MetricsRoundTripper{delegate: delegate, opts: opts}
}

// RoundTrip executes the request and observes its duration.
func (rt *MetricsRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.opts.Collector == nil {
		return rt.delegate.RoundTrip(r)
	}
	start := time.Now()
	resp, err := rt.delegate.RoundTrip(r)
	status := 0
	if err == nil {
		status = resp.StatusCode
	}
	rt.opts.Collector.ObserveRequest(requestTypeFor(r, rt.opts.RequestType), r.URL.Host, r.Method, status, time.Since(start))
	return resp, err
}
