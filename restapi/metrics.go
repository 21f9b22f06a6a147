/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

// responseErrors is nil until MustInitAndRegisterMetrics is called.
var responseErrors atomic.Pointer[prometheus.CounterVec]

// MustInitAndRegisterMetrics creates the <namespace>_restapi_response_errors counter
// and registers it in the default Prometheus registry.
func MustInitAndRegisterMetrics(namespace string) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "restapi",
		Name:      "response_errors",
		Help:      "Number of REST API error responses.",
	}, []string{"domain", "code"})
	prometheus.MustRegister(counter)
	responseErrors.Store(counter)
}

// UnregisterMetrics unregisters the counter created by MustInitAndRegisterMetrics.
func UnregisterMetrics() {
	if counter := responseErrors.Swap(nil); counter != nil {
		prometheus.Unregister(counter)
	}
}

func countResponseError(err *Error) {
	if counter := responseErrors.Load(); counter != nil {
		counter.WithLabelValues(err.Domain, err.Code).Inc()
	}
}
