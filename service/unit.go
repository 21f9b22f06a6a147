/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs the broker process components (HTTP server, broker worker loop, journal writer
// and periodic reporters) as units with a common start/stop lifecycle.
package service

// Unit is a component of the service process with its own lifecycle.
type Unit interface {
	// Start runs the unit. It may return right after initialization or block for the unit's lifetime.
	// A failure is reported by writing to fatalErr before returning. The channel is not used after Start returns.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start failed or was never called.
	// With gracefully set, the unit finishes its in-progress work first.
	Stop(gracefully bool) error
}

// MetricsRegisterer is implemented by units that own Prometheus metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
