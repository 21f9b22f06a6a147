/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains assertion helpers shared by tests of the broker packages:
// REST API responses, error chains, Prometheus samples and listening servers.
package testutil

type tHelper interface {
	Helper()
}
