/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/acronis/go-mlbroker/httpserver/middleware"
	"github.com/acronis/go-mlbroker/log"
	"github.com/acronis/go-mlbroker/restapi"
)

// StatusClientClosedRequest is the non-standard status (introduced by Nginx)
// for requests whose client went away before the response was ready.
const StatusClientClosedRequest = 499

// HealthCheckStatus is a status of a single component.
type HealthCheckStatus int

// Health-check statuses.
const (
	HealthCheckStatusOK HealthCheckStatus = iota
	HealthCheckStatusFail
)

// HealthCheckResult maps component names (e.g. "broker") to their statuses.
type HealthCheckResult = map[string]HealthCheckStatus

// HealthCheck returns statuses of the service components.
type HealthCheck = func(ctx context.Context) (HealthCheckResult, error)

// NewHealthCheckHandler returns a handler that calls fn on every request and responds with
// {"components": {"<name>": <healthy>}}. The status is 503 if any component failed
// and 500 if fn returned an error. A nil fn reports no components.
func NewHealthCheckHandler(fn HealthCheck) http.Handler {
	if fn == nil {
		fn = func(ctx context.Context) (HealthCheckResult, error) {
			return HealthCheckResult{}, ctx.Err()
		}
	}
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		logger := middleware.GetLoggerFromContext(r.Context())
		result, err := fn(r.Context())
		switch {
		case errors.Is(err, context.Canceled):
			rw.WriteHeader(StatusClientClosedRequest)
		case err != nil:
			if logger != nil {
				logger.Error("error while checking health", log.Error(err))
			}
			rw.WriteHeader(http.StatusInternalServerError)
		default:
			status, body := healthCheckResponse(result)
			restapi.RespondCodeAndJSON(rw, status, body, logger)
		}
	})
}

type healthCheckResponseBody struct {
	Components map[string]bool `json:"components"`
}

func healthCheckResponse(result HealthCheckResult) (int, healthCheckResponseBody) {
	status := http.StatusOK
	body := healthCheckResponseBody{Components: make(map[string]bool, len(result))}
	for name, s := range result {
		healthy := s == HealthCheckStatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		body.Components[name] = healthy
	}
	return status, body
}
