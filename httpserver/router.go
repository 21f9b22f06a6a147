/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-mlbroker/httpserver/middleware"
	"github.com/acronis/go-mlbroker/log"
	"github.com/acronis/go-mlbroker/restapi"
)

// APIVersion is a version of the API, mounted at "/api/<service>/v<version>".
type APIVersion = int

// APIRoute registers routes of one API version.
type APIRoute = func(router chi.Router)

// Opts represents options for NewRouter and New.
type Opts struct {
	ServiceNameInURL string
	APIRoutes        map[APIVersion]APIRoute

	// ErrorDomain is set in errors produced by the router itself (404, 405, panics).
	ErrorDomain string

	// HealthCheck is served on /healthz.
	HealthCheck HealthCheck

	// MetricsHandler is served on /metrics. promhttp.Handler() is used by default.
	MetricsHandler http.Handler
}

// NewRouter creates a chi.Router with the middleware chain
// (start time, request ID, logging, recovery), /metrics, /healthz and the API routes.
func NewRouter(cfg *Config, logger log.FieldLogger, opts Opts) chi.Router {
	r := chi.NewRouter()
	r.Use(
		stampStartTime,
		middleware.RequestID(),
		middleware.LoggingWithOpts(logger, middleware.LoggingOpts{
			RequestStart:         cfg.Log.RequestStart,
			ExcludedEndpoints:    cfg.Log.ExcludedEndpoints,
			SlowRequestThreshold: cfg.Log.SlowRequestThreshold,
		}),
		middleware.Recovery(opts.ErrorDomain),
	)

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)
	r.Method(http.MethodGet, "/healthz", NewHealthCheckHandler(opts.HealthCheck))

	r.Route("/api/"+opts.ServiceNameInURL, func(api chi.Router) {
		for version, routes := range opts.APIRoutes {
			api.Route(fmt.Sprintf("/v%d", version), routes)
		}
	})

	r.NotFound(respondWithError(opts.ErrorDomain, http.StatusNotFound,
		restapi.ErrCodeNotFound, restapi.ErrMessageNotFound))
	r.MethodNotAllowed(respondWithError(opts.ErrorDomain, http.StatusMethodNotAllowed,
		restapi.ErrCodeMethodNotAllowed, restapi.ErrMessageMethodNotAllowed))
	return r
}

// stampStartTime records the receive time before the other middlewares run.
func stampStartTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(rw, r.WithContext(middleware.NewContextWithRequestStartTime(r.Context(), time.Now())))
	})
}

func respondWithError(domain string, status int, code, message string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		restapi.RespondError(rw, status, restapi.NewError(domain, code, message), middleware.GetLoggerFromContext(r.Context()))
	}
}
