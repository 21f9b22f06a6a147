/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package api exposes the broker over HTTP. Callers address downstream services by name,
// their payloads go through the broker queue and the downstream response is returned as is.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acronis/go-mlbroker/broker"
	"github.com/acronis/go-mlbroker/httpclient"
	"github.com/acronis/go-mlbroker/httpserver"
	"github.com/acronis/go-mlbroker/httpserver/middleware"
	"github.com/acronis/go-mlbroker/log"
	"github.com/acronis/go-mlbroker/restapi"
)

// ServiceNameInURL is the service part of API URLs ("/api/mlbroker/v1/...").
const ServiceNameInURL = "mlbroker"

// Version is the current API version.
const Version = 1

const timeSlotBrokerWait = "broker_wait"

// Submitter submits jobs to the broker. It's implemented by *broker.Broker.
type Submitter interface {
	SubmitWithOpts(ctx context.Context, destination string, payload interface{}, opts broker.SubmitOpts) (*broker.Future, error)
}

// Handler serves the broker HTTP API.
type Handler struct {
	submitter        Submitter
	destinations     map[string]Destination
	destinationNames []string
	maxBodySize      uint64
	maxWaitTimeout   time.Duration
}

// NewHandler creates a new Handler.
func NewHandler(cfg *Config, submitter Submitter) *Handler {
	names := make([]string, 0, len(cfg.Destinations))
	for name := range cfg.Destinations {
		names = append(names, name)
	}
	sort.Strings(names)
	maxWaitTimeout := cfg.MaxWaitTimeout
	if maxWaitTimeout <= 0 {
		maxWaitTimeout = DefaultMaxWaitTimeout
	}
	maxBodySize := uint64(cfg.MaxRequestBodySize)
	if maxBodySize == 0 {
		maxBodySize = DefaultMaxRequestBodySize
	}
	return &Handler{
		submitter:        submitter,
		destinations:     cfg.Destinations,
		destinationNames: names,
		maxBodySize:      maxBodySize,
		maxWaitTimeout:   maxWaitTimeout,
	}
}

// Routes registers API routes. It's supposed to be used as httpserver.APIRoute.
func (h *Handler) Routes(router chi.Router) {
	router.Get("/destinations", h.listDestinations)
	router.With(middleware.RequestBodyLimit(h.maxBodySize, ErrorDomain)).
		Post("/destinations/{name}/requests", h.submitRequest)
}

type destinationsResponse struct {
	Destinations []string `json:"destinations"`
}

func (h *Handler) listDestinations(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, destinationsResponse{Destinations: h.destinationNames}, middleware.GetLoggerFromContext(r.Context()))
}

func (h *Handler) submitRequest(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLoggerFromContext(ctx)

	name := chi.URLParam(r, "name")
	dest, ok := h.destinations[name]
	if !ok {
		apiErr := restapi.NewError(ErrorDomain, ErrCodeDestinationNotFound, ErrMessageDestinationNotFound).
			AddContext("destination", name)
		restapi.RespondError(rw, http.StatusNotFound, apiErr, logger)
		return
	}

	waitTimeout, ok := h.parseWaitTimeout(r)
	if !ok {
		apiErr := restapi.NewError(ErrorDomain, ErrCodeInvalidTimeout, ErrMessageInvalidTimeout)
		restapi.RespondError(rw, http.StatusBadRequest, apiErr, logger)
		return
	}

	var payload json.RawMessage
	if err := restapi.DecodeRequestJSON(r, &payload); err != nil {
		restapi.RespondMalformedRequestOrInternalError(rw, ErrorDomain, err, logger)
		return
	}

	future, err := h.submitter.SubmitWithOpts(
		httpclient.NewContextWithRequestType(ctx, name), dest.URL, payload, broker.SubmitOpts{Timeout: dest.Timeout})
	if err != nil {
		h.respondBrokerError(rw, r, err)
		return
	}

	lp := middleware.GetLoggingParamsFromContext(ctx)
	if lp != nil {
		lp.ExtendFields(log.Destination(name), log.JobID(future.JobID()))
	}

	waitCtx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()
	waitStart := time.Now()
	res, err := future.Wait(waitCtx)
	if lp != nil {
		lp.AddTimeSlotDurationInMs(timeSlotBrokerWait, time.Since(waitStart))
	}
	if err != nil {
		h.respondBrokerError(rw, r, err)
		return
	}
	restapi.RespondRawJSON(rw, http.StatusOK, res, logger)
}

func (h *Handler) parseWaitTimeout(r *http.Request) (time.Duration, bool) {
	rawTimeout := r.URL.Query().Get("timeout")
	if rawTimeout == "" {
		return h.maxWaitTimeout, true
	}
	timeout, err := time.ParseDuration(rawTimeout)
	if err != nil || timeout <= 0 {
		return 0, false
	}
	return min(timeout, h.maxWaitTimeout), true
}

func (h *Handler) respondBrokerError(rw http.ResponseWriter, r *http.Request, err error) {
	logger := middleware.GetLoggerFromContext(r.Context())

	var upstreamErr *broker.UpstreamError
	if errors.As(err, &upstreamErr) {
		respondUpstreamError(rw, upstreamErr, logger)
		return
	}

	var transportErr *broker.TransportError
	switch {
	case errors.As(err, &transportErr):
		restapi.RespondError(rw, http.StatusBadGateway,
			restapi.NewError(ErrorDomain, ErrCodeDownstreamUnavailable, ErrMessageDownstreamUnavailable), logger)
	case errors.Is(err, broker.ErrOverloaded):
		restapi.RespondError(rw, http.StatusServiceUnavailable,
			restapi.NewError(ErrorDomain, ErrCodeOverloaded, ErrMessageOverloaded), logger)
	case errors.Is(err, broker.ErrStopped):
		restapi.RespondError(rw, http.StatusServiceUnavailable,
			restapi.NewError(ErrorDomain, ErrCodeUnavailable, ErrMessageUnavailable), logger)
	case errors.Is(err, context.DeadlineExceeded):
		restapi.RespondError(rw, http.StatusGatewayTimeout,
			restapi.NewError(ErrorDomain, ErrCodeTimeout, ErrMessageTimeout), logger)
	case errors.Is(err, context.Canceled):
		if logger != nil {
			logger.Warn("client closed request while waiting for broker")
		}
		rw.WriteHeader(httpserver.StatusClientClosedRequest)
	default:
		if logger != nil {
			logger.Error("broker job failed", log.Error(err))
		}
		restapi.RespondInternalError(rw, ErrorDomain, logger)
	}
}

// respondUpstreamError passes the downstream status and body to the caller as if it called the downstream directly.
func respondUpstreamError(rw http.ResponseWriter, upstreamErr *broker.UpstreamError, logger log.FieldLogger) {
	if len(upstreamErr.Body) != 0 && !json.Valid(upstreamErr.Body) {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	restapi.RespondRawJSON(rw, upstreamErr.StatusCode, upstreamErr.Body, logger)
}
