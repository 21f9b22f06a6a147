/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/acronis/go-mlbroker/httpserver/middleware"
	"github.com/acronis/go-mlbroker/log"
)

// LoggingMode selects which outgoing requests are logged.
type LoggingMode string

// Logging modes.
const (
	LoggingModeNone   LoggingMode = "none"
	LoggingModeAll    LoggingMode = "all"
	LoggingModeFailed LoggingMode = "failed"
)

// LoggingRoundTripperOpts represents options for LoggingRoundTripper.
type LoggingRoundTripperOpts struct {
	// RequestType is used when the request context has no type.
	RequestType string

	// LoggerProvider returns the logger for the request context.
	// middleware.GetLoggerFromContext is used by default. Nothing is logged if it returns nil.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// Mode is LoggingModeAll by default.
	Mode LoggingMode

	// SlowRequestThreshold is the duration from which successful requests are logged in LoggingModeAll.
	SlowRequestThreshold time.Duration
}

// LoggingRoundTripper is an http.RoundTripper that logs outgoing requests.
// Failed ones (transport errors and 5xx) are logged in every mode except LoggingModeNone.
// The request duration is also added to the "time_slots" of the incoming request log entry.
type LoggingRoundTripper struct {
	delegate http.RoundTripper
	opts     LoggingRoundTripperOpts
}

// NewLoggingRoundTripper creates a new LoggingRoundTripper with default options.
func NewLoggingRoundTripper(delegate http.RoundTripper) *LoggingRoundTripper {
	return NewLoggingRoundTripperWithOpts(delegate, LoggingRoundTripperOpts{})
}

// NewLoggingRoundTripperWithOpts creates a new LoggingRoundTripper.
func NewLoggingRoundTripperWithOpts(delegate http.RoundTripper, opts LoggingRoundTripperOpts) *LoggingRoundTripper {
	if opts.Mode == "" {
		opts.Mode = LoggingModeAll
	}
	if opts.LoggerProvider == nil {
		opts.LoggerProvider = middleware.GetLoggerFromContext
	}
	return &LoggingRoundTripper{delegate: delegate, opts: opts}
}

// RoundTrip executes the request and logs it according to the mode.
func (rt *LoggingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.opts.Mode == LoggingModeNone {
		return rt.delegate.RoundTrip(r)
	}

	start := time.Now()
	resp, err := rt.delegate.RoundTrip(r)
	elapsed := time.Since(start)

	reqType := requestTypeFor(r, rt.opts.RequestType)
	if lp := middleware.GetLoggingParamsFromContext(r.Context()); lp != nil {
		lp.AddTimeSlotDurationInMs("external_request_"+reqType+"_ms", elapsed)
	}

	logger := rt.opts.LoggerProvider(r.Context())
	if logger == nil {
		return resp, err
	}
	logFn := rt.logFunc(logger, resp, err, elapsed)
	if logFn == nil {
		return resp, err
	}

	fields := []log.Field{
		log.String("method", r.Method),
		log.String("url", r.URL.String()),
		log.String("request_type", reqType),
		log.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if err != nil {
		fields = append(fields, log.Error(err))
	} else {
		fields = append(fields, log.Int("status", resp.StatusCode))
	}
	logFn(fmt.Sprintf("client http request %s %s done in %.3fs", r.Method, r.URL, elapsed.Seconds()), fields...)
	return resp, err
}

// logFunc picks the level of the entry, nil means the request is not logged.
func (rt *LoggingRoundTripper) logFunc(
	logger log.FieldLogger, resp *http.Response, err error, elapsed time.Duration,
) func(msg string, fields ...log.Field) {
	switch {
	case err != nil:
		return logger.Error
	case resp.StatusCode >= http.StatusInternalServerError:
		return logger.Warn
	case rt.opts.Mode == LoggingModeAll && elapsed >= rt.opts.SlowRequestThreshold:
		return logger.Info
	}
	return nil
}
