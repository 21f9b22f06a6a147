/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/acronis/go-mlbroker/log"
)

// DefaultSlowRequestThreshold is the request duration from which time slots are logged.
const DefaultSlowRequestThreshold = time.Second

const (
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// LoggingOpts represents options for the Logging middleware.
type LoggingOpts struct {
	// RequestStart enables the "request started" entry.
	RequestStart bool

	// ExcludedEndpoints are URL paths whose successful requests are not logged (e.g. /healthz).
	ExcludedEndpoints []string

	// SlowRequestThreshold is the duration from which the "time_slots" field is logged.
	SlowRequestThreshold time.Duration
}

// Logging writes an entry per completed request and puts a logger with request IDs into the request context.
// Handlers may add fields to the entry via GetLoggingParamsFromContext.
func Logging(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return LoggingWithOpts(logger, LoggingOpts{})
}

// LoggingWithOpts is a more configurable version of Logging.
func LoggingWithOpts(logger log.FieldLogger, opts LoggingOpts) func(next http.Handler) http.Handler {
	if opts.SlowRequestThreshold <= 0 {
		opts.SlowRequestThreshold = DefaultSlowRequestThreshold
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			serveLogged(next, rw, r, logger, &opts)
		})
	}
}

func serveLogged(next http.Handler, rw http.ResponseWriter, r *http.Request, logger log.FieldLogger, opts *LoggingOpts) {
	ctx := r.Context()
	startTime := GetRequestStartTimeFromContext(ctx)
	if startTime.IsZero() {
		startTime = time.Now()
		ctx = NewContextWithRequestStartTime(ctx, startTime)
	}

	reqLogger := logger.With(
		log.String("request_id", GetRequestIDFromContext(ctx)),
		log.String("int_request_id", GetInternalRequestIDFromContext(ctx)),
	)
	accessLogger := reqLogger.With(requestFields(r)...)

	excluded := slices.Contains(opts.ExcludedEndpoints, r.URL.Path)
	if opts.RequestStart && !excluded {
		accessLogger.Info("request started")
	}

	lp := &LoggingParams{}
	ctx = NewContextWithLoggingParams(NewContextWithLogger(ctx, reqLogger), lp)
	wrw, ok := rw.(chimw.WrapResponseWriter)
	if !ok {
		wrw = chimw.NewWrapResponseWriter(rw, r.ProtoMajor)
	}
	next.ServeHTTP(wrw, r.WithContext(ctx))

	status := wrw.Status()
	if status == 0 {
		status = http.StatusOK
	}
	if excluded && status < http.StatusBadRequest {
		return
	}

	elapsed := time.Since(startTime)
	fields := []log.Field{
		log.Int64("duration_ms", elapsed.Milliseconds()),
		log.Int("status", status),
		log.Int("bytes_sent", wrw.BytesWritten()),
	}
	fields = append(fields, lp.logFields(elapsed >= opts.SlowRequestThreshold)...)
	accessLogger.Info(fmt.Sprintf("response completed in %.3fs", elapsed.Seconds()), fields...)
}

func requestFields(r *http.Request) []log.Field {
	fields := []log.Field{
		log.String("method", r.Method),
		log.String("uri", r.RequestURI),
		log.String("remote_addr", r.RemoteAddr),
		log.Int64("content_length", r.ContentLength),
		log.String("user_agent", r.UserAgent()),
	}
	if addr := originAddr(r); addr != "" {
		fields = append(fields, log.String("origin_addr", addr))
	}
	return fields
}

// originAddr returns the client address set by proxies: the first X-Forwarded-For entry or X-Real-IP.
func originAddr(r *http.Request) string {
	if fwd := r.Header.Get(headerForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(r.Header.Get(headerRealIP))
}
