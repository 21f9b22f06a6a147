/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds *http.Client instances used for talking to downstream services.
// Outgoing requests pass through round trippers that log them, collect Prometheus metrics,
// set User-Agent and propagate X-Request-ID from the context.
package httpclient

import (
	"context"
	"net/http"

	"github.com/acronis/go-mlbroker/log"
)

// DefaultRequestType is used in logs and metrics when request type is not specified.
const DefaultRequestType = "downstream"

// Opts provides options for NewWithOpts.
type Opts struct {
	UserAgent string

	// RequestType labels logs and metrics (e.g. a destination name).
	// NewContextWithRequestType overrides it per request.
	RequestType string

	// Delegate performs the actual requests. A clone of http.DefaultTransport is used by default.
	Delegate http.RoundTripper

	LoggerProvider    func(ctx context.Context) log.FieldLogger
	RequestIDProvider func(ctx context.Context) string
	Collector         MetricsCollector
}

// New creates a new *http.Client with default options.
func New(cfg *Config) *http.Client {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new *http.Client configured by cfg. Redirects are not followed.
func NewWithOpts(cfg *Config, opts Opts) *http.Client {
	transport := opts.Delegate
	if transport == nil {
		transport = newTransport(cfg)
	}

	// Wrappers are applied in order, so the last one sees the request first.
	var wrappers []func(http.RoundTripper) http.RoundTripper
	if cfg.Log.Enabled {
		logOpts := cfg.Log.TransportOpts()
		logOpts.LoggerProvider, logOpts.RequestType = opts.LoggerProvider, opts.RequestType
		wrappers = append(wrappers, func(rt http.RoundTripper) http.RoundTripper {
			return NewLoggingRoundTripperWithOpts(rt, logOpts)
		})
	}
	if cfg.Metrics.Enabled {
		metricsOpts := MetricsRoundTripperOpts{RequestType: opts.RequestType, Collector: opts.Collector}
		wrappers = append(wrappers, func(rt http.RoundTripper) http.RoundTripper {
			return NewMetricsRoundTripperWithOpts(rt, metricsOpts)
		})
	}
	if opts.UserAgent != "" {
		wrappers = append(wrappers, func(rt http.RoundTripper) http.RoundTripper {
			return NewUserAgentRoundTripper(rt, opts.UserAgent)
		})
	}
	wrappers = append(wrappers, func(rt http.RoundTripper) http.RoundTripper {
		return NewRequestIDRoundTripperWithOpts(rt, RequestIDRoundTripperOpts{RequestIDProvider: opts.RequestIDProvider})
	})

	for _, wrap := range wrappers {
		transport = wrap(transport)
	}
	return &http.Client{Transport: transport, Timeout: cfg.Timeout, CheckRedirect: doNotFollowRedirects}
}

// doNotFollowRedirects makes the client return 3xx responses as is.
func doNotFollowRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func newTransport(cfg *Config) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxIdleConnsPerHost > 0 {
		t.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}
	return t
}

func requestTypeFor(r *http.Request, fallback string) string {
	for _, t := range [...]string{GetRequestTypeFromContext(r.Context()), fallback} {
		if t != "" {
			return t
		}
	}
	return DefaultRequestType
}
