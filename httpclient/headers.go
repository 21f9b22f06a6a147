/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"

	"github.com/acronis/go-mlbroker/httpserver/middleware"
)

const (
	headerRequestID = "X-Request-ID"
	headerUserAgent = "User-Agent"
)

// headerRoundTripper sets a header of outgoing requests to the value computed from the request.
// An empty value leaves the request untouched.
type headerRoundTripper struct {
	delegate http.RoundTripper
	header   string
	value    func(r *http.Request) string
}

func (rt *headerRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	v := rt.value(r)
	if v == "" || v == r.Header.Get(rt.header) {
		return rt.delegate.RoundTrip(r)
	}
	r = r.Clone(r.Context()) // RoundTripper must not modify the request
	r.Header.Set(rt.header, v)
	return rt.delegate.RoundTrip(r)
}

// RequestIDRoundTripperOpts represents options for the request ID round tripper.
type RequestIDRoundTripperOpts struct {
	// RequestIDProvider returns the request ID for the request context.
	// middleware.GetRequestIDFromContext is used by default.
	RequestIDProvider func(ctx context.Context) string
}

// NewRequestIDRoundTripper returns an http.RoundTripper that propagates the incoming request ID
// in X-Request-ID of outgoing requests. A header set by the caller is kept.
func NewRequestIDRoundTripper(delegate http.RoundTripper) http.RoundTripper {
	return NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{})
}

// NewRequestIDRoundTripperWithOpts is a more configurable version of NewRequestIDRoundTripper.
func NewRequestIDRoundTripperWithOpts(delegate http.RoundTripper, opts RequestIDRoundTripperOpts) http.RoundTripper {
	provider := opts.RequestIDProvider
	if provider == nil {
		provider = middleware.GetRequestIDFromContext
	}
	return &headerRoundTripper{delegate: delegate, header: headerRequestID, value: func(r *http.Request) string {
		if existing := r.Header.Get(headerRequestID); existing != "" {
			return existing
		}
		return provider(r.Context())
	}}
}

// NewUserAgentRoundTripper returns an http.RoundTripper that sets User-Agent of outgoing requests.
// An existing User-Agent is kept and userAgent is appended to it.
func NewUserAgentRoundTripper(delegate http.RoundTripper, userAgent string) http.RoundTripper {
	return &headerRoundTripper{delegate: delegate, header: headerUserAgent, value: func(r *http.Request) string {
		if existing := r.Header.Get(headerUserAgent); existing != "" {
			return existing + " " + userAgent
		}
		return userAgent
	}}
}
