/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/rs/xid"
)

const (
	headerRequestID         = "X-Request-ID"
	headerInternalRequestID = "X-Int-Request-ID"
)

// RequestIDOpts represents options for the RequestID middleware.
// Nil generators produce xid identifiers.
type RequestIDOpts struct {
	GenerateID         func() string
	GenerateInternalID func() string
}

func generateXID() string {
	return xid.New().String()
}

// RequestID puts two identifiers into the request context and response headers:
// the external one from X-Request-ID (generated when the caller sent none)
// and an internal one in X-Int-Request-ID, unique per received request.
func RequestID() func(next http.Handler) http.Handler {
	return RequestIDWithOpts(RequestIDOpts{})
}

// RequestIDWithOpts is a more configurable version of RequestID.
func RequestIDWithOpts(opts RequestIDOpts) func(next http.Handler) http.Handler {
	genID, genInternalID := opts.GenerateID, opts.GenerateInternalID
	if genID == nil {
		genID = generateXID
	}
	if genInternalID == nil {
		genInternalID = generateXID
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(headerRequestID)
			if reqID == "" {
				reqID = genID()
			}
			intReqID := genInternalID()

			h := rw.Header()
			h.Set(headerRequestID, reqID)
			h.Set(headerInternalRequestID, intReqID)

			ctx := NewContextWithRequestID(r.Context(), reqID)
			next.ServeHTTP(rw, r.WithContext(NewContextWithInternalRequestID(ctx, intReqID)))
		})
	}
}
