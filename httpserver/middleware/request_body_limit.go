/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/acronis/go-mlbroker/restapi"
)

// RequestBodyLimit rejects requests with bodies larger than maxBytes with 413.
// Requests declaring a too large Content-Length are rejected before the handler runs,
// others fail on reading past the limit.
func RequestBodyLimit(maxBytes uint64, errDomain string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if r.ContentLength > 0 && uint64(r.ContentLength) > maxBytes {
				restapi.RespondMalformedRequestError(rw, errDomain,
					restapi.NewTooLargeMalformedRequestError(maxBytes), GetLoggerFromContext(r.Context()))
				return
			}
			restapi.SetRequestMaxBodySize(rw, r, maxBytes)
			next.ServeHTTP(rw, r)
		})
	}
}
