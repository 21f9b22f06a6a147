/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/acronis/go-mlbroker/log"
	"github.com/acronis/go-mlbroker/restapi"
)

// RecoveryOpts represents options for the Recovery middleware.
type RecoveryOpts struct {
	// NoStack disables logging of the panicking goroutine stack.
	NoStack bool
}

// Recovery turns a panic in the next handler into a logged error and a 500 response in the API error format.
func Recovery(errDomain string) func(next http.Handler) http.Handler {
	return RecoveryWithOpts(errDomain, RecoveryOpts{})
}

// RecoveryWithOpts is a more configurable version of Recovery.
func RecoveryWithOpts(errDomain string, opts RecoveryOpts) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					handlePanic(rw, r, p, errDomain, opts)
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

func handlePanic(rw http.ResponseWriter, r *http.Request, p interface{}, errDomain string, opts RecoveryOpts) {
	logger := GetLoggerFromContext(r.Context())

	// http.ErrAbortHandler must reach net/http to abort the response.
	if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
		if logger != nil {
			logger.Warn("request has been aborted", log.Error(err))
		}
		panic(p)
	}

	if logger != nil {
		var fields []log.Field
		if !opts.NoStack {
			fields = append(fields, log.Stack())
		}
		logger.Error(fmt.Sprintf("Panic: %+v", p), fields...)
	}
	restapi.RespondError(rw, http.StatusInternalServerError, restapi.NewInternalError(errDomain), logger)
}
