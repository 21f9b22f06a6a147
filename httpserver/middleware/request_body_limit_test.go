/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-mlbroker/restapi"
	"github.com/acronis/go-mlbroker/testutil"
)

func TestRequestBodyLimit(t *testing.T) {
	const maxSize = 16

	next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var payload json.RawMessage
		if err := restapi.DecodeRequestJSON(r, &payload); err != nil {
			restapi.RespondMalformedRequestOrInternalError(rw, testErrDomain, err, nil)
			return
		}
		restapi.RespondRawJSON(rw, http.StatusOK, payload, nil)
	})
	h := RequestBodyLimit(maxSize, testErrDomain)(next)

	t.Run("body within limit", func(t *testing.T) {
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, `{"a":1}`, resp.Body.String())
	})

	t.Run("content length exceeds limit", func(t *testing.T) {
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"`+strings.Repeat("x", 32)+`"}`)))
		testutil.RequireErrorInRecorder(t, resp, http.StatusRequestEntityTooLarge, testErrDomain, "requestEntityTooLarge")
	})

	t.Run("actual body exceeds limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"`+strings.Repeat("x", 32)+`"}`))
		req.ContentLength = -1
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		testutil.RequireErrorInRecorder(t, resp, http.StatusRequestEntityTooLarge, testErrDomain, "requestEntityTooLarge")
	})
}
