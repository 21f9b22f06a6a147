/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRequestJSON(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	tests := []struct {
		name                  string
		contentType           string
		body                  string
		maxBodySize           uint64
		disallowUnknownFields bool
		wantPerson            person
		wantStatus            int
	}{
		{name: "ok", contentType: "application/json", body: `{"name":"Bob","age":12}`, wantPerson: person{"Bob", 12}},
		{name: "ok, no content type", body: `{"name":"Bob"}`, wantPerson: person{Name: "Bob"}},
		{name: "ok, charset", contentType: "application/json; charset=utf-8", body: `{"age":1}`, wantPerson: person{Age: 1}},
		{name: "unsupported content type", contentType: "text/plain", body: `{}`, wantStatus: http.StatusUnsupportedMediaType},
		{name: "invalid content type", contentType: "application/json; =", body: `{}`, wantStatus: http.StatusUnsupportedMediaType},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest},
		{name: "unexpected eof", body: `{"name":`, wantStatus: http.StatusBadRequest},
		{name: "syntax error", body: `{"name" "Bob"}`, wantStatus: http.StatusBadRequest},
		{name: "type mismatch", body: `{"age":"old"}`, wantStatus: http.StatusBadRequest},
		{name: "two objects", body: `{"age":1}{"age":2}`, wantStatus: http.StatusBadRequest},
		{name: "unknown field allowed", body: `{"age":1,"x":2}`, wantPerson: person{Age: 1}},
		{name: "unknown field disallowed", body: `{"age":1,"x":2}`, disallowUnknownFields: true, wantStatus: http.StatusBadRequest},
		{name: "too large", body: `{"name":"` + strings.Repeat("a", 100) + `"}`, maxBodySize: 10,
			wantStatus: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.maxBodySize != 0 {
				SetRequestMaxBodySize(httptest.NewRecorder(), req, tt.maxBodySize)
			}

			var p person
			err := DecodeRequestJSONStrict(req, &p, tt.disallowUnknownFields)
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				require.Equal(t, tt.wantPerson, p)
				return
			}
			var reqErr *MalformedRequestError
			require.True(t, errors.As(err, &reqErr), "unexpected error: %v", err)
			require.Equal(t, tt.wantStatus, reqErr.HTTPStatusCode)
			require.NotEmpty(t, reqErr.Message)
		})
	}
}

func TestDecodeRequestJSON_RawMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(` {"prompt": "hi", "n": [1, 2]} `))
	var payload json.RawMessage
	require.NoError(t, DecodeRequestJSON(req, &payload))
	require.JSONEq(t, `{"prompt":"hi","n":[1,2]}`, string(payload))
}

func TestNewTooLargeMalformedRequestError(t *testing.T) {
	err := NewTooLargeMalformedRequestError(1024 * 1024)
	require.Equal(t, http.StatusRequestEntityTooLarge, err.HTTPStatusCode)
	require.Equal(t, "Request body must not be larger than 1M.", err.Error())
}
