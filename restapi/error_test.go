/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeForStatus(t *testing.T) {
	tests := []struct {
		httpCode    int
		wantErrCode string
	}{
		{http.StatusInternalServerError, "internalError"},
		{http.StatusNotFound, "notFound"},
		{http.StatusBadRequest, "badRequest"},
		{http.StatusMethodNotAllowed, "methodNotAllowed"},
		{http.StatusRequestEntityTooLarge, "requestEntityTooLarge"},
		{http.StatusUnsupportedMediaType, "unsupportedMediaType"},
		{http.StatusGatewayTimeout, "gatewayTimeout"},
	}
	for _, tt := range tests {
		t.Run(tt.wantErrCode, func(t *testing.T) {
			assert.Equal(t, tt.wantErrCode, ErrorCodeForStatus(tt.httpCode))
		})
	}
}

func TestError_AddContext(t *testing.T) {
	err := NewError("MLBroker", "destinationNotFound", "Destination not found.").
		AddContext("destination", "predict").
		AddContext("attempt", 1)
	require.Equal(t, map[string]interface{}{"destination": "predict", "attempt": 1}, err.Context)
}

func TestError_Error(t *testing.T) {
	assert.Equal(t, "MLBroker: overloaded: Too many queued requests.",
		NewError("MLBroker", "overloaded", "Too many queued requests.").Error())
	assert.Equal(t, "MLBroker: timeout", NewError("MLBroker", "timeout", "").Error())
}
