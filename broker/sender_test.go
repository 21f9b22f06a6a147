/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package broker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPSender_Send(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		respBody    string
		maxBodySize uint64
		wantResult  string
		checkErr    func(t *testing.T, err error)
	}{
		{
			name:       "ok",
			status:     http.StatusOK,
			respBody:   `{"answer":42}`,
			wantResult: `{"answer":42}`,
		},
		{
			name:       "created",
			status:     http.StatusCreated,
			respBody:   `[1,2,3]`,
			wantResult: `[1,2,3]`,
		},
		{
			name:     "non-2xx status code",
			status:   http.StatusTooManyRequests,
			respBody: `{"error":"slow down"}`,
			checkErr: func(t *testing.T, err error) {
				var upstreamErr *UpstreamError
				require.ErrorAs(t, err, &upstreamErr)
				require.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
				require.Equal(t, `{"error":"slow down"}`, string(upstreamErr.Body))
				require.Contains(t, upstreamErr.Error(), "responded with status code 429")
			},
		},
		{
			name:     "non-json body with error status code",
			status:   http.StatusBadGateway,
			respBody: `<html>bad gateway</html>`,
			checkErr: func(t *testing.T, err error) {
				var upstreamErr *UpstreamError
				require.ErrorAs(t, err, &upstreamErr)
				require.Equal(t, `<html>bad gateway</html>`, string(upstreamErr.Body))
			},
		},
		{
			name:     "invalid json in successful response",
			status:   http.StatusOK,
			respBody: `not json`,
			checkErr: func(t *testing.T, err error) {
				var internalErr *InternalError
				require.ErrorAs(t, err, &internalErr)
				require.Equal(t, "decode response", internalErr.Op)
			},
		},
		{
			name:        "too large response",
			status:      http.StatusOK,
			respBody:    `{"data":"` + strings.Repeat("x", 100) + `"}`,
			maxBodySize: 50,
			checkErr: func(t *testing.T, err error) {
				var internalErr *InternalError
				require.ErrorAs(t, err, &internalErr)
				require.ErrorIs(t, err, errResponseBodyTooLarge)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotReqBody []byte
			var gotContentType string
			server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
				gotContentType = r.Header.Get("Content-Type")
				gotReqBody, _ = io.ReadAll(r.Body)
				rw.WriteHeader(tt.status)
				_, _ = rw.Write([]byte(tt.respBody))
			}))
			defer server.Close()

			sender := NewHTTPSender(server.Client(), tt.maxBodySize)
			res, err := sender.Send(context.Background(), server.URL, map[string]interface{}{"question": "why?"})
			if tt.checkErr != nil {
				require.Error(t, err)
				tt.checkErr(t, err)
			} else {
				require.NoError(t, err)
				require.JSONEq(t, tt.wantResult, string(res))
			}
			require.Equal(t, "application/json", gotContentType)
			require.JSONEq(t, `{"question":"why?"}`, string(gotReqBody))
		})
	}
}

func TestHTTPSender_SendRawPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = rw.Write(body)
	}))
	defer server.Close()

	res, err := NewHTTPSender(server.Client(), 0).Send(
		context.Background(), server.URL, json.RawMessage(`{"already":"encoded"}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"already":"encoded"}`, string(res))
}

func TestHTTPSender_SendInvalidDestination(t *testing.T) {
	_, err := NewHTTPSender(nil, 0).Send(context.Background(), "://bad-url", "payload")
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, "://bad-url", transportErr.Destination)
}

func TestHTTPSender_SendDoesNotFollowRedirects(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/predict" {
			http.Redirect(rw, r, "/other", http.StatusFound)
			return
		}
		_, _ = rw.Write([]byte(`{"from":"other"}`))
	}))
	defer server.Close()

	client := server.Client()
	res, err := NewHTTPSender(client, 0).Send(context.Background(), server.URL+"/predict", "payload")
	require.Nil(t, res)
	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	require.Equal(t, http.StatusFound, upstreamErr.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"POST /predict"}, calls)
	require.Nil(t, client.CheckRedirect, "caller's client must not be modified")
}
