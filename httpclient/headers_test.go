/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-mlbroker/httpserver/middleware"
)

func TestRequestIDRoundTripper(t *testing.T) {
	var gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get("X-Request-ID")
		rw.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	doRequest := func(t *testing.T, rt http.RoundTripper, ctx context.Context, header string) {
		t.Helper()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL, http.NoBody)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set("X-Request-ID", header)
		}
		resp, err := (&http.Client{Transport: rt}).Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	t.Run("from context", func(t *testing.T) {
		ctx := middleware.NewContextWithRequestID(context.Background(), "12345")
		doRequest(t, NewRequestIDRoundTripper(http.DefaultTransport), ctx, "")
		require.Equal(t, "12345", gotRequestID)
	})

	t.Run("header is not overridden", func(t *testing.T) {
		ctx := middleware.NewContextWithRequestID(context.Background(), "12345")
		doRequest(t, NewRequestIDRoundTripper(http.DefaultTransport), ctx, "existing")
		require.Equal(t, "existing", gotRequestID)
	})

	t.Run("no request id", func(t *testing.T) {
		doRequest(t, NewRequestIDRoundTripper(http.DefaultTransport), context.Background(), "")
		require.Empty(t, gotRequestID)
	})

	t.Run("custom provider", func(t *testing.T) {
		rt := NewRequestIDRoundTripperWithOpts(http.DefaultTransport, RequestIDRoundTripperOpts{
			RequestIDProvider: func(ctx context.Context) string { return "custom-id" },
		})
		doRequest(t, rt, context.Background(), "")
		require.Equal(t, "custom-id", gotRequestID)
	})
}

func TestUserAgentRoundTripper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("X-User-Agent", r.Header.Get("User-Agent"))
		rw.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	tests := []struct {
		name          string
		reqUserAgent  string
		wantUserAgent string
	}{
		{name: "empty", reqUserAgent: "", wantUserAgent: "mlbroker/1.0"},
		{name: "existing", reqUserAgent: "frontend/0.1", wantUserAgent: "frontend/0.1 mlbroker/1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &http.Client{Transport: NewUserAgentRoundTripper(http.DefaultTransport, "mlbroker/1.0")}
			req, err := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
			require.NoError(t, err)
			if tt.reqUserAgent != "" {
				req.Header.Set("User-Agent", tt.reqUserAgent)
			}
			resp, err := client.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			require.Equal(t, tt.wantUserAgent, resp.Header.Get("X-User-Agent"))
			require.Equal(t, tt.reqUserAgent, req.Header.Get("User-Agent"), "original request should not be modified")
		})
	}
}
