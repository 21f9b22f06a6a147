/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-mlbroker/broker"
	"github.com/acronis/go-mlbroker/httpclient"
	"github.com/acronis/go-mlbroker/httpserver"
	"github.com/acronis/go-mlbroker/httpserver/middleware"
	"github.com/acronis/go-mlbroker/log/logtest"
	"github.com/acronis/go-mlbroker/testutil"
)

const (
	predictURL = "http://predict.local/predict"
	parserURL  = "http://parser.local/parse"
)

type testEnv struct {
	broker *broker.Broker
	router http.Handler
	logger *logtest.Recorder
}

func newTestEnv(t *testing.T, brokerCfg *broker.Config, sender broker.Sender) *testEnv {
	t.Helper()
	logger := logtest.NewRecorder()
	b, err := broker.NewWithOpts(brokerCfg, logger, broker.Opts{Sender: sender})
	require.NoError(t, err)
	fatalErr := make(chan error, 1)
	go b.Start(fatalErr)
	t.Cleanup(func() {
		require.NoError(t, b.Stop(false))
		testutil.RequireNoErrorInChannel(t, fatalErr)
	})

	h := NewHandler(&Config{
		Destinations: map[string]Destination{
			"predict": {URL: predictURL},
			"parser":  {URL: parserURL, Timeout: time.Second},
		},
		MaxRequestBodySize: 64,
		MaxWaitTimeout:     5 * time.Second,
	}, b)
	router := httpserver.NewRouter(httpserver.NewDefaultConfig(), logger, httpserver.Opts{
		ServiceNameInURL: ServiceNameInURL,
		ErrorDomain:      ErrorDomain,
		APIRoutes:        map[httpserver.APIVersion]httpserver.APIRoute{Version: h.Routes},
	})
	return &testEnv{broker: b, router: router, logger: logger}
}

func newTestBrokerConfig() *broker.Config {
	return &broker.Config{
		RateLimit:           100,
		PollBackoff:         5 * time.Millisecond,
		RequestTimeout:      5 * time.Second,
		MaxResponseBodySize: broker.DefaultMaxResponseBodySize,
		GracefulStopTimeout: time.Second,
		StatsInterval:       time.Second,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func echoSender() broker.SenderFunc {
	return func(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error) {
		return json.Marshal(map[string]interface{}{"destination": destination, "payload": payload})
	}
}

func TestHandler_ListDestinations(t *testing.T) {
	env := newTestEnv(t, newTestBrokerConfig(), echoSender())
	resp := env.do(http.MethodGet, "/api/mlbroker/v1/destinations", "")
	require.Equal(t, http.StatusOK, resp.Code)
	testutil.RequireStringJSONInRecorder(t, resp, `{"destinations":["parser","predict"]}`)
}

func TestHandler_SubmitRequest(t *testing.T) {
	t.Run("downstream response is returned as is", func(t *testing.T) {
		var gotRequestType, gotRequestID string
		sender := broker.SenderFunc(func(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error) {
			gotRequestType = httpclient.GetRequestTypeFromContext(ctx)
			gotRequestID = middleware.GetRequestIDFromContext(ctx)
			return echoSender()(ctx, destination, payload)
		})
		env := newTestEnv(t, newTestBrokerConfig(), sender)

		resp := env.do(http.MethodPost, "/api/mlbroker/v1/destinations/predict/requests", `{"text":"hello"}`)
		require.Equal(t, http.StatusOK, resp.Code)
		require.JSONEq(t, `{"destination":"`+predictURL+`","payload":{"text":"hello"}}`, resp.Body.String())
		require.Equal(t, "predict", gotRequestType)
		require.Equal(t, resp.Header().Get("X-Request-ID"), gotRequestID)

		entry, found := env.logger.FindEntryByFilter(func(e logtest.RecordedEntry) bool {
			return strings.HasPrefix(e.Text, "response completed")
		})
		require.True(t, found)
		field, found := entry.FindField("destination")
		require.True(t, found)
		require.Equal(t, "predict", string(field.Bytes))
		_, found = entry.FindField("job_id")
		require.True(t, found)
	})

	t.Run("destination timeout is applied", func(t *testing.T) {
		deadlines := make(map[string]time.Duration)
		sender := broker.SenderFunc(func(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error) {
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			deadlines[destination] = time.Until(deadline)
			return json.RawMessage(`{}`), nil
		})
		env := newTestEnv(t, newTestBrokerConfig(), sender)

		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/mlbroker/v1/destinations/parser/requests", `{}`).Code)
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/mlbroker/v1/destinations/predict/requests", `{}`).Code)
		require.LessOrEqual(t, deadlines[parserURL], time.Second)
		require.Greater(t, deadlines[predictURL], time.Second)
	})

	t.Run("upstream error is passed through", func(t *testing.T) {
		env := newTestEnv(t, newTestBrokerConfig(), broker.SenderFunc(
			func(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error) {
				return nil, &broker.UpstreamError{Destination: destination, StatusCode: http.StatusServiceUnavailable,
					Body: []byte(`{"detail":"model is loading"}`)}
			}))
		resp := env.do(http.MethodPost, "/api/mlbroker/v1/destinations/predict/requests", `{}`)
		require.Equal(t, http.StatusServiceUnavailable, resp.Code)
		require.Equal(t, "application/json", resp.Header().Get("Content-Type"))
		require.Equal(t, `{"detail":"model is loading"}`, resp.Body.String())
	})

	t.Run("non-json upstream error body", func(t *testing.T) {
		env := newTestEnv(t, newTestBrokerConfig(), broker.SenderFunc(
			func(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error) {
				return nil, &broker.UpstreamError{Destination: destination, StatusCode: http.StatusBadRequest,
					Body: []byte("bad input")}
			}))
		resp := env.do(http.MethodPost, "/api/mlbroker/v1/destinations/parser/requests", `{}`)
		require.Equal(t, http.StatusBadRequest, resp.Code)
		require.Equal(t, "text/plain; charset=utf-8", resp.Header().Get("Content-Type"))
		require.Equal(t, "bad input", resp.Body.String())
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name        string
			sendErr     error
			path        string
			body        string
			contentType string
			wantStatus  int
			wantCode    string
		}{
			{
				name:       "unknown destination",
				path:       "/api/mlbroker/v1/destinations/avatar/requests",
				body:       `{}`,
				wantStatus: http.StatusNotFound,
				wantCode:   ErrCodeDestinationNotFound,
			},
			{
				name:       "invalid timeout",
				path:       "/api/mlbroker/v1/destinations/predict/requests?timeout=-1s",
				body:       `{}`,
				wantStatus: http.StatusBadRequest,
				wantCode:   ErrCodeInvalidTimeout,
			},
			{
				name:       "empty body",
				path:       "/api/mlbroker/v1/destinations/predict/requests",
				wantStatus: http.StatusBadRequest,
				wantCode:   "badRequest",
			},
			{
				name:       "too large body",
				path:       "/api/mlbroker/v1/destinations/predict/requests",
				body:       `{"text":"` + strings.Repeat("a", 100) + `"}`,
				wantStatus: http.StatusRequestEntityTooLarge,
				wantCode:   "requestEntityTooLarge",
			},
			{
				name:        "unsupported content type",
				path:        "/api/mlbroker/v1/destinations/predict/requests",
				body:        `{}`,
				contentType: "text/xml",
				wantStatus:  http.StatusUnsupportedMediaType,
				wantCode:    "unsupportedMediaType",
			},
			{
				name:       "transport error",
				sendErr:    &broker.TransportError{Destination: predictURL, Err: errors.New("connection refused")},
				path:       "/api/mlbroker/v1/destinations/predict/requests",
				body:       `{}`,
				wantStatus: http.StatusBadGateway,
				wantCode:   ErrCodeDownstreamUnavailable,
			},
			{
				name:       "internal error",
				sendErr:    &broker.InternalError{Op: "decode response", Err: errors.New("invalid character")},
				path:       "/api/mlbroker/v1/destinations/predict/requests",
				body:       `{}`,
				wantStatus: http.StatusInternalServerError,
				wantCode:   "internalError",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				env := newTestEnv(t, newTestBrokerConfig(), broker.SenderFunc(
					func(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error) {
						if tt.sendErr != nil {
							return nil, tt.sendErr
						}
						return json.RawMessage(`{}`), nil
					}))
				req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
				if tt.contentType != "" {
					req.Header.Set("Content-Type", tt.contentType)
				}
				resp := httptest.NewRecorder()
				env.router.ServeHTTP(resp, req)
				testutil.RequireErrorInRecorder(t, resp, tt.wantStatus, ErrorDomain, tt.wantCode)
			})
		}
	})

	t.Run("wait timeout", func(t *testing.T) {
		env := newTestEnv(t, newTestBrokerConfig(), broker.SenderFunc(
			func(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error) {
				<-ctx.Done()
				return nil, &broker.TransportError{Destination: destination, Err: ctx.Err()}
			}))
		resp := env.do(http.MethodPost, "/api/mlbroker/v1/destinations/predict/requests?timeout=50ms", `{}`)
		testutil.RequireErrorInRecorder(t, resp, http.StatusGatewayTimeout, ErrorDomain, ErrCodeTimeout)
	})

	t.Run("overloaded", func(t *testing.T) {
		sendStarted := make(chan struct{}, 1)
		release := make(chan struct{})
		cfg := newTestBrokerConfig()
		cfg.MaxQueueSize = 1
		env := newTestEnv(t, cfg, broker.SenderFunc(
			func(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error) {
				select {
				case sendStarted <- struct{}{}:
				default:
				}
				select {
				case <-release:
				case <-ctx.Done():
				}
				return json.RawMessage(`{}`), nil
			}))
		defer close(release)

		_, err := env.broker.Submit(context.Background(), predictURL, 1)
		require.NoError(t, err)
		<-sendStarted
		_, err = env.broker.Submit(context.Background(), predictURL, 2)
		require.NoError(t, err)

		resp := env.do(http.MethodPost, "/api/mlbroker/v1/destinations/predict/requests", `{}`)
		testutil.RequireErrorInRecorder(t, resp, http.StatusServiceUnavailable, ErrorDomain, ErrCodeOverloaded)
	})

	t.Run("broker is stopped", func(t *testing.T) {
		env := newTestEnv(t, newTestBrokerConfig(), echoSender())
		require.NoError(t, env.broker.Stop(true))
		resp := env.do(http.MethodPost, "/api/mlbroker/v1/destinations/predict/requests", `{}`)
		testutil.RequireErrorInRecorder(t, resp, http.StatusServiceUnavailable, ErrorDomain, ErrCodeUnavailable)
	})
}
