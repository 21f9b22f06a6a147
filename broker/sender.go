/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sender performs a single downstream request.
// Implementations should return *TransportError when no response was received and
// *UpstreamError when the destination responded with a non-2xx status code.
type Sender interface {
	Send(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error)
}

// SenderFunc is an adapter to allow the use of ordinary functions as Sender.
type SenderFunc func(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error)

// Send calls f(ctx, destination, payload).
func (f SenderFunc) Send(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error) {
	return f(ctx, destination, payload)
}

var errResponseBodyTooLarge = errors.New("response body is too large")

// HTTPSender sends payload as JSON in the body of HTTP POST request and expects a JSON response.
type HTTPSender struct {
	client              *http.Client
	maxResponseBodySize int64
}

// NewHTTPSender creates a new HTTPSender.
// Responses with bodies larger than maxResponseBodySize are treated as internal errors.
// The client is copied with redirects disabled, so a 3xx response is an UpstreamError
// and every job makes exactly one request.
func NewHTTPSender(client *http.Client, maxResponseBodySize uint64) *HTTPSender {
	if client == nil {
		client = http.DefaultClient
	}
	noRedirects := *client
	noRedirects.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	client = &noRedirects
	if maxResponseBodySize == 0 {
		maxResponseBodySize = DefaultMaxResponseBodySize
	}
	return &HTTPSender{client: client, maxResponseBodySize: int64(maxResponseBodySize)} //nolint:gosec // reasonable value
}

// Send implements Sender interface.
func (s *HTTPSender) Send(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, &InternalError{Op: "marshal payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &TransportError{Destination: destination, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{Destination: destination, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := s.readBody(resp.Body)
	if err != nil {
		if errors.Is(err, errResponseBodyTooLarge) {
			return nil, &InternalError{Op: "read response", Err: err}
		}
		return nil, &TransportError{Destination: destination, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &UpstreamError{Destination: destination, StatusCode: resp.StatusCode, Body: respBody}
	}

	if !json.Valid(respBody) {
		return nil, &InternalError{Op: "decode response", Err: fmt.Errorf("%s responded with invalid JSON", destination)}
	}
	return respBody, nil
}

func (s *HTTPSender) readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, s.maxResponseBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.maxResponseBodySize {
		return nil, fmt.Errorf("%w (limit is %d bytes)", errResponseBodyTooLarge, s.maxResponseBodySize)
	}
	return body, nil
}
