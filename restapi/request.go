/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"code.cloudfoundry.org/bytefmt"
)

// MalformedRequestError describes why a request was rejected and which status to respond with.
type MalformedRequestError struct {
	HTTPStatusCode int
	Message        string
}

func (e *MalformedRequestError) Error() string {
	return e.Message
}

func badRequest(format string, args ...interface{}) *MalformedRequestError {
	return &MalformedRequestError{HTTPStatusCode: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NewTooLargeMalformedRequestError creates a 413 MalformedRequestError.
func NewTooLargeMalformedRequestError(maxSizeBytes uint64) *MalformedRequestError {
	return &MalformedRequestError{
		HTTPStatusCode: http.StatusRequestEntityTooLarge,
		Message:        fmt.Sprintf("Request body must not be larger than %s.", bytefmt.ByteSize(maxSizeBytes)),
	}
}

// SetRequestMaxBodySize limits reading of the request body.
// Decoding past the limit fails with a 413 MalformedRequestError.
func SetRequestMaxBodySize(rw http.ResponseWriter, r *http.Request, maxSizeBytes uint64) {
	r.Body = http.MaxBytesReader(rw, r.Body, int64(maxSizeBytes)) //nolint:gosec // limits are configured in megabytes
}

// DecodeRequestJSON decodes the request body as a single JSON value.
// Content-Type, if present, must be application/json.
// Client mistakes are reported as *MalformedRequestError.
func DecodeRequestJSON(r *http.Request, dst interface{}) error {
	return DecodeRequestJSONStrict(r, dst, false)
}

// DecodeRequestJSONStrict is DecodeRequestJSON that optionally rejects unknown object fields.
func DecodeRequestJSONStrict(r *http.Request, dst interface{}, disallowUnknownFields bool) error {
	if err := checkJSONContentType(r.Header.Get("Content-Type")); err != nil {
		return err
	}
	dec := json.NewDecoder(r.Body)
	if disallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return decodeErrorToMalformed(err)
	}
	if dec.More() {
		return badRequest("Request body must only contain a single JSON value.")
	}
	return nil
}

func checkJSONContentType(header string) error {
	if header == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return &MalformedRequestError{http.StatusUnsupportedMediaType, fmt.Sprintf("Failed to parse Content-Type header: %s.", err)}
	}
	if mediaType != ContentTypeAppJSON {
		return &MalformedRequestError{http.StatusUnsupportedMediaType, fmt.Sprintf("Content-Type %q is not supported.", mediaType)}
	}
	return nil
}

func decodeErrorToMalformed(err error) error {
	var (
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		maxBytesErr *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return badRequest("Request body must not be empty.")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return badRequest("Request body contains badly-formed JSON.")
	case errors.As(err, &syntaxErr):
		return badRequest("Request body contains badly-formed JSON (at position %d).", syntaxErr.Offset)
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return badRequest("Request body contains an invalid value for the %q field (at position %d).", typeErr.Field, typeErr.Offset)
	case errors.As(err, &typeErr):
		return badRequest("Request body contains an invalid value of type %q for the field of type %s.", typeErr.Value, typeErr.Type)
	case errors.As(err, &maxBytesErr):
		return NewTooLargeMalformedRequestError(uint64(maxBytesErr.Limit)) //nolint:gosec // never negative
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return badRequest("Request body contains unknown fields.")
	}
	return err
}
