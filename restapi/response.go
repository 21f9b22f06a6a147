/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/acronis/go-mlbroker/log"
)

// ContentTypeAppJSON is the MIME type of JSON.
const ContentTypeAppJSON = "application/json"

// ErrorResponseData is the body of a failed response.
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

func (e *ErrorResponseData) Error() string {
	return fmt.Sprintf("HTTP error occurs: %v", e.Err)
}

// marshalJSON is json.Marshal without HTML escaping, so downstream payloads are returned unchanged.
func marshalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// RespondJSON responds with 200 and data encoded as JSON.
func RespondJSON(rw http.ResponseWriter, data interface{}, logger log.FieldLogger) {
	RespondCodeAndJSON(rw, http.StatusOK, data, logger)
}

// RespondCodeAndJSON responds with statusCode and data encoded as JSON.
// Nil data gives an empty body.
func RespondCodeAndJSON(rw http.ResponseWriter, statusCode int, data interface{}, logger log.FieldLogger) {
	if data == nil {
		rw.WriteHeader(statusCode)
		return
	}
	body, err := marshalJSON(data)
	if err != nil {
		logError(logger, "error while marshaling json for response body", err)
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	RespondRawJSON(rw, statusCode, body, logger)
}

// RespondRawJSON responds with statusCode and the already encoded body.
// Content-Type set by the caller is kept. An empty body is sent without Content-Type.
func RespondRawJSON(rw http.ResponseWriter, statusCode int, body []byte, logger log.FieldLogger) {
	if len(body) == 0 {
		rw.WriteHeader(statusCode)
		return
	}
	if rw.Header().Get("Content-Type") == "" {
		rw.Header().Set("Content-Type", ContentTypeAppJSON)
	}
	rw.WriteHeader(statusCode)
	if _, err := rw.Write(body); err != nil {
		logError(logger, "error while writing response body", err)
	}
}

// RespondError responds with httpStatusCode and the error envelope.
// The error is logged and counted in the response errors metric.
func RespondError(rw http.ResponseWriter, httpStatusCode int, err *Error, logger log.FieldLogger) {
	if logger != nil {
		logger.Error("error in response", errorLogFields(err)...)
	}
	countResponseError(err)
	RespondCodeAndJSON(rw, httpStatusCode, ErrorResponseData{err}, logger)
}

// RespondInternalError responds with 500 and the internalError envelope.
func RespondInternalError(rw http.ResponseWriter, domain string, logger log.FieldLogger) {
	RespondError(rw, http.StatusInternalServerError, NewInternalError(domain), logger)
}

// RespondMalformedRequestError responds with the status and message of reqErr.
func RespondMalformedRequestError(rw http.ResponseWriter, domain string, reqErr *MalformedRequestError, logger log.FieldLogger) {
	RespondError(rw, reqErr.HTTPStatusCode,
		NewError(domain, ErrorCodeForStatus(reqErr.HTTPStatusCode), reqErr.Message), logger)
}

// RespondMalformedRequestOrInternalError responds with RespondMalformedRequestError
// if err is *MalformedRequestError and with RespondInternalError otherwise.
func RespondMalformedRequestOrInternalError(rw http.ResponseWriter, domain string, err error, logger log.FieldLogger) {
	var reqErr *MalformedRequestError
	if errors.As(err, &reqErr) {
		RespondMalformedRequestError(rw, domain, reqErr, logger)
		return
	}
	logError(logger, "unexpected error while handling request", err)
	RespondInternalError(rw, domain, logger)
}

func errorLogFields(err *Error) []log.Field {
	fields := []log.Field{log.String("error_code", err.Code), log.String("error_message", err.Message)}
	if len(err.Context) == 0 {
		return fields
	}
	pairs := make([]string, 0, len(err.Context))
	for k, v := range err.Context {
		pairs = append(pairs, fmt.Sprintf("%s: %v", k, v))
	}
	sort.Strings(pairs)
	return append(fields, log.Strings("error_context", pairs))
}

func logError(logger log.FieldLogger, msg string, err error) {
	if logger != nil {
		logger.Error(msg, log.Error(err))
	}
}
