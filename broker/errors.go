/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package broker

import (
	"errors"
	"fmt"
)

// ErrStopped is returned (or set as a job outcome) when the broker doesn't accept or can't process jobs
// because it's being stopped.
var ErrStopped = errors.New("broker is stopped")

// ErrOverloaded is returned by Submit when the queue already holds the maximum allowed number of jobs.
var ErrOverloaded = errors.New("broker queue is full")

// ErrAlreadyStarted is sent to the fatal error channel when Start is called more than once.
var ErrAlreadyStarted = errors.New("broker is already started")

// ErrStopTimeoutExceeded is returned by Stop when graceful draining of the queue takes longer than allowed.
var ErrStopTimeoutExceeded = errors.New("broker graceful stop timeout exceeded")

// TransportError represents an error that occurs when the destination could not be reached
// (DNS resolution, connection, timeout) and no response was received.
type TransportError struct {
	Destination string
	Err         error
}

// Error returns a string representation of TransportError.
func (e *TransportError) Error() string {
	return fmt.Sprintf("send request to %s: %v", e.Destination, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError represents an error that occurs when the destination responded with a non-2xx status code.
type UpstreamError struct {
	Destination string
	StatusCode  int
	Body        []byte
}

// Error returns a string representation of UpstreamError.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s responded with status code %d", e.Destination, e.StatusCode)
}

// InternalError represents an unexpected fault inside the broker itself
// (e.g. payload serialization failure or a panic in a sender).
type InternalError struct {
	Op  string
	Err error
}

// Error returns a string representation of InternalError.
func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *InternalError) Unwrap() error {
	return e.Err
}

// outcomeOf classifies job error for metrics, logs and the journal.
func outcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeCompleted
	}
	var upstreamErr *UpstreamError
	var transportErr *TransportError
	switch {
	case errors.Is(err, ErrStopped):
		return OutcomeStopped
	case errors.As(err, &upstreamErr):
		return OutcomeUpstreamError
	case errors.As(err, &transportErr):
		return OutcomeTransportError
	}
	return OutcomeInternalError
}
