/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package api

// ErrorDomain is the domain of errors returned by the broker HTTP API.
const ErrorDomain = "MLBroker"

// Error codes.
const (
	ErrCodeDestinationNotFound   = "destinationNotFound"
	ErrCodeInvalidTimeout        = "invalidTimeout"
	ErrCodeDownstreamUnavailable = "downstreamUnavailable"
	ErrCodeTimeout               = "timeout"
	ErrCodeOverloaded            = "overloaded"
	ErrCodeUnavailable           = "unavailable"
)

// Error messages.
const (
	ErrMessageDestinationNotFound   = "Destination not found."
	ErrMessageInvalidTimeout        = "Timeout should be a positive duration (e.g. 30s)."
	ErrMessageDownstreamUnavailable = "Downstream service is unavailable."
	ErrMessageTimeout               = "Request was not processed in time."
	ErrMessageOverloaded            = "Too many requests are waiting in the queue."
	ErrMessageUnavailable           = "Service is shutting down."
)
