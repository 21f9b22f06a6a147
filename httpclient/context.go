/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "context"

type requestTypeKey struct{}

// NewContextWithRequestType returns a context whose outgoing requests are logged and measured
// under the given type (e.g. a destination name) instead of the client default one.
func NewContextWithRequestType(ctx context.Context, requestType string) context.Context {
	return context.WithValue(ctx, requestTypeKey{}, requestType)
}

// GetRequestTypeFromContext returns the request type set by NewContextWithRequestType.
func GetRequestTypeFromContext(ctx context.Context) string {
	requestType, _ := ctx.Value(requestTypeKey{}).(string)
	return requestType
}
