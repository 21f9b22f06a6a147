/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"strings"

	"github.com/stretchr/testify/require"
)

// RequireNoErrorInChannel asserts that a buffered error channel (e.g. fatal errors of service.Unit) is empty.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	select {
	case err := <-c:
		require.NoError(t, err, msgAndArgs...)
	default:
	}
}

// RequireErrorIsAny asserts that errors.Is(err, target) holds for at least one of targets.
func RequireErrorIsAny(t require.TestingT, err error, targets []error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return
		}
	}
	require.Fail(t, "no target error in the chain\n"+
		"targets: "+joinErrors(targets, "; ")+"\n"+
		"chain:   "+joinErrors(unwrapChain(err), " -> "), msgAndArgs...)
}

func unwrapChain(err error) []error {
	var chain []error
	for ; err != nil; err = errors.Unwrap(err) {
		chain = append(chain, err)
	}
	return chain
}

func joinErrors(errs []error, sep string) string {
	texts := make([]string, len(errs))
	for i, err := range errs {
		texts[i] = `"` + err.Error() + `"`
	}
	return strings.Join(texts, sep)
}
