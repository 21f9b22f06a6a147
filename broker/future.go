/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package broker

import (
	"context"
	"encoding/json"
	"sync"
)

// Future is a handle of a submitted job.
// It's resolved exactly once, by the broker, with either the downstream response or an error.
type Future struct {
	jobID string
	done  chan struct{}
	once  sync.Once
	res   json.RawMessage
	err   error
}

func newFuture(jobID string) *Future {
	return &Future{jobID: jobID, done: make(chan struct{})}
}

// JobID returns an identifier of the job the Future belongs to.
func (f *Future) JobID() string {
	return f.jobID
}

// Done returns a channel that's closed when the Future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the Future is resolved or the passed context is done.
// It may be called many times, and it always returns the same outcome once the Future is resolved.
// Cancellation of ctx doesn't cancel the job itself, it only stops waiting.
func (f *Future) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-f.done:
		return f.res, f.err
	default:
	}
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve sets the outcome of the job. Only the first call has effect, it returns false for the others.
func (f *Future) resolve(res json.RawMessage, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.res, f.err = res, err
		close(f.done)
		resolved = true
	})
	return resolved
}
