/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package broker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultWindow is the length of the trailing window the rate limit is applied to.
const DefaultWindow = time.Minute

// SlidingWindowLimiter allows no more than Limit events within any trailing window of the given length.
// It keeps exact timestamps of the recent events (not an approximation).
// SlidingWindowLimiter is not safe for concurrent use, it's expected to be used by a single worker goroutine.
type SlidingWindowLimiter struct {
	limit      int
	window     time.Duration
	backOff    backoff.BackOff
	timestamps []time.Time
	now        func() time.Time

	// OnLimitReached, if set, is called every time the limiter has to wait for a free slot.
	OnLimitReached func(oldest time.Time)
}

// NewSlidingWindowLimiter creates a new SlidingWindowLimiter.
// When there are no free slots, Wait polls the window again after pollBackoff.
func NewSlidingWindowLimiter(limit int, window, pollBackoff time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		limit:      limit,
		window:     window,
		backOff:    backoff.NewConstantBackOff(pollBackoff),
		timestamps: make([]time.Time, 0, limit),
		now:        time.Now,
	}
}

// Wait blocks until an event is allowed and then records it.
// It returns ctx.Err() if the context is done before a slot is freed, no event is recorded in this case.
func (l *SlidingWindowLimiter) Wait(ctx context.Context) error {
	l.backOff.Reset()
	for {
		now := l.now()
		l.evict(now)
		if len(l.timestamps) < l.limit {
			l.timestamps = append(l.timestamps, now)
			return nil
		}
		if l.OnLimitReached != nil {
			l.OnLimitReached(l.timestamps[0])
		}
		t := time.NewTimer(l.backOff.NextBackOff())
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

// Len returns the number of events within the current window.
func (l *SlidingWindowLimiter) Len() int {
	l.evict(l.now())
	return len(l.timestamps)
}

func (l *SlidingWindowLimiter) evict(now time.Time) {
	i := 0
	for i < len(l.timestamps) && now.Sub(l.timestamps[i]) >= l.window {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(l.timestamps, l.timestamps[i:])
	l.timestamps = l.timestamps[:n]
}
