/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const queueCompactThreshold = 1024

type job struct {
	id          string
	destination string
	payload     interface{}
	timeout     time.Duration
	ctx         context.Context // Values only, cancellation is detached.
	queuedAt    time.Time
	future      *Future
}

func (j *job) resolve(res json.RawMessage, err error) bool {
	return j.future.resolve(res, err)
}

// queue is a FIFO queue of jobs. It's unbounded when maxSize is 0.
// Push never blocks, Pop blocks until there is a job, the queue is closed and empty, or ctx is done.
type queue struct {
	mu      sync.Mutex
	items   []*job
	head    int
	closed  bool
	notify  chan struct{}
	maxSize int
	size    atomic.Int64
}

func newQueue(maxSize int) *queue {
	return &queue{notify: make(chan struct{}, 1), maxSize: maxSize}
}

func (q *queue) Push(j *job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrStopped
	}
	if q.maxSize > 0 && len(q.items)-q.head >= q.maxSize {
		q.mu.Unlock()
		return ErrOverloaded
	}
	q.items = append(q.items, j)
	q.size.Inc()
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop returns the oldest job. It returns ErrStopped when the queue is closed and has no jobs left.
func (q *queue) Pop(ctx context.Context) (*job, error) {
	for {
		q.mu.Lock()
		if q.head < len(q.items) {
			j := q.items[q.head]
			q.items[q.head] = nil
			q.head++
			switch {
			case q.head == len(q.items):
				q.items = q.items[:0]
				q.head = 0
			case q.head >= queueCompactThreshold && q.head*2 >= len(q.items):
				n := copy(q.items, q.items[q.head:])
				clear(q.items[n:])
				q.items = q.items[:n]
				q.head = 0
			}
			q.size.Dec()
			q.mu.Unlock()
			return j, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, ErrStopped
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close stops admission of new jobs. Already queued jobs may still be popped.
func (q *queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns all queued jobs.
func (q *queue) Drain() []*job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := make([]*job, len(q.items)-q.head)
	copy(jobs, q.items[q.head:])
	q.items = nil
	q.head = 0
	q.size.Store(0)
	return jobs
}

func (q *queue) Len() int {
	return int(q.size.Load())
}
