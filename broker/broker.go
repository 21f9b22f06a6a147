/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/acronis/go-mlbroker/log"
	"github.com/acronis/go-mlbroker/service"
)

const rateLimitWarningInterval = 10 * time.Second

// Opts contains optional parameters for constructing Broker.
type Opts struct {
	// Sender performs downstream requests. HTTPSender over http.DefaultClient is used by default.
	Sender Sender

	// Journal, if set, receives a record about every resolved job.
	Journal Journal

	// MetricsNamespace is a namespace for Prometheus metrics.
	MetricsNamespace string

	// Window is the length of the rate limiting window. DefaultWindow (1 minute) is used by default.
	Window time.Duration
}

// SubmitOpts contains optional parameters of a single submission.
type SubmitOpts struct {
	// Timeout overrides the configured request timeout for this job.
	Timeout time.Duration
}

var _ service.Unit = (*Broker)(nil)
var _ service.MetricsRegisterer = (*Broker)(nil)

// Broker accepts jobs from many goroutines and sends them to the downstream one at a time,
// in submission order, without exceeding the configured rate limit.
type Broker struct {
	logger              log.FieldLogger
	sender              Sender
	journal             Journal
	queue               *queue
	limiter             *SlidingWindowLimiter
	metrics             *PrometheusMetrics
	requestTimeout      time.Duration
	gracefulStopTimeout time.Duration

	started  atomic.Bool
	stopped  atomic.Bool
	done     chan struct{}
	stopMu   sync.Mutex
	abortCtx context.Context
	abort    context.CancelFunc

	// Accessed by the worker goroutine only.
	currentJob         *job
	currentJobLimited  bool
	rateLimitWarnLimit rate.Sometimes
}

// New creates a new Broker with default options.
func New(cfg *Config, logger log.FieldLogger) (*Broker, error) {
	return NewWithOpts(cfg, logger, Opts{})
}

// NewWithOpts creates a new Broker with the given options.
func NewWithOpts(cfg *Config, logger log.FieldLogger, opts Opts) (*Broker, error) {
	if cfg.RateLimit < 1 {
		return nil, fmt.Errorf("rate limit should be positive, got %d", cfg.RateLimit)
	}
	if cfg.PollBackoff <= 0 {
		return nil, fmt.Errorf("poll backoff should be positive, got %s", cfg.PollBackoff)
	}
	if cfg.MaxQueueSize < 0 {
		return nil, fmt.Errorf("max queue size cannot be negative, got %d", cfg.MaxQueueSize)
	}

	if opts.Sender == nil {
		opts.Sender = NewHTTPSender(nil, uint64(cfg.MaxResponseBodySize))
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	b := &Broker{
		logger:              logger,
		sender:              opts.Sender,
		journal:             opts.Journal,
		queue:               newQueue(cfg.MaxQueueSize),
		limiter:             NewSlidingWindowLimiter(cfg.RateLimit, opts.Window, cfg.PollBackoff),
		requestTimeout:      requestTimeout,
		gracefulStopTimeout: cfg.GracefulStopTimeout,
		done:                make(chan struct{}),
		rateLimitWarnLimit:  rate.Sometimes{First: 1, Interval: rateLimitWarningInterval},
	}
	b.abortCtx, b.abort = context.WithCancel(context.Background())
	b.metrics = newPrometheusMetrics(opts.MetricsNamespace, func() float64 { return float64(b.queue.Len()) })
	b.limiter.OnLimitReached = b.onRateLimitReached
	return b, nil
}

// Submit enqueues a job and returns a Future that will be resolved with the job outcome.
// It never waits for the job to be processed. Returned error is non-nil only if the job can't be accepted
// (ErrStopped or ErrOverloaded), all other failures are delivered through the Future.
// Values of ctx (e.g. request id) are propagated to the downstream request, but its cancellation is not.
func (b *Broker) Submit(ctx context.Context, destination string, payload interface{}) (*Future, error) {
	return b.SubmitWithOpts(ctx, destination, payload, SubmitOpts{})
}

// SubmitWithOpts is a more configurable version of Submit.
func (b *Broker) SubmitWithOpts(
	ctx context.Context, destination string, payload interface{}, opts SubmitOpts,
) (*Future, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = b.requestTimeout
	}
	j := &job{
		id:          uuid.NewString(),
		destination: destination,
		payload:     payload,
		timeout:     timeout,
		ctx:         context.WithoutCancel(ctx),
		queuedAt:    time.Now(),
	}
	j.future = newFuture(j.id)

	if err := b.queue.Push(j); err != nil {
		if errors.Is(err, ErrOverloaded) {
			b.metrics.RejectedJobs.Inc()
		}
		return nil, err
	}
	return j.future, nil
}

// Do submits a job and waits for its outcome.
// If ctx is done before the job is resolved, ctx.Err() is returned while the job itself stays in the queue.
func (b *Broker) Do(ctx context.Context, destination string, payload interface{}) (json.RawMessage, error) {
	f, err := b.Submit(ctx, destination, payload)
	if err != nil {
		return nil, err
	}
	return f.Wait(ctx)
}

// QueueSize returns the number of jobs waiting in the queue.
func (b *Broker) QueueSize() int {
	return b.queue.Len()
}

// IsRunning reports whether the worker loop is running and accepting jobs.
func (b *Broker) IsRunning() bool {
	return b.started.Load() && !b.stopped.Load()
}

// Start runs the worker loop. It blocks until the broker is stopped.
// ErrAlreadyStarted is reported to fatalErr only if the channel can accept it without blocking.
// Start called after Stop returns immediately, the queue is handled by Stop in this case.
func (b *Broker) Start(fatalErr chan<- error) {
	if !b.started.CompareAndSwap(false, true) {
		if b.stopped.Load() {
			return
		}
		select {
		case fatalErr <- ErrAlreadyStarted:
		default:
		}
		return
	}
	b.run()
}

func (b *Broker) run() {
	defer close(b.done)

	b.logger.Info("broker started",
		log.Int("rate_limit", b.limiter.limit), log.Duration("window", b.limiter.window))

	for {
		j, err := b.queue.Pop(b.abortCtx)
		if err != nil {
			b.logger.Info("broker worker loop finished")
			return
		}
		b.processJob(j)
	}
}

// Stop stops accepting new jobs and stops the worker loop.
// If gracefully is true, the already queued jobs are processed first (within the configured graceful stop timeout).
// If Start has not run yet, Stop runs the worker loop itself to process them.
// Otherwise, or if the timeout is exceeded, the in-flight request is canceled
// and all jobs left in the queue are resolved with ErrStopped.
func (b *Broker) Stop(gracefully bool) error {
	b.stopMu.Lock()
	defer b.stopMu.Unlock()

	b.stopped.Store(true)
	b.queue.Close()

	if b.started.CompareAndSwap(false, true) {
		if !gracefully {
			b.abort()
			close(b.done)
			b.resolveStopped(b.queue.Drain())
			return nil
		}
		go b.run()
	}

	var err error
	if gracefully {
		b.logger.Info("stopping broker gracefully", log.Int("queue_size", b.queue.Len()))
		if err = b.waitDone(); err != nil {
			b.logger.Warn("broker graceful stop timeout exceeded, aborting")
		}
	}

	b.abort()
	<-b.done
	b.resolveStopped(b.queue.Drain())
	b.logger.Info("broker stopped")
	return err
}

func (b *Broker) waitDone() error {
	if b.gracefulStopTimeout == 0 {
		<-b.done
		return nil
	}
	timer := time.NewTimer(b.gracefulStopTimeout)
	defer timer.Stop()
	select {
	case <-b.done:
		return nil
	case <-timer.C:
		return ErrStopTimeoutExceeded
	}
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
func (b *Broker) MustRegisterMetrics() {
	b.metrics.MustRegister()
}

// UnregisterMetrics unregisters metrics in Prometheus client.
func (b *Broker) UnregisterMetrics() {
	b.metrics.Unregister()
}

func (b *Broker) resolveStopped(jobs []*job) {
	for _, j := range jobs {
		b.finishJob(j, JobRecord{}, nil, ErrStopped)
	}
}

func (b *Broker) processJob(j *job) {
	b.currentJob, b.currentJobLimited = j, false
	defer func() { b.currentJob = nil }()

	b.metrics.QueueWaitDurations.Observe(time.Since(j.queuedAt).Seconds())

	if err := b.limiter.Wait(b.abortCtx); err != nil {
		b.finishJob(j, JobRecord{}, nil, ErrStopped)
		return
	}

	rec := JobRecord{SentAt: time.Now()}
	b.logger.Debug("sending request to downstream",
		log.JobID(j.id), log.Destination(j.destination))

	res, err := b.send(j)
	b.metrics.SendDurations.Observe(time.Since(rec.SentAt).Seconds())
	if err != nil && b.abortCtx.Err() != nil && errors.Is(err, context.Canceled) {
		err = ErrStopped
	}
	b.finishJob(j, rec, res, err)
}

func (b *Broker) send(j *job) (res json.RawMessage, err error) {
	ctx, cancel := context.WithTimeout(j.ctx, j.timeout)
	defer cancel()
	stopAbortPropagation := context.AfterFunc(b.abortCtx, cancel)
	defer stopAbortPropagation()

	defer func() {
		if p := recover(); p != nil {
			b.logger.Error(fmt.Sprintf("panic while sending request: %+v", p), log.JobID(j.id), log.Stack())
			res, err = nil, &InternalError{Op: "send request", Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	res, err = b.sender.Send(ctx, j.destination, j.payload)
	if err != nil {
		return nil, classifySendError(err)
	}
	return res, nil
}

func classifySendError(err error) error {
	var transportErr *TransportError
	var upstreamErr *UpstreamError
	var internalErr *InternalError
	if errors.As(err, &transportErr) || errors.As(err, &upstreamErr) || errors.As(err, &internalErr) {
		return err
	}
	return &InternalError{Op: "send request", Err: err}
}

func (b *Broker) finishJob(j *job, rec JobRecord, res json.RawMessage, err error) {
	outcome := outcomeOf(err)
	b.metrics.Jobs.WithLabelValues(string(outcome)).Inc()
	if err != nil && outcome != OutcomeStopped {
		b.logger.Error("downstream request failed",
			log.JobID(j.id), log.Destination(j.destination), log.Error(err))
	}

	if b.journal != nil {
		rec.JobID = j.id
		rec.Destination = j.destination
		rec.Outcome = outcome
		rec.QueuedAt = j.queuedAt
		rec.FinishedAt = time.Now()
		if err != nil {
			rec.Error = err.Error()
			var upstreamErr *UpstreamError
			if errors.As(err, &upstreamErr) {
				rec.StatusCode = upstreamErr.StatusCode
			}
		}
		b.journal.Record(rec)
	}

	j.resolve(res, err)
}

func (b *Broker) onRateLimitReached(oldest time.Time) {
	if b.currentJobLimited {
		return
	}
	b.currentJobLimited = true
	b.metrics.RateLimitedJobs.Inc()
	b.rateLimitWarnLimit.Do(func() {
		fields := []log.Field{log.Time("oldest_request_at", oldest)}
		if b.currentJob != nil {
			fields = append(fields, log.JobID(b.currentJob.id))
		}
		b.logger.Warn("rate limit reached, waiting for free slot", fields...)
	})
}
