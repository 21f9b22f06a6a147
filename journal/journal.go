/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package journal persists outcomes of broker jobs to PostgreSQL.
// Only resolved jobs are recorded, queued jobs are never persisted.
package journal

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/acronis/go-mlbroker/broker"
	"github.com/acronis/go-mlbroker/log"
	"github.com/acronis/go-mlbroker/retry"
	"github.com/acronis/go-mlbroker/service"
)

const (
	defaultRetryInitialInterval = 100 * time.Millisecond
	dropWarningInterval         = 10 * time.Second
)

// Opts contains optional parameters for constructing PostgresJournal.
type Opts struct {
	MetricsNamespace string
	RetryPolicy      retry.Policy
}

var _ broker.Journal = (*PostgresJournal)(nil)
var _ service.Worker = (*PostgresJournal)(nil)

// PostgresJournal records job outcomes into the broker_job_outcomes table.
// Record never blocks the broker worker: records are buffered and written by Run.
type PostgresJournal struct {
	db           DB
	logger       log.FieldLogger
	records      chan broker.JobRecord
	retryPolicy  retry.Policy
	writeTimeout time.Duration
	flushTimeout time.Duration
	metrics      *PrometheusMetrics
	dropWarning  rate.Sometimes
}

// New creates a new PostgresJournal with default options.
func New(db DB, cfg *Config, logger log.FieldLogger) *PostgresJournal {
	return NewWithOpts(db, cfg, logger, Opts{})
}

// NewWithOpts creates a new PostgresJournal with the given options.
func NewWithOpts(db DB, cfg *Config, logger log.FieldLogger, opts Opts) *PostgresJournal {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if opts.RetryPolicy == nil {
		opts.RetryPolicy = retry.NewExponentialBackoffPolicy(defaultRetryInitialInterval, cfg.MaxRetryAttempts)
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	flushTimeout := cfg.FlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = DefaultFlushTimeout
	}
	return &PostgresJournal{
		db:           db,
		logger:       logger,
		records:      make(chan broker.JobRecord, bufferSize),
		retryPolicy:  opts.RetryPolicy,
		writeTimeout: writeTimeout,
		flushTimeout: flushTimeout,
		metrics:      newPrometheusMetrics(opts.MetricsNamespace),
		dropWarning:  rate.Sometimes{First: 1, Interval: dropWarningInterval},
	}
}

// NewUnit wraps the journal into service.Unit. Stopping the unit writes the buffered records first.
func NewUnit(j *PostgresJournal) *service.WorkerUnit {
	return service.NewWorkerUnitWithOpts(j, service.WorkerUnitOpts{
		MetricsRegisterer:   j.metrics,
		GracefulStopTimeout: j.flushTimeout + j.writeTimeout,
	})
}

// Record enqueues the record for writing. If the buffer is full, the record is dropped.
func (j *PostgresJournal) Record(rec broker.JobRecord) {
	select {
	case j.records <- rec:
	default:
		j.metrics.Records.WithLabelValues(resultDropped).Inc()
		j.dropWarning.Do(func() {
			j.logger.Warn("journal buffer is full, job outcome is dropped", log.JobID(rec.JobID))
		})
	}
}

// Run writes records until ctx is done. After that, records left in the buffer are written within the flush timeout.
func (j *PostgresJournal) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			j.flush()
			return nil
		case rec := <-j.records:
			// The write that has already started is finished even if the unit is being stopped.
			j.write(context.WithoutCancel(ctx), rec)
		}
	}
}

func (j *PostgresJournal) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), j.flushTimeout)
	defer cancel()
	for {
		select {
		case rec := <-j.records:
			j.write(ctx, rec)
		default:
			return
		}
	}
}

func (j *PostgresJournal) write(ctx context.Context, rec broker.JobRecord) {
	startTime := time.Now()
	defer func() { j.metrics.WriteDurations.Observe(time.Since(startTime).Seconds()) }()

	notify := func(err error, delay time.Duration) {
		j.logger.Warn("failed to write job outcome, retrying",
			log.JobID(rec.JobID), log.Error(err), log.Duration("delay", delay))
	}
	err := retry.DoWithRetry(ctx, j.retryPolicy, isRetryableError, notify, func(ctx context.Context) error {
		writeCtx, cancel := context.WithTimeout(ctx, j.writeTimeout)
		defer cancel()
		_, err := j.db.Exec(writeCtx, insertRecordSQL, recordArgs(rec)...)
		return err
	})
	if err != nil {
		j.metrics.Records.WithLabelValues(resultFailed).Inc()
		j.logger.Error("failed to write job outcome", log.JobID(rec.JobID), log.Error(err))
		return
	}
	j.metrics.Records.WithLabelValues(resultWritten).Inc()
}

func recordArgs(rec broker.JobRecord) []any {
	var statusCode *int
	if rec.StatusCode != 0 {
		statusCode = &rec.StatusCode
	}
	var errText *string
	if rec.Error != "" {
		errText = &rec.Error
	}
	var sentAt *time.Time
	if !rec.SentAt.IsZero() {
		sentAt = &rec.SentAt
	}
	return []any{
		rec.JobID, rec.Destination, string(rec.Outcome), statusCode, errText, rec.QueuedAt, sentAt, rec.FinishedAt,
	}
}
