/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package journal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-mlbroker/broker"
	"github.com/acronis/go-mlbroker/log/logtest"
	"github.com/acronis/go-mlbroker/retry"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	mu        sync.Mutex
	calls     []execCall
	failures  []error
	execDelay time.Duration
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if db.execDelay > 0 {
		select {
		case <-time.After(db.execDelay):
		case <-ctx.Done():
			return pgconn.CommandTag{}, ctx.Err()
		}
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.calls = append(db.calls, execCall{sql, args})
	if len(db.failures) != 0 {
		err := db.failures[0]
		db.failures = db.failures[1:]
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *fakeDB) Calls() []execCall {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]execCall(nil), db.calls...)
}

func newTestConfig() *Config {
	return &Config{
		Enabled:          true,
		DSN:              "postgres://localhost/mlbroker",
		MaxConns:         1,
		BufferSize:       10,
		MaxRetryAttempts: 2,
		WriteTimeout:     time.Second,
		FlushTimeout:     time.Second,
	}
}

func newTestJournal(db DB, cfg *Config, logger *logtest.Recorder) *PostgresJournal {
	return NewWithOpts(db, cfg, logger, Opts{RetryPolicy: retry.NewConstantBackoffPolicy(time.Millisecond, cfg.MaxRetryAttempts)})
}

func newTestRecord(id string) broker.JobRecord {
	now := time.Now()
	return broker.JobRecord{
		JobID:       id,
		Destination: "http://ml.local/predict",
		Outcome:     broker.OutcomeUpstreamError,
		StatusCode:  503,
		Error:       "http://ml.local/predict responded with status code 503",
		QueuedAt:    now.Add(-time.Second),
		SentAt:      now.Add(-time.Millisecond),
		FinishedAt:  now,
	}
}

func TestPostgresJournal_Write(t *testing.T) {
	db := &fakeDB{}
	j := newTestJournal(db, newTestConfig(), logtest.NewRecorder())
	rec := newTestRecord("6f1c2d9e-7c55-4d1f-a7a4-3f4b1e7f0a11")

	j.write(context.Background(), rec)

	calls := db.Calls()
	require.Len(t, calls, 1)
	require.True(t, strings.HasPrefix(calls[0].sql, "INSERT INTO broker_job_outcomes"))
	require.Len(t, calls[0].args, 8)
	require.Equal(t, rec.JobID, calls[0].args[0])
	require.Equal(t, rec.Destination, calls[0].args[1])
	require.Equal(t, "upstream_error", calls[0].args[2])
	require.Equal(t, 503, *calls[0].args[3].(*int))
	require.Equal(t, rec.Error, *calls[0].args[4].(*string))
	require.Equal(t, 1.0, testutil.ToFloat64(j.metrics.Records.WithLabelValues(resultWritten)))
}

func TestRecordArgs_NullableColumns(t *testing.T) {
	rec := broker.JobRecord{JobID: "id", Destination: "d", Outcome: broker.OutcomeStopped, QueuedAt: time.Now(), FinishedAt: time.Now()}
	args := recordArgs(rec)
	require.Nil(t, args[3].(*int))
	require.Nil(t, args[4].(*string))
	require.Nil(t, args[6].(*time.Time))
}

func TestPostgresJournal_Retry(t *testing.T) {
	t.Run("transient errors are retried", func(t *testing.T) {
		db := &fakeDB{failures: []error{
			errors.New("connection reset by peer"),
			&pgconn.PgError{Code: "08006", Message: "connection failure"},
		}}
		logger := logtest.NewRecorder()
		j := newTestJournal(db, newTestConfig(), logger)

		j.write(context.Background(), newTestRecord("id-1"))

		require.Len(t, db.Calls(), 3)
		require.Len(t, logger.FindAllEntriesByFilter(func(e logtest.RecordedEntry) bool {
			return e.Text == "failed to write job outcome, retrying"
		}), 2)
		require.Equal(t, 1.0, testutil.ToFloat64(j.metrics.Records.WithLabelValues(resultWritten)))
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		db := &fakeDB{failures: []error{&pgconn.PgError{Code: "23502", Message: "not null violation"}}}
		logger := logtest.NewRecorder()
		j := newTestJournal(db, newTestConfig(), logger)

		j.write(context.Background(), newTestRecord("id-2"))

		require.Len(t, db.Calls(), 1)
		_, found := logger.FindEntry("failed to write job outcome")
		require.True(t, found)
		require.Equal(t, 1.0, testutil.ToFloat64(j.metrics.Records.WithLabelValues(resultFailed)))
	})

	t.Run("retry attempts are exhausted", func(t *testing.T) {
		transientErr := errors.New("i/o timeout")
		db := &fakeDB{failures: []error{transientErr, transientErr, transientErr, transientErr}}
		j := newTestJournal(db, newTestConfig(), logtest.NewRecorder())

		j.write(context.Background(), newTestRecord("id-3"))

		require.Len(t, db.Calls(), 3)
		require.Equal(t, 1.0, testutil.ToFloat64(j.metrics.Records.WithLabelValues(resultFailed)))
	})
}

func TestPostgresJournal_RecordDropsWhenFull(t *testing.T) {
	cfg := newTestConfig()
	cfg.BufferSize = 2
	logger := logtest.NewRecorder()
	j := newTestJournal(&fakeDB{}, cfg, logger)

	for i := 0; i < 5; i++ {
		j.Record(newTestRecord("id"))
	}

	require.Len(t, j.records, 2)
	require.Equal(t, 3.0, testutil.ToFloat64(j.metrics.Records.WithLabelValues(resultDropped)))
	warnings := logger.FindAllEntriesByFilter(func(e logtest.RecordedEntry) bool {
		return e.Text == "journal buffer is full, job outcome is dropped"
	})
	require.Len(t, warnings, 1)
}

func TestPostgresJournal_Unit(t *testing.T) {
	db := &fakeDB{execDelay: 5 * time.Millisecond}
	j := newTestJournal(db, newTestConfig(), logtest.NewRecorder())
	unit := NewUnit(j)

	fatalErr := make(chan error, 1)
	go unit.Start(fatalErr)

	for i := 0; i < 5; i++ {
		j.Record(newTestRecord("id"))
	}
	require.NoError(t, unit.Stop(true))
	require.Len(t, fatalErr, 0)
	require.Len(t, db.Calls(), 5, "buffered records should be written on stop")
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, EnsureSchema(context.Background(), db))
	require.Len(t, db.Calls(), 1)
	require.Contains(t, db.Calls()[0].sql, "CREATE TABLE IF NOT EXISTS broker_job_outcomes")

	db = &fakeDB{failures: []error{errors.New("permission denied")}}
	require.EqualError(t, EnsureSchema(context.Background(), db), "create broker_job_outcomes table: permission denied")
}

func TestIsRetryableError(t *testing.T) {
	require.True(t, isRetryableError(errors.New("connection refused")))
	require.True(t, isRetryableError(&pgconn.PgError{Code: "40001"}))
	require.True(t, isRetryableError(&pgconn.PgError{Code: "57P01"}))
	require.False(t, isRetryableError(&pgconn.PgError{Code: "42P01"}))
	require.False(t, isRetryableError(context.Canceled))
}
