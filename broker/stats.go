/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package broker

import (
	"context"
	"time"

	"github.com/acronis/go-mlbroker/log"
	"github.com/acronis/go-mlbroker/service"
)

var _ service.Worker = (*StatsReporter)(nil)

// StatsReporter logs the broker queue size every time it changes.
// It's supposed to be run periodically by service.PeriodicWorker.
type StatsReporter struct {
	broker   *Broker
	logger   log.FieldLogger
	lastSize int
}

// NewStatsReporter creates a new StatsReporter.
func NewStatsReporter(b *Broker, logger log.FieldLogger) *StatsReporter {
	return &StatsReporter{broker: b, logger: logger, lastSize: -1}
}

// Run implements service.Worker interface.
func (r *StatsReporter) Run(_ context.Context) error {
	size := r.broker.QueueSize()
	if size == r.lastSize {
		return nil
	}
	r.lastSize = size
	r.logger.Info("broker queue size changed", log.Int("queue_size", size))
	return nil
}

// NewStatsReporterUnit creates a service.Unit that runs StatsReporter every interval.
func NewStatsReporterUnit(b *Broker, interval time.Duration, logger log.FieldLogger) *service.WorkerUnit {
	return service.NewWorkerUnit(service.NewPeriodicWorker(NewStatsReporter(b, logger), interval, logger))
}
