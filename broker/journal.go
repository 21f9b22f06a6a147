/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package broker

import "time"

// Outcome is a final state of the job.
type Outcome string

// Job outcomes.
const (
	OutcomeCompleted      Outcome = "completed"
	OutcomeUpstreamError  Outcome = "upstream_error"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeInternalError  Outcome = "internal_error"
	OutcomeStopped        Outcome = "stopped"
)

// JobRecord describes a resolved job.
type JobRecord struct {
	JobID       string
	Destination string
	Outcome     Outcome
	StatusCode  int // Set for OutcomeUpstreamError only.
	Error       string
	QueuedAt    time.Time
	SentAt      time.Time // Zero if the request was never sent.
	FinishedAt  time.Time
}

// Journal receives records about every resolved job.
// Record is called from the worker goroutine, so it must not block.
type Journal interface {
	Record(rec JobRecord)
}
