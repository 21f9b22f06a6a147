/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-mlbroker/log"
)

// timeSlots is encoded as a nested object of millisecond values.
type timeSlots map[string]int64

func (ts timeSlots) EncodeLogfObject(e logf.FieldEncoder) error {
	for name, ms := range ts {
		e.EncodeFieldInt64(name, ms)
	}
	return nil
}

// LoggingParams collects fields that handlers add to the request log entry written by Logging.
// It's safe for concurrent use.
type LoggingParams struct {
	mu     sync.Mutex
	fields []log.Field
	slots  timeSlots
}

// ExtendFields adds fields to the request log entry.
func (lp *LoggingParams) ExtendFields(fields ...log.Field) {
	lp.mu.Lock()
	lp.fields = append(lp.fields, fields...)
	lp.mu.Unlock()
}

// AddTimeSlotDurationInMs adds dur to the named slot of the "time_slots" field.
// The field is logged for slow requests only.
func (lp *LoggingParams) AddTimeSlotDurationInMs(name string, dur time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.slots == nil {
		lp.slots = timeSlots{}
	}
	lp.slots[name] += dur.Milliseconds()
}

func (lp *LoggingParams) logFields(withTimeSlots bool) []log.Field {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	res := make([]log.Field, len(lp.fields), len(lp.fields)+1)
	copy(res, lp.fields)
	if withTimeSlots && len(lp.slots) != 0 {
		res = append(res, log.Field{Key: "time_slots", Type: logf.FieldTypeObject, Any: lp.slots})
	}
	return res
}
