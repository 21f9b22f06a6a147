/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"runtime"

	"github.com/ssgreg/logf"
)

// Field is a single key-value pair of a structured log entry.
type Field = logf.Field

// Field constructors.
var (
	Error    = logf.Error
	String   = logf.String
	Strings  = logf.Strings
	Bytes    = logf.Bytes
	Int      = logf.Int
	Int64    = logf.Int64
	Duration = logf.Duration
	Time     = logf.Time
)

// JobID returns a Field with the broker job identifier.
func JobID(id string) Field {
	return String("job_id", id)
}

// Destination returns a Field with the name or URL of a downstream service.
func Destination(dest string) Field {
	return String("destination", dest)
}

const maxStackSize = 8192

// Stack returns a Field with the stack trace of the current goroutine.
func Stack() Field {
	buf := make([]byte, maxStackSize)
	return Bytes("stack", buf[:runtime.Stack(buf, false)])
}
