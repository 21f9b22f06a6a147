/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import "github.com/ssgreg/logf"

// Level is a logging level.
type Level string

// Logging levels.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

var logfLevels = map[Level]logf.Level{
	LevelError: logf.LevelError,
	LevelWarn:  logf.LevelWarn,
	LevelInfo:  logf.LevelInfo,
	LevelDebug: logf.LevelDebug,
}

// unknown levels are treated as info
func (lvl Level) logf() logf.Level {
	if l, ok := logfLevels[lvl]; ok {
		return l
	}
	return logf.LevelInfo
}

// LevelFromLogf converts a logf level.
func LevelFromLogf(l logf.Level) Level {
	for lvl, ll := range logfLevels {
		if ll == l {
			return lvl
		}
	}
	return LevelInfo
}
