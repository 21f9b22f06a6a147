/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-mlbroker/log"
)

// RecordedEntry is a logged entry kept by Recorder.
type RecordedEntry struct {
	Level  log.Level
	Time   time.Time
	Text   string
	Fields []log.Field // own fields first, then the ones added by With
}

// FindField returns the first field with the given key.
func (re *RecordedEntry) FindField(key string) (*log.Field, bool) {
	for i := range re.Fields {
		if re.Fields[i].Key == key {
			return &re.Fields[i], true
		}
	}
	return nil, false
}

type entryStore struct {
	mu      sync.RWMutex
	entries []RecordedEntry
}

//nolint:gocritic // logf.EntryWriter passes entries by value
func (s *entryStore) WriteEntry(e logf.Entry) {
	fields := make([]log.Field, 0, len(e.Fields)+len(e.DerivedFields))
	fields = append(fields, e.Fields...)
	fields = append(fields, e.DerivedFields...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, RecordedEntry{
		Level:  log.LevelFromLogf(e.Level),
		Time:   e.Time,
		Text:   e.Text,
		Fields: fields,
	})
}

func (s *entryStore) filter(keep func(RecordedEntry) bool, limit int) []RecordedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []RecordedEntry
	for _, e := range s.entries {
		if keep(e) {
			res = append(res, e)
			if len(res) == limit {
				break
			}
		}
	}
	return res
}

// Recorder is a log.FieldLogger that keeps all logged entries for later inspection.
// Loggers derived with With and WithLevel record into the same store.
type Recorder struct {
	*log.LogfAdapter
	store *entryStore
}

var _ log.FieldLogger = (*Recorder)(nil)

// NewRecorder creates a Recorder that records entries of all levels.
func NewRecorder() *Recorder {
	store := &entryStore{}
	return &Recorder{&log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, store)}, store}
}

func (r *Recorder) derive(l log.FieldLogger) *Recorder {
	return &Recorder{l.(*log.LogfAdapter), r.store}
}

// With returns a Recorder that adds fields to every entry.
func (r *Recorder) With(fields ...log.Field) log.FieldLogger {
	return r.derive(r.LogfAdapter.With(fields...))
}

// WithLevel returns a Recorder that additionally drops entries below level.
func (r *Recorder) WithLevel(level log.Level) log.FieldLogger {
	return r.derive(r.LogfAdapter.WithLevel(level))
}

// Entries returns all recorded entries.
func (r *Recorder) Entries() []RecordedEntry {
	return r.store.filter(func(RecordedEntry) bool { return true }, -1)
}

// FindEntry returns the first entry with the given message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	return r.FindEntryByFilter(func(e RecordedEntry) bool { return e.Text == msg })
}

// FindEntryByFilter returns the first entry accepted by filter.
func (r *Recorder) FindEntryByFilter(filter func(entry RecordedEntry) bool) (RecordedEntry, bool) {
	if found := r.store.filter(filter, 1); len(found) != 0 {
		return found[0], true
	}
	return RecordedEntry{}, false
}

// FindAllEntriesByFilter returns all entries accepted by filter.
func (r *Recorder) FindAllEntriesByFilter(filter func(entry RecordedEntry) bool) []RecordedEntry {
	return r.store.filter(filter, -1)
}

// FindEntriesByLevel returns all entries of the given level.
func (r *Recorder) FindEntriesByLevel(level log.Level) []RecordedEntry {
	return r.FindAllEntriesByFilter(func(e RecordedEntry) bool { return e.Level == level })
}

// WaitForEntry polls for an entry with the given message, for entries logged by background goroutines.
func (r *Recorder) WaitForEntry(msg string, attempts int, interval time.Duration) (RecordedEntry, bool) {
	for i := 0; i < attempts; i++ {
		if e, ok := r.FindEntry(msg); ok {
			return e, true
		}
		time.Sleep(interval)
	}
	return r.FindEntry(msg)
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.store.mu.Lock()
	r.store.entries = nil
	r.store.mu.Unlock()
}
