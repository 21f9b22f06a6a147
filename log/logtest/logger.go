/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"io"
	"os"
	"sync"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-mlbroker/log"
)

// syncEncodingWriter encodes each entry synchronously, so nothing is lost when a test ends.
type syncEncodingWriter struct {
	mu      sync.Mutex
	encoder logf.Encoder
	out     io.Writer
	buf     logf.Buffer
}

//nolint:gocritic // logf.EntryWriter passes entries by value
func (w *syncEncodingWriter) WriteEntry(e logf.Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Data = w.buf.Data[:0]
	if err := w.encoder.Encode(&w.buf, e); err != nil {
		_, _ = io.WriteString(w.out, err.Error()+"\n")
		return
	}
	_, _ = w.out.Write(w.buf.Data)
}

// NewLogger returns a debug-level logger writing JSON entries to stderr.
func NewLogger() log.FieldLogger {
	return NewLoggerWithOutput(os.Stderr)
}

// NewLoggerWithOutput returns a debug-level logger writing JSON entries to out.
func NewLoggerWithOutput(out io.Writer) log.FieldLogger {
	w := &syncEncodingWriter{
		encoder: logf.NewJSONEncoder(logf.JSONEncoderConfig{
			FieldKeyTime: "time",
			EncodeTime:   logf.RFC3339NanoTimeEncoder,
		}),
		out: out,
	}
	return &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, w)}
}
