// Package loggertest captures log records so tests can assert on them.
package loggertest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/okian/signupdesk/pkg/logger"
)

// Entry is one captured record.
type Entry struct {
	Level      slog.Level
	Message    string
	Attributes map[string]any
}

// Recorder is an slog.Handler storing every record it sees.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	attrs   []slog.Attr
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

// Logger returns a logger.Logger backed by r.
func (r *Recorder) Logger() logger.Logger {
	return logger.New(r)
}

// Enabled captures every level.
func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

// Handle stores the record.
func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	e := Entry{
		Level:      rec.Level,
		Message:    rec.Message,
		Attributes: make(map[string]any, rec.NumAttrs()+len(r.attrs)),
	}
	for _, a := range r.attrs {
		e.Attributes[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		e.Attributes[a.Key] = a.Value.Any()
		return true
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, e)
	return nil
}

// WithAttrs returns a handler sharing storage with r.
func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	merged = append(merged, attrs...)
	return &Recorder{mu: r.mu, entries: r.entries, attrs: merged}
}

// WithGroup ignores groups; keys stay flat for easy assertions.
func (r *Recorder) WithGroup(string) slog.Handler { return r }

// Entries returns a copy of everything captured so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// Errors returns only error-level entries.
func (r *Recorder) Errors() []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level >= slog.LevelError {
			out = append(out, e)
		}
	}
	return out
}
