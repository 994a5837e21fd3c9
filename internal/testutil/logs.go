package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogEntry is one captured log record.
type LogEntry struct {
	Level slog.Level
	Msg   string
	Attrs map[string]any
}

// LogHandler is a slog.Handler that captures records in memory.
type LogHandler struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogger returns a logger writing into a fresh LogHandler.
func NewLogger() (*slog.Logger, *LogHandler) {
	h := &LogHandler{}
	return slog.New(h), h
}

func (h *LogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Level: r.Level,
		Msg:   r.Message,
		Attrs: make(map[string]any, r.NumAttrs()),
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	return nil
}

func (h *LogHandler) WithAttrs([]slog.Attr) slog.Handler {
	return h
}

func (h *LogHandler) WithGroup(string) slog.Handler {
	return h
}

// Entries returns a copy of the captured records.
func (h *LogHandler) Entries() []LogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]LogEntry(nil), h.entries...)
}

// Messages returns the messages of records at level.
func (h *LogHandler) Messages(level slog.Level) []string {
	var out []string
	for _, e := range h.Entries() {
		if e.Level == level {
			out = append(out, e.Msg)
		}
	}
	return out
}
