package logs

import (
	"context"
	"log/slog"
	"sync"
)

// MockHandler records every log record. Attributes added through With are
// kept on the records so tests can assert on them.
type MockHandler struct {
	mu    *sync.Mutex
	logs  *[]slog.Record
	attrs []slog.Attr
}

func NewMockHandler() *MockHandler {
	return &MockHandler{mu: &sync.Mutex{}, logs: &[]slog.Record{}}
}

func (h *MockHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *MockHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec := r.Clone()
	rec.AddAttrs(h.attrs...)
	*h.logs = append(*h.logs, rec)
	return nil
}

func (h *MockHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MockHandler{
		mu:    h.mu,
		logs:  h.logs,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *MockHandler) WithGroup(_ string) slog.Handler {
	return h
}

// Records returns a snapshot of what was logged so far.
func (h *MockHandler) Records() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]slog.Record, len(*h.logs))
	copy(out, *h.logs)
	return out
}

// Find returns the records with the given message.
func (h *MockHandler) Find(msg string) []slog.Record {
	var out []slog.Record
	for _, r := range h.Records() {
		if r.Message == msg {
			out = append(out, r)
		}
	}
	return out
}

// Attr returns the value of key on r, if present.
func Attr(r slog.Record, key string) (slog.Value, bool) {
	var (
		val   slog.Value
		found bool
	)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			val, found = a.Value, true
			return false
		}
		return true
	})
	return val, found
}
