package logging

import (
	"context"
	"log/slog"
)

// teeHandler duplicates every record to a fixed set of handlers, letting the
// daemon log to the console and the session file through one slog.Logger.
type teeHandler struct {
	targets []slog.Handler
}

// NewMultiHandler builds a handler that forwards to every non-nil handler
// given.
func NewMultiHandler(handlers ...slog.Handler) slog.Handler {
	t := &teeHandler{}
	for _, h := range handlers {
		if h != nil {
			t.targets = append(t.targets, h)
		}
	}
	return t
}

// Enabled reports whether at least one target would accept the level.
func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.targets {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards the record to every target that accepts its level. A
// failing target does not stop delivery to the others.
func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t.targets {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &teeHandler{targets: make([]slog.Handler, len(t.targets))}
	for i, h := range t.targets {
		next.targets[i] = h.WithAttrs(attrs)
	}
	return next
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	next := &teeHandler{targets: make([]slog.Handler, len(t.targets))}
	for i, h := range t.targets {
		next.targets[i] = h.WithGroup(name)
	}
	return next
}
