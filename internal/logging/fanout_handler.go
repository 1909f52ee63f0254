package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler writes every record to a primary handler and a set of extra
// sinks, such as an item's own log file.
type teeHandler struct {
	primary slog.Handler
	sinks   []slog.Handler
}

// TeeLogger duplicates log output from base into the provided handlers. Nil
// handlers are ignored.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	var primary slog.Handler = discardHandler{}
	if base != nil {
		primary = base.Handler()
	}
	var sinks []slog.Handler
	for _, h := range handlers {
		if h != nil {
			sinks = append(sinks, h)
		}
	}
	if len(sinks) == 0 {
		return slog.New(primary)
	}
	return slog.New(&teeHandler{primary: primary, sinks: sinks})
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.primary.Enabled(ctx, level) {
		return true
	}
	for _, sink := range h.sinks {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, sink := range h.sinks {
		if sink.Enabled(ctx, record.Level) {
			errs = append(errs, sink.Handle(ctx, record.Clone()))
		}
	}
	if h.primary.Enabled(ctx, record.Level) {
		errs = append(errs, h.primary.Handle(ctx, record))
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *teeHandler) derive(apply func(slog.Handler) slog.Handler) slog.Handler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		sinks[i] = apply(sink)
	}
	return &teeHandler{primary: apply(h.primary), sinks: sinks}
}
