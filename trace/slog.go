package trace

import (
	"context"
	"log/slog"
)

// SlogSink writes one log record per event.
type SlogSink struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (s SlogSink) Emit(e Event) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	if !l.Enabled(context.Background(), s.Level) {
		return nil
	}
	first := e.First()
	l.Log(context.Background(), s.Level, "plan",
		"cycle", e.Cycle,
		"kind", e.Kind,
		"strategy", e.Strategy,
		"evaluated", e.Evaluated,
		"score", e.Score,
		"elapsed", e.Elapsed,
		"length", len(e.Chain),
		slog.Group("first",
			"category", first.Category,
			"target", first.Target,
			"x", first.X,
			"y", first.Y,
			"desc", first.Description,
		),
		"fallback", e.Fallback,
	)
	return nil
}
