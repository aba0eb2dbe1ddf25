package diag

import (
	"context"
	"log/slog"
)

// SlogLogger forwards session messages to a structured logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger wraps log; nil means slog.Default().
func NewSlogLogger(log *slog.Logger) *SlogLogger {
	if log == nil {
		log = slog.Default()
	}
	return &SlogLogger{log: log}
}

func (l *SlogLogger) Note(msg string) {
	l.log.Info(msg)
}

func (l *SlogLogger) Warning(msg string, loc Location, hints []string) {
	l.log.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs(loc, hints)...)
}

func (l *SlogLogger) Error(msg string, loc Location, hints []string) {
	l.log.LogAttrs(context.Background(), slog.LevelError, msg, attrs(loc, hints)...)
}

func attrs(loc Location, hints []string) []slog.Attr {
	var out []slog.Attr
	if loc.Known() {
		out = append(out,
			slog.String("file", loc.File),
			slog.Int64("line", loc.Start.Line+1),
			slog.Int64("column", loc.Start.Column+1),
		)
	}
	if len(hints) > 0 {
		out = append(out, slog.Any("hints", hints))
	}
	return out
}
