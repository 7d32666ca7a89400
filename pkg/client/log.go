package client

import (
	"context"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// logger forwards franz-go client logs to slog. Level follows the slog
// handler, so raising verbosity also enables client logs.
type logger struct {
	l *slog.Logger
}

func newLogger(l *slog.Logger) kgo.Logger {
	return logger{l: l.With("component", "kgo")}
}

func (l logger) Level() kgo.LogLevel {
	ctx := context.Background()
	switch {
	case l.l.Enabled(ctx, slog.LevelDebug):
		return kgo.LogLevelDebug
	case l.l.Enabled(ctx, slog.LevelInfo):
		return kgo.LogLevelInfo
	case l.l.Enabled(ctx, slog.LevelWarn):
		return kgo.LogLevelWarn
	case l.l.Enabled(ctx, slog.LevelError):
		return kgo.LogLevelError
	default:
		return kgo.LogLevelNone
	}
}

func (l logger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	l.l.Log(context.Background(), slogLevel(level), msg, keyvals...)
}

func slogLevel(level kgo.LogLevel) slog.Level {
	switch level {
	case kgo.LogLevelDebug:
		return slog.LevelDebug
	case kgo.LogLevelInfo:
		return slog.LevelInfo
	case kgo.LogLevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
