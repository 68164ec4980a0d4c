package tilemat

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with tilemat-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithName adds the output name field to the logger.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("name", name),
	}
}

// WithShape adds the problem dimensions to the logger.
func (l *Logger) WithShape(m, k, n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("m", m, "k", k, "n", n),
	}
}

// LogMultiply logs a completed or failed multiplication.
func (l *Logger) LogMultiply(ctx context.Context, edge, tiles int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "dot failed",
			"edge", edge,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "dot completed",
			"edge", edge,
			"output_tiles", tiles,
			"duration", duration,
		)
	}
}

// LogPublish logs a staged output publication.
func (l *Logger) LogPublish(ctx context.Context, staging string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed",
			"staging", staging,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "output published",
			"staging", staging,
		)
	}
}
