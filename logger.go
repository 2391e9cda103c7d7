package quire

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with quire-specific helpers so the cache worker
// logs with consistent field names.
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

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPage adds a page number field to the logger.
func (l *Logger) WithPage(pageNumber int) *Logger {
	return &Logger{
		Logger: l.Logger.With("page", pageNumber),
	}
}

// LogRender logs the outcome of one render job.
func (l *Logger) LogRender(pageNumber, height int, duration time.Duration, upgraded bool) {
	l.Debug("render job completed",
		"page", pageNumber,
		"height", height,
		"duration", duration,
		"upgraded", upgraded,
	)
}

// LogRetrieve logs the outcome of one retrieve command.
func (l *Logger) LogRetrieve(pageNumber int, err error) {
	if err != nil {
		// An acceptable miss: the viewport re-requests on its next draw.
		l.Debug("retrieve missed",
			"page", pageNumber,
			"error", err,
		)
	} else {
		l.Debug("retrieve served",
			"page", pageNumber,
		)
	}
}

// LogCacheJobs logs a batch submission of pre-render jobs.
func (l *Logger) LogCacheJobs(pageNumbers []int, height int) {
	l.Debug("cache jobs submitted",
		"pages", pageNumbers,
		"height", height,
	)
}

// LogTerminated logs the worker loop leaving its running state.
func (l *Logger) LogTerminated(reason string) {
	l.Debug("worker loop terminated",
		"reason", reason,
	)
}
