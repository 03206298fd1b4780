package logging

import (
	"log/slog"
	"sync/atomic"
)

var traceEnabled atomic.Bool

// SetTrace turns state-machine transition logs on or off. Init and InitClient
// enable it when a logger is configured with level TRACE.
func SetTrace(enabled bool) {
	traceEnabled.Store(enabled)
}

// TraceEnabled reports whether transition logs are written.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// Trace logs at DEBUG level when tracing is on.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if traceEnabled.Load() {
		logger.Debug(msg, args...)
	}
}

// TraceDefault is Trace on the default logger.
func TraceDefault(msg string, args ...any) {
	Trace(slog.Default(), msg, args...)
}
