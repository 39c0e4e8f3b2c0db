package aks

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with processing on any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for aks and its sub-packages.
// By default, aks produces no log output.
//
// Log levels used by aks:
//   - [slog.LevelDebug]: buffer sizes, resolved crop bounds, probe results
//   - [slog.LevelInfo]: GPU adapter selection, backend changes
//   - [slog.LevelWarn]: CPU fallback after a GPU failure, GPU disabled
//
// Pass nil to restore the silent default. The logger is propagated to the
// registered GPU backend if it accepts one.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	if b := RegisteredGPUBackend(); b != nil {
		propagateLogger(b, l)
	}
}

// Logger returns the current logger used by aks.
// Sub-packages (gpu/, codec/) call this to share the same configuration
// without introducing import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by GPU backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(b GPUBackend, l *slog.Logger) {
	if ls, ok := b.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
