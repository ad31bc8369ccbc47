package rig

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that discards everything. Enabled returns
// false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr is shared by every Hierarchy. Independent hierarchies may be
// evaluated on separate goroutines, hence the atomic.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by the package. By default rig
// produces no log output. Pass nil to restore the silent default.
//
// Log levels used by rig:
//   - [slog.LevelDebug]: ignored usage errors (writing a pose on a curve)
//   - [slog.LevelInfo]: structural lifecycle (storage compaction)
//   - [slog.LevelWarn]: integrity errors outside debug mode (stale storage
//     handles, double frees, dangling parents)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
