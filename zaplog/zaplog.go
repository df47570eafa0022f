// Package zaplog adapts a zap logger to the outbox Logger interface.
package zaplog

import (
	"go.uber.org/zap"

	outbox "github.com/kristofferremback/threa-outbox"
)

// Logger forwards outbox log calls to a zap SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

var _ outbox.Logger = (*Logger)(nil)

// New wraps the given zap logger. A nil logger falls back to zap.NewNop, so
// the adapter is always safe to call.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Skip the adapter frame so caller locations point at the engine.
	return &Logger{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Debug implements outbox.Logger.
func (l *Logger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

// Info implements outbox.Logger.
func (l *Logger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

// Warn implements outbox.Logger.
func (l *Logger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

// Error implements outbox.Logger.
func (l *Logger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}
