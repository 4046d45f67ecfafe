// Package pdrlog wraps go.uber.org/zap with the structured per-event
// logging the PDR driver emits: iterations, CTIs, obligations,
// propagation timings.
package pdrlog

import (
	"time"

	"go.uber.org/zap"

	"github.com/pdrpebble/pdrpebble/pkg/cube"
)

// Logger is a thin, nil-safe wrapper: New(nil) and Nop() both produce a
// logger that discards everything, so callers never need to guard against
// a missing logger.
type Logger struct {
	z *zap.Logger
}

// New wraps z, or a no-op logger if z is nil.
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// Nop returns a logger that discards everything.
func Nop() *Logger { return &Logger{z: zap.NewNop()} }

func (l *Logger) Iteration(k int) {
	l.z.Debug("iterate frame", zap.Int("frame", k))
}

func (l *Logger) CTI(k int, c cube.Cube) {
	l.z.Debug("cti", zap.Int("frame", k), zap.Stringer("cube", c))
}

func (l *Logger) Propagation(level int, d time.Duration) {
	l.z.Info("propagation", zap.Int("level", level), zap.Duration("elapsed", d))
}

func (l *Logger) TopObligation(queueSize, level int, c cube.Cube) {
	l.z.Debug("top obligation", zap.Int("queue_size", queueSize), zap.Int("level", level), zap.Stringer("cube", c))
}

func (l *Logger) Pred(c cube.Cube) {
	l.z.Debug("predecessor", zap.Stringer("cube", c))
}

func (l *Logger) StatePush(frame int, c cube.Cube) {
	l.z.Debug("push predecessor", zap.Int("frame", frame), zap.Stringer("cube", c))
}

func (l *Logger) Finish(c cube.Cube) {
	l.z.Debug("finishing state", zap.Stringer("cube", c))
}

func (l *Logger) Obligation(kind string, level int, d time.Duration) {
	l.z.Info("obligation", zap.String("type", kind), zap.Int("level", level), zap.Duration("elapsed", d))
}

func (l *Logger) Finished(result string, elapsed time.Duration) {
	l.z.Info("pdr finished", zap.String("result", result), zap.Duration("elapsed", elapsed))
}

// Sync flushes buffered log entries at process exit.
func (l *Logger) Sync() error { return l.z.Sync() }
