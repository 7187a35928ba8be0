// Package ulog is the structured-logging sink of the unity2gltf command;
// the decode packages do not log and report what they skip through
// unityassets.DecodeOptions.WarningsSink instead. It wraps go.uber.org/zap behind a named-child-logger shape (New/Named, a
// DEBUG..ERROR level set) backed by a real structured-logging library
// instead of a hand-assembled console writer.
//
// There is no process-wide mutable logger registry: each caller constructs
// or receives a *Logger explicitly and threads it through, the same way
// unityassets.DecodeOptions threads its other configuration.
package ulog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Levels. There is no FATAL: a decode failure returns an error through the
// normal call chain, it never panics the process.
const (
	DEBUG = iota
	INFO
	WARN
	ERROR
)

var zapLevels = [...]zapcore.Level{
	DEBUG: zapcore.DebugLevel,
	INFO:  zapcore.InfoLevel,
	WARN:  zapcore.WarnLevel,
	ERROR: zapcore.ErrorLevel,
}

// Logger wraps a named *zap.Logger. The zero value is not usable; construct
// one with New or derive a component logger with Named.
type Logger struct {
	name  string
	level zap.AtomicLevel
	zap   *zap.Logger
}

// New builds a root Logger named name, writing to stderr at the given
// minimum level. Callers that want a no-op logger (tests, library
// consumers that don't care about diagnostics) can use Nop instead.
func New(name string, level int) *Logger {
	atom := zap.NewAtomicLevelAt(zapLevels[level])
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), atom)
	return &Logger{
		name:  name,
		level: atom,
		zap:   zap.New(core).Named(name),
	}
}

// Nop returns a Logger that discards everything, for callers that don't
// want diagnostics (e.g. a library consumer with its own logging setup).
func Nop() *Logger {
	return &Logger{name: "nop", zap: zap.NewNop()}
}

// Named returns a child logger scoped under name — the child inherits the
// parent's level and output, and its messages are tagged with the dotted
// path (e.g. "unitygltf.bundle.sniff").
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:  l.name + "." + name,
		level: l.level,
		zap:   l.zap.Named(name),
	}
}

// SetLevel changes the minimum emitted level for this logger and every
// logger derived from it via Named.
func (l *Logger) SetLevel(level int) {
	l.level.SetLevel(zapLevels[level])
}

// Sugar returns the printf-style SugaredLogger for call sites that want
// formatted fields instead of zap.Field values.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.zap.Sugar()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.zap.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.zap.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// Sync flushes any buffered log entries. Callers should defer Sync() after
// New.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}
