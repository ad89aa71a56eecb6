// Package logger provides a centralized, leveled logging facility.
//
// The API mirrors the verbosity levels used throughout the module:
//
//	Error < Info < Debug < Trace
//
// Output goes to standard error through a zap console core so it never mixes
// with command output on stdout.
//
// Example usage:
//
//	logger.SetVerbosity(2) // Debug
//	logger.Infof("starting server on %s", addr)
//	logger.Debugf("vol=%f price=%f", vol, price)
package logger

import (
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int

const (
	Error Level = iota // Error logs only failures.
	Info               // Info logs high-level progress.
	Debug              // Debug logs diagnostic information.
	Trace              // Trace logs per-iteration detail.
)

// zap has no level below Debug, so Trace is mapped one step under it.
const zapTraceLevel = zapcore.DebugLevel - 1

var (
	current atomic.Int32
	atom    = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar   atomic.Pointer[zap.SugaredLogger]
)

func init() {
	current.Store(int32(Info))
	SetOutput(os.Stderr)
}

// SetOutput redirects log output. Mainly useful in tests.
func SetOutput(w io.Writer) {
	encConfig := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		CallerKey:      "C",
		MessageKey:     "M",
		EncodeLevel:    encodeLevel,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encConfig), zapcore.AddSync(w), atom)
	sugar.Store(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar())
}

// SetVerbosity sets the global logging verbosity.
// Typically called once during startup, after flags are parsed.
func SetVerbosity(v int) {
	l := Level(v)
	if l < Error {
		l = Error
	}
	if l > Trace {
		l = Trace
	}
	current.Store(int32(l))
	atom.SetLevel(toZap(l))
}

// Verbosity returns the active level.
func Verbosity() Level {
	return Level(current.Load())
}

// Sync flushes buffered output.
func Sync() {
	_ = sugar.Load().Sync()
}

func toZap(l Level) zapcore.Level {
	switch l {
	case Error:
		return zapcore.ErrorLevel
	case Info:
		return zapcore.InfoLevel
	case Debug:
		return zapcore.DebugLevel
	}
	return zapTraceLevel
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == zapTraceLevel {
		enc.AppendString("[TRACE]")
		return
	}
	enc.AppendString("[" + l.CapitalString() + "]")
}

// logf checks verbosity before formatting so disabled levels cost nothing.
func logf(l Level, format string, args ...any) {
	if Verbosity() < l {
		return
	}
	sugar.Load().Logf(toZap(l), format, args...)
}

// Errorf logs an error-level message.
func Errorf(format string, args ...any) {
	logf(Error, format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	logf(Info, format, args...)
}

// Debugf logs debugging information.
func Debugf(format string, args ...any) {
	logf(Debug, format, args...)
}

// Tracef logs very detailed execution traces. High volume.
func Tracef(format string, args ...any) {
	logf(Trace, format, args...)
}
