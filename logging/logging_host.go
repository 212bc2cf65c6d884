//go:build !rp2040

package logging

import (
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures a host logger.
type Options struct {
	Debug bool
	// File, when set, receives a rotated copy of every line.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Debugf(f string, a ...any) { l.s.Debugf(f, a...) }
func (l *zapLogger) Infof(f string, a ...any)  { l.s.Infof(f, a...) }
func (l *zapLogger) Warnf(f string, a ...any)  { l.s.Warnf(f, a...) }
func (l *zapLogger) Errorf(f string, a ...any) { l.s.Errorf(f, a...) }
func (l *zapLogger) Named(name string) Logger  { return &zapLogger{s: l.s.Named(name)} }

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// NewLogger returns a console logger writing Info+ (Debug+ with opts.Debug) to stdout.
func NewLogger(name string, opts Options) Logger {
	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Debug {
		lvl.SetLevel(zap.DebugLevel)
	}
	enc := zapcore.NewConsoleEncoder(encoderConfig())
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)}
	if opts.File != "" {
		rot := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rot), lvl))
	}
	return &zapLogger{s: zap.New(zapcore.NewTee(cores...)).Sugar().Named(name)}
}

// NewTestLogger returns a Debug+ logger for tests. Lines go to stderr rather than tb.Log so
// that tasks still winding down after the test returns can log safely.
func NewTestLogger(tb testing.TB) Logger {
	l, _ := NewObservedTestLogger(tb)
	return l
}

// NewObservedTestLogger is like NewTestLogger but also records entries for assertions.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	tb.Helper()
	obsCore, logs := observer.New(zapcore.DebugLevel)
	errCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.DebugLevel,
	)
	return &zapLogger{s: zap.New(zapcore.NewTee(obsCore, errCore)).Sugar()}, logs
}
