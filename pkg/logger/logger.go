package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

type Configuration struct {
	LogFile   string // JSON log of every enabled level
	ErrorFile string // JSON log of errors only
	Level     string // debug, info, warn, error; invalid values mean debug
	Console   bool
	// ConsoleWriter defaults to os.Stderr
	ConsoleWriter io.Writer
}

// Logger is an slog logger backed by a zap core
type Logger struct {
	*slog.Logger
	zap   *zap.Logger
	files []*os.File
}

// New builds the zap core tee described by configuration and exposes it through slog
func New(configuration Configuration) (*Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(configuration.Level)); err != nil {
		level = zapcore.DebugLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	l := &Logger{}
	var cores []zapcore.Core

	if configuration.LogFile != "" {
		logFile, err := l.open(configuration.LogFile)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(logFile),
			level,
		))
	}

	if configuration.ErrorFile != "" {
		errorFile, err := l.open(configuration.ErrorFile)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(errorFile),
			zapcore.ErrorLevel,
		))
	}

	if configuration.Console {
		w := configuration.ConsoleWriter
		if w == nil {
			w = os.Stderr
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(w),
			level,
		))
	}

	core := zapcore.NewTee(cores...)
	l.zap = zap.New(core, zap.AddCaller())
	l.Logger = slog.New(zapslog.NewHandler(core, zapslog.WithCaller(true)))
	return l, nil
}

func (l *Logger) open(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.closeFiles()
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	l.files = append(l.files, f)
	return f, nil
}

// Zap returns the underlying zap logger
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Close flushes buffered entries and closes log files
func (l *Logger) Close() error {
	_ = l.zap.Sync()
	return l.closeFiles()
}

func (l *Logger) closeFiles() error {
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
