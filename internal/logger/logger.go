package logger

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger tees to stdout and, when logFilePath is set, appends to that file as well
func NewLogger(logFilePath string, level zapcore.Level) (*zap.Logger, error) {
	return newLogger(logFilePath, level, true)
}

// NewFileLogger keeps stdout free for a full screen terminal UI
func NewFileLogger(logFilePath string, level zapcore.Level) (*zap.Logger, error) {
	if logFilePath == "" {
		return zap.NewNop(), nil
	}
	return newLogger(logFilePath, level, false)
}

func newLogger(logFilePath string, level zapcore.Level, stdout bool) (*zap.Logger, error) {
	encoderConfig := zap.NewDevelopmentConfig()
	encoder := zapcore.NewConsoleEncoder(encoderConfig.EncoderConfig)

	var cores []zapcore.Core
	if stdout {
		cores = append(cores, zapcore.NewCore(
			encoder,
			zapcore.AddSync(os.Stdout),
			level,
		))
	}

	if logFilePath != "" {
		logFile, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open log file %s", logFilePath)
		}

		cores = append(cores, zapcore.NewCore(
			encoder,
			zapcore.AddSync(logFile),
			level,
		))
	}

	logger := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	return logger, nil
}

// ParseLevel maps a config string onto a zap level, empty means info
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel, errors.Errorf("unknown log level %q", level)
	}
	return l, nil
}
