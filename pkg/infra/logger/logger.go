package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	// Level is a logrus level name; LOG_LEVEL=debug overrides it.
	Level string
	// File sends JSON lines to an async file writer under logs/ and mirrors them to stdout.
	File string
}

// NewLogger builds the process logger. The returned closer flushes the file
// writer, if any, and is safe to call when no file is configured.
func NewLogger(cfg Config) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})
	logger.SetLevel(resolveLevel(cfg.Level))

	if cfg.File == "" {
		logger.SetOutput(os.Stdout)
		return logger, nopCloser{}, nil
	}

	logFile := filepath.Clean(cfg.File)
	if !strings.HasPrefix(logFile, "logs"+string(filepath.Separator)) {
		return nil, nil, fmt.Errorf("invalid log file path %q: must be in logs directory", cfg.File)
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0750); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	writer, err := NewAsyncFileWriter(logFile, 32*1024)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize async log writer: %w", err)
	}
	logger.SetOutput(writer)
	logger.AddHook(NewConsoleHook(os.Stdout))
	return logger, writer, nil
}

func resolveLevel(level string) logrus.Level {
	if os.Getenv("LOG_LEVEL") == "debug" {
		return logrus.DebugLevel
	}
	if level == "" {
		return logrus.InfoLevel
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
