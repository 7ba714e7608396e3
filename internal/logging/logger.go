// Package logging builds the station's slog logger: text lines to stdout and,
// optionally, to a size-rotated log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB  = 10
	maxBackups = 5
	maxAgeDays = 90
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing to stdout and, when file is non-empty, to a
// rotating file. The returned Closer flushes and closes the file. If the log
// directory cannot be created the logger falls back to stdout only and says so.
func New(file string, level slog.Level, stdout io.Writer) (*slog.Logger, io.Closer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: level}

	if file == "" {
		return slog.New(slog.NewTextHandler(stdout, opts)), nopCloser{}
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		logger := slog.New(slog.NewTextHandler(stdout, opts))
		logger.Error("failed to create log directory; falling back to stdout only", "path", file, "error", err)
		return logger, nopCloser{}
	}

	rotating := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		LocalTime:  true,
	}
	h := slog.NewTextHandler(io.MultiWriter(rotating, stdout), opts)
	return slog.New(h), rotating
}
