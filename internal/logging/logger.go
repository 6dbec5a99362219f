// v1
// internal/logging/logger.go
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

// Init configures slog to log to both stdout and <logDir>/<service>.log.
// An empty logDir means stdout only. It returns the *slog.Logger and the
// opened *os.File so callers can Close() on shutdown; the file is nil when
// logging to stdout only.
func Init(service, logDir string) (*slog.Logger, *os.File) {
	stdout := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if logDir == "" {
		return stdout, nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		stdout.Error("cannot create log dir; falling back to stdout only", "dir", logDir, "error", err)
		return stdout, nil
	}

	filePath := filepath.Join(logDir, service+".log")
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		stdout.Error("failed to open log file; falling back to stdout only", "path", filePath, "error", err)
		return stdout, nil
	}

	mw := io.MultiWriter(f, os.Stdout)
	logger := slog.New(slog.NewTextHandler(mw, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// make legacy stdlib log align to the multi-writer too
	log.SetOutput(mw)
	return logger, f
}
