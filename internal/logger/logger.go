// Package logger wraps log/slog with a process-wide logger configured from the environment.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

var (
	Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	level  atomic.Int64
)

func init() {
	level.Store(int64(slog.LevelInfo))
}

// Options controls how Configure builds the logger.
type Options struct {
	Level string
	File  string
	JSON  bool
}

// Configure replaces Logger. Invalid options are reported but a usable logger is always installed.
func Configure(opts Options) error {
	lvl := slog.Level(level.Load())
	var levelErr error
	if strings.TrimSpace(opts.Level) != "" {
		lvl, levelErr = ParseLevel(opts.Level)
	}

	writer := io.Writer(os.Stdout)
	var fileErr error
	if path := strings.TrimSpace(opts.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fileErr = err
		} else if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			fileErr = err
		} else {
			writer = io.MultiWriter(os.Stdout, f)
		}
	}

	level.Store(int64(lvl))
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	if opts.JSON {
		Logger = slog.New(slog.NewJSONHandler(writer, handlerOpts))
	} else {
		Logger = slog.New(slog.NewTextHandler(writer, handlerOpts))
	}
	slog.SetDefault(Logger)

	return errors.Join(levelErr, fileErr)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", value)
	}
}

// Enabled reports whether messages at lvl are currently emitted.
func Enabled(lvl slog.Level) bool {
	return lvl >= slog.Level(level.Load())
}

func Debug(msg string, args ...any) { Logger.Debug(msg, args...) }
func Info(msg string, args ...any)  { Logger.Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger.Warn(msg, args...) }
func Error(msg string, args ...any) { Logger.Error(msg, args...) }

type ctxKey struct{}

// WithContext stores a request-scoped logger.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger, or Logger when none was stored.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return Logger
}
