// Package logger wraps log/slog with process-wide initialization and
// optional rotating file output.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
// Level accepts debug/info/warn/error; Environment "prod" switches to JSON
// output. When FilePath is set, logs are written to a size-rotated file in
// addition to stdout.
type Config struct {
	Level       string
	Environment string
	WithSource  bool
	FilePath    string
}

var (
	global *slog.Logger
	once   sync.Once
)

func levelFromString(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.New("invalid log level: " + level)
	}
}

// New builds a slog.Logger from cfg without touching the global instance.
func New(cfg Config) (*slog.Logger, error) {
	lvl, err := levelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if cfg.FilePath != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    100, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl, AddSource: cfg.WithSource}
	var handler slog.Handler
	if strings.HasPrefix(strings.ToLower(cfg.Environment), "prod") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return slog.New(handler), nil
}

// Init initializes the global logger; repeated calls return the first instance.
func Init(cfg Config) (*slog.Logger, error) {
	var initErr error
	once.Do(func() {
		global, initErr = New(cfg)
	})
	return global, initErr
}

// L returns the initialized global logger, panicking if Init was never called.
func L() *slog.Logger {
	if global == nil {
		panic("logger.Init must be called before logger.L")
	}
	return global
}

// LogChunkProcessing emits a structured record for one chunk-level provider
// call. component is "asr" or "diarize", action is start/success/error.
func LogChunkProcessing(logger *slog.Logger, component, action string, chunkIndex int, durationMs int64, errorCode string) {
	attrs := []slog.Attr{
		slog.String("component", component),
		slog.String("action", action),
		slog.Int("chunk_index", chunkIndex),
		slog.Int64("duration_ms", durationMs),
	}

	if errorCode != "" {
		attrs = append(attrs, slog.String("error_code", errorCode))
		logger.LogAttrs(context.Background(), slog.LevelError, "chunk processing error", attrs...)
	} else {
		logger.LogAttrs(context.Background(), slog.LevelInfo, "chunk processing event", attrs...)
	}
}
