// Package logging provides structured logging built on log/slog, shared by
// both wkmp-ap and wkmp-ai.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
)

var (
	structuredLogger *slog.Logger
	currentLevel     = new(slog.LevelVar)
	loggerMu         sync.RWMutex
	initOnce         sync.Once
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			label, exists := levelNames[level]
			if !exists {
				label = level.String()
			}
			a.Value = slog.StringValue(label)
		}
	}
	if a.Value.Kind() == slog.KindFloat64 {
		truncated := math.Trunc(a.Value.Float64()*100) / 100.0
		a.Value = slog.Float64Value(truncated)
	}
	return a
}

// Init configures the process-wide structured logger. Safe to call once;
// subsequent calls are no-ops.
func Init(jsonOutput bool) {
	initOnce.Do(func() {
		currentLevel.Set(slog.LevelInfo)
		var handler slog.Handler
		opts := &slog.HandlerOptions{Level: currentLevel, ReplaceAttr: replaceAttr}
		if jsonOutput {
			handler = slog.NewJSONHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(os.Stdout, opts)
		}
		loggerMu.Lock()
		structuredLogger = slog.New(handler)
		loggerMu.Unlock()
		slog.SetDefault(structuredLogger)
	})
}

// SetLevel changes the logging level for all loggers sharing the level var.
func SetLevel(level slog.Level) {
	currentLevel.Set(level)
}

// ForService returns a logger scoped with a "service" attribute, creating a
// default process-wide logger on first use.
func ForService(serviceName string) *slog.Logger {
	loggerMu.RLock()
	logger := structuredLogger
	loggerMu.RUnlock()
	if logger == nil {
		Init(false)
		loggerMu.RLock()
		logger = structuredLogger
		loggerMu.RUnlock()
	}
	return logger.With("service", serviceName)
}

// Fatal logs at the custom Fatal level then exits the process.
func Fatal(msg string, args ...any) {
	slog.Log(context.Background(), LevelFatal, msg, args...)
	os.Exit(1)
}

// Trace logs at the custom Trace level.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// AsAttr is a small helper for formatting an error as a slog attribute,
// avoiding %v/%w inconsistency across call sites.
func AsAttr(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", fmt.Sprintf("%v", err))
}
