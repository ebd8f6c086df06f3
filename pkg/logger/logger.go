package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Leveled logger used across the service. It keeps the printf-style helpers
// (Infof, Warnf, ...) and writes through log/slog so output can be switched
// between text and JSON.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// levelFatal sits above slog.LevelError so fatal lines are never filtered.
const levelFatal = slog.Level(12)

var (
	mu     sync.RWMutex
	level  = LevelInfo
	format = "text"
	out    io.Writer = os.Stdout
	base   = newHandlerLogger(os.Stdout, "text")
	exit   = os.Exit
)

func newHandlerLogger(w io.Writer, f string) *slog.Logger {
	opts := &slog.HandlerOptions{
		// filtering is done by shouldLog so SetOutput keeps the current level
		Level: slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lv, ok := a.Value.Any().(slog.Level); ok && lv == levelFatal {
					a.Value = slog.StringValue("FATAL")
				}
			}
			return a
		},
	}
	if f == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = parseLevel(l)
}

// SetFormat switches the output encoding ("json" or "text").
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	format = strings.ToLower(strings.TrimSpace(f))
	base = newHandlerLogger(out, format)
}

// SetOutput redirects log output; used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	base = newHandlerLogger(out, format)
}

func parseLevel(l string) Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func emit(l slog.Level, msg string) {
	mu.RLock()
	lg := base
	mu.RUnlock()
	lg.Log(context.Background(), l, msg)
}

func Debugf(format string, v ...interface{}) {
	if !shouldLog(LevelDebug) {
		return
	}
	emit(slog.LevelDebug, fmt.Sprintf(format, v...))
}

func Infof(format string, v ...interface{}) {
	if !shouldLog(LevelInfo) {
		return
	}
	emit(slog.LevelInfo, fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	if !shouldLog(LevelWarn) {
		return
	}
	emit(slog.LevelWarn, fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	if !shouldLog(LevelError) {
		return
	}
	emit(slog.LevelError, fmt.Sprintf(format, v...))
}

func Fatalf(format string, v ...interface{}) {
	emit(levelFatal, fmt.Sprintf(format, v...))
	exit(1)
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
