// Package logger owns the process wide slog logger: JSON records in the
// workspace log file, optionally mirrored as text to a console writer.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Dir is the workspace relative directory holding the log file.
const Dir = ".pytmc"

// FileName is the log file inside Dir/logs.
const FileName = "pytmc.log"

type Config struct {
	Root  string
	Debug bool

	// Console, when set, also receives records at ConsoleLevel and above.
	Console      io.Writer
	ConsoleLevel slog.Level
}

var (
	mu      sync.RWMutex
	global  = discard()
	logFile *os.File
	logPath string
)

// Setup opens <root>/.pytmc/logs/pytmc.log and installs the logger. On
// failure the global logger is left discarding (or console only) and the
// error is returned for the caller to ignore or report.
func Setup(cfg Config) (func() error, error) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	_ = Close()
	f, path, err := openLogFile(cfg.Root)
	if err != nil {
		install(consoleOnly(cfg), nil, "")
		return nil, err
	}

	handlers := []slog.Handler{
		slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level:       level,
			AddSource:   cfg.Debug,
			ReplaceAttr: utcTime,
		}),
	}
	if cfg.Console != nil {
		handlers = append(handlers, consoleHandler(cfg))
	}

	l := slog.New(fanout(handlers))
	install(l, f, path)
	l.Info("logger.initialized", "path", path, "debug", cfg.Debug, "console", cfg.Console != nil)

	return Close, nil
}

// Close shuts the log file and resets the logger to discard. It is safe to
// call when nothing is open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	var err error
	if logFile != nil {
		err = logFile.Close()
	}
	logFile = nil
	logPath = ""
	global = discard()
	return err
}

func openLogFile(root string) (*os.File, string, error) {
	if root == "" {
		root = "."
	}
	dir := filepath.Join(filepath.Clean(root), Dir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", err
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

func install(l *slog.Logger, f *os.File, path string) {
	mu.Lock()
	defer mu.Unlock()
	global = l
	logFile = f
	logPath = path
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
	}
	return a
}

func consoleHandler(cfg Config) slog.Handler {
	return slog.NewTextHandler(cfg.Console, &slog.HandlerOptions{
		Level: cfg.ConsoleLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
}

func consoleOnly(cfg Config) *slog.Logger {
	if cfg.Console == nil {
		return discard()
	}
	return slog.New(consoleHandler(cfg))
}

func discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Path is the current log file, empty when no file is open.
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return logPath
}

func IsReady() error {
	mu.RLock()
	defer mu.RUnlock()
	if logFile == nil || logPath == "" {
		return errors.New("logger not initialized")
	}
	return nil
}

// multiHandler sends each record to every handler that accepts its level.
type multiHandler []slog.Handler

func fanout(hs []slog.Handler) slog.Handler {
	if len(hs) == 1 {
		return hs[0]
	}
	return multiHandler(hs)
}

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}
