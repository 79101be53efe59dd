// Package log configures the process-wide slog logger: a console handler
// in text or JSON form plus an optional rotating JSON file.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization. Defaults: info level, text
// console output, no file.
type Options struct {
	Level     string
	Format    string // "text" or "json"
	AddSource bool
	File      string // enables rotated JSON file output

	// Console overrides stderr. Used by tests.
	Console io.Writer
}

var (
	mu      sync.RWMutex
	current *slog.Logger
	file    *lj.Logger
)

// Init builds the logger described by opts and installs it as slog.Default.
// A previous rotating file is closed.
func Init(opts Options) *slog.Logger {
	lvl := ParseLevel(opts.Level)
	hopts := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}

	out := opts.Console
	if out == nil {
		out = os.Stderr
	}
	var console slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		console = slog.NewJSONHandler(out, hopts)
	} else {
		console = slog.NewTextHandler(out, hopts)
	}

	handlers := []slog.Handler{console}
	var w *lj.Logger
	if path := strings.TrimSpace(opts.File); path != "" {
		w = &lj.Logger{Filename: path, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		handlers = append(handlers, slog.NewJSONHandler(w, hopts))
	}

	var h slog.Handler = console
	if len(handlers) > 1 {
		h = &fanout{hs: handlers}
	}
	logger := slog.New(h).With(slog.String("app", "collage"))

	mu.Lock()
	if file != nil {
		_ = file.Close()
	}
	current, file = logger, w
	mu.Unlock()

	slog.SetDefault(logger)
	return logger
}

// L returns the configured logger, or slog.Default before Init.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return slog.Default()
	}
	return current
}

// WithComponent returns a logger tagged with a component name.
func WithComponent(name string) *slog.Logger {
	return L().With(slog.String("component", name))
}

// Close flushes and closes the rotating file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanout sends each record to every handler.
type fanout struct{ hs []slog.Handler }

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f.hs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(f.hs))
	for i, h := range f.hs {
		hs[i] = h.WithAttrs(attrs)
	}
	return &fanout{hs: hs}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(f.hs))
	for i, h := range f.hs {
		hs[i] = h.WithGroup(name)
	}
	return &fanout{hs: hs}
}
