// Package obslog configures the process-wide structured logger: a text
// handler for interactive terminals, a JSON handler otherwise.
package obslog

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Config controls logger construction.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // "" (auto), "text", "json"
	Output io.Writer
}

// New builds a *slog.Logger per cfg. An empty Format auto-detects: JSON when
// Output is not a TTY or RAGCORE_LOG_FORMAT=json is set, text otherwise.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	format := cfg.Format
	if format == "" {
		format = os.Getenv("RAGCORE_LOG_FORMAT")
	}

	var handler slog.Handler
	if format == "json" || (format == "" && !isTerminal(out)) {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// SetupDefault builds a logger per cfg and installs it as slog's default.
func SetupDefault(cfg Config) *slog.Logger {
	logger := New(cfg)
	slog.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
