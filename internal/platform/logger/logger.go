package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures the process logger.
type Options struct {
	Service   string
	Env       string
	Level     string
	AddSource bool
	Output    io.Writer
}

// New returns a JSON slog logger tagged with service and env, and installs it
// as the slog default.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	h := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: opts.AddSource,
	})

	base := slog.New(h).With(
		"service", opts.Service,
		"env", opts.Env,
	)

	slog.SetDefault(base)
	return base
}

// ParseLevel maps a config string to a slog level; unknown values mean info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
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
