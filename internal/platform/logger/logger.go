package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a structured logger writing to stdout. Development uses the
// text handler at debug level; everything else emits JSON at info level.
func New(development bool) *slog.Logger {
	return newWithWriter(os.Stdout, development)
}

func newWithWriter(w io.Writer, development bool) *slog.Logger {
	if development {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
