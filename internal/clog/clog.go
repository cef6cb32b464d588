// Package clog carries a structured logger through a context, the same way
// instance.Instance does, so call chains that never thread a logger
// parameter still log through whatever logger the caller installed.
package clog

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

type contextKey struct{}

var key = contextKey{}

// New builds a logger writing to w. When w is a terminal, output is
// colorized; otherwise it falls back to plain JSON suitable for log
// aggregation.
func New(w io.Writer, level slog.Level) *slog.Logger {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return slog.New(tint.NewHandler(w, &tint.Options{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Default is used by Ctx when no logger has been installed in the context.
var Default = New(os.Stderr, slog.LevelInfo)

// With returns a context carrying logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, key, logger)
}

// Ctx returns the logger installed in ctx, or Default if none was installed.
func Ctx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return Default
	}
	if l, ok := ctx.Value(key).(*slog.Logger); ok {
		return l
	}
	return Default
}
