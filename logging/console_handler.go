package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/toxikkmodding/toxikk-launcher/console"
)

// consoleHandler is a slog.Handler that writes one colored line per record
type consoleHandler struct {
	con    *console.Console
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string // group prefix for attribute keys
}

func newConsoleHandler(con *console.Console, level slog.Leveler) *consoleHandler {
	return &consoleHandler{con: con, level: level}
}

// Enabled implements slog.Handler
func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler
func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(levelPrefix(r.Level))
	sb.WriteString(r.Message)

	write := func(a slog.Attr) bool {
		// destination is a filter tag, not something the operator needs to read
		if a.Equal(slog.Attr{}) || a.Key == "destination" {
			return true
		}
		sb.WriteString(" ")
		sb.WriteString(h.prefix)
		sb.WriteString(a.Key)
		sb.WriteString("=")
		sb.WriteString(console.Escape(a.Value.Resolve().String()))
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)

	h.con.WriteLine(sb.String())
	return nil
}

// WithAttrs implements slog.Handler
func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler
func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// levelPrefix returns the colored severity marker for a level
func levelPrefix(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "^CERROR:^7 "
	case level >= slog.LevelWarn:
		return "^EWARNING:^7 "
	case level >= slog.LevelInfo:
		return "^FINFO:^7 "
	default:
		return "^8DEBUG:^7 "
	}
}
