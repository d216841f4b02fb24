package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/texmk/internal/ui/output"
	"go.trai.ch/texmk/internal/ui/style"
)

// ConsoleHandler is a slog.Handler for the interactive console: one record
// per line, an icon for warnings and errors, attributes dimmed behind the
// message. Tool transcripts quoted in messages stay readable because records
// never expand into multi-line key=value blocks.
type ConsoleHandler struct {
	out   *termenv.Output
	level slog.Level
	attrs []slog.Attr
	group string
}

// NewConsoleHandler creates a ConsoleHandler writing to w, or stderr when w
// is nil.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level.Level()
	}
	return &ConsoleHandler{out: output.New(w), level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats and outputs the log record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	icon, color := levelDecoration(r.Level)

	msg := r.Message
	if icon != "" {
		msg = icon + " " + msg
	}
	line := h.out.String(msg).Foreground(color).String()

	if attrs := h.renderAttrs(r); attrs != "" {
		line += " " + h.out.String(attrs).Foreground(termenv.RGBColor(string(style.Slate))).Faint().String()
	}

	_, err := h.out.WriteString(line + "\n")
	return err
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Concat(h.attrs, attrs)
	return &clone
}

// WithGroup returns a new Handler with the given group name.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.group = name
	return &clone
}

// renderAttrs joins the handler's bound attributes and the record's own into
// one key=value list.
func (h *ConsoleHandler) renderAttrs(r slog.Record) string {
	parts := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, attr := range h.attrs {
		parts = append(parts, h.formatAttr(attr))
	}
	r.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, h.formatAttr(attr))
		return true
	})
	return strings.Join(parts, " ")
}

// formatAttr formats a single attribute, prefixing the key with the group
// name when one is set.
func (h *ConsoleHandler) formatAttr(attr slog.Attr) string {
	key := attr.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	return key + "=" + attr.Value.String()
}

// levelDecoration maps a record level to its icon and color. Custom levels
// fold into the nearest standard one.
func levelDecoration(level slog.Level) (string, termenv.Color) {
	switch {
	case level >= slog.LevelError:
		return style.Cross, termenv.RGBColor(string(style.Red))
	case level >= slog.LevelWarn:
		return style.Warning, termenv.RGBColor(string(style.Yellow))
	default:
		return "", termenv.RGBColor(string(style.Slate))
	}
}
