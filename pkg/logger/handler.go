package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const errKey = "err"

type Options struct {
	Level      slog.Leveler
	TimeFormat string
	NoColor    bool
}

var DefaultOptions = &Options{
	Level:      slog.LevelInfo,
	TimeFormat: time.TimeOnly,
}

// Err wraps an error into an attribute under a fixed key.
func Err(err error) slog.Attr {
	return slog.Any(errKey, err)
}

// Handler is a line-oriented console handler: "15:04:05 INF message k=v".
type Handler struct {
	opts   Options
	mu     *sync.Mutex
	w      io.Writer
	attrs  string
	groups []string
}

func NewHandler(w io.Writer, opts *Options) *Handler {
	if opts == nil {
		opts = DefaultOptions
	}
	o := *opts
	if o.Level == nil {
		o.Level = slog.LevelInfo
	}
	if o.TimeFormat == "" {
		o.TimeFormat = time.TimeOnly
	}
	return &Handler{opts: o, mu: &sync.Mutex{}, w: w}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	if !r.Time.IsZero() {
		sb.WriteString(h.paint(color.New(color.Faint), r.Time.Format(h.opts.TimeFormat)))
		sb.WriteByte(' ')
	}
	sb.WriteString(h.levelTag(r.Level))
	sb.WriteByte(' ')
	sb.WriteString(r.Message)
	sb.WriteString(h.attrs)

	prefix := h.groupPrefix()
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&sb, prefix, a)
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var sb strings.Builder
	prefix := h.groupPrefix()
	for _, a := range attrs {
		h.appendAttr(&sb, prefix, a)
	}
	h2 := *h
	h2.attrs = h.attrs + sb.String()
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(append([]string(nil), h.groups...), name)
	return &h2
}

func (h *Handler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

func (h *Handler) appendAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(sb, prefix, ga)
		}
		return
	}

	key := prefix + a.Key
	value := formatValue(a.Value)
	sb.WriteByte(' ')
	if a.Key == errKey {
		sb.WriteString(h.paint(color.New(color.FgRed), key+"="+value))
		return
	}
	sb.WriteString(h.paint(color.New(color.Faint), key+"="))
	sb.WriteString(value)
}

func (h *Handler) levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return h.paint(color.New(color.FgRed, color.Bold), "ERR")
	case level >= slog.LevelWarn:
		return h.paint(color.New(color.FgYellow), "WRN")
	case level >= slog.LevelInfo:
		return h.paint(color.New(color.FgGreen), "INF")
	default:
		return h.paint(color.New(color.FgCyan), "DBG")
	}
}

func (h *Handler) paint(c *color.Color, s string) string {
	if h.opts.NoColor || color.NoColor {
		return s
	}
	return c.Sprint(s)
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
