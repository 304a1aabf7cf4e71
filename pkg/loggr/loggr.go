package loggr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// LevelTrace is below slog.LevelDebug, used for per-buffer records.
const LevelTrace = slog.Level(-8)

const timeFormat = "2006-01-02 15:04:05.000 -07"

// Handler renders records as
//
//	2025-01-02 15:04:05.000 +05 -- [appCode] -- INFO    -- message key=value ...
type Handler struct {
	level   slog.Leveler
	appCode string

	mu *sync.Mutex
	w  io.Writer

	attrs  string // preformatted attributes added with WithAttrs
	groups string // group prefix for keys
}

var _ slog.Handler = (*Handler)(nil)

func NewHandler(w io.Writer, level slog.Leveler, appCode string) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	if appCode == "" {
		appCode = fmt.Sprintf("%d", os.Getpid())
	}
	return &Handler{
		level:   level,
		appCode: appCode,
		mu:      &sync.Mutex{},
		w:       w,
	}
}

var once sync.Once

// Init installs the handler as the slog default (only once).
func Init(level slog.Leveler, appCode string) {
	once.Do(func() {
		slog.SetDefault(slog.New(NewHandler(os.Stderr, level, appCode)))
	})
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	fmt.Fprintf(&sb, "%s -- [%s] -- %-7s -- %s", ts.Format(timeFormat), h.appCode, LevelLabel(r.Level), r.Message)
	sb.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&sb, h.groups, a)
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
	sb.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&sb, h.groups, a)
	}
	h2 := *h
	h2.attrs = sb.String()
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = h.groups + name + "."
	return &h2
}

func appendAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(sb, p, ga)
		}
		return
	}

	val := a.Value.String()
	if strings.ContainsAny(val, " \t\n\"=") {
		val = fmt.Sprintf("%q", val)
	}
	sb.WriteByte(' ')
	sb.WriteString(prefix)
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	sb.WriteString(val)
}

// LevelLabel returns the label printed for level.
func LevelLabel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

// ParseLevel maps a config value to a level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}
