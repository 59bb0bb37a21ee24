package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBright  = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string { return ansiRe.ReplaceAllString(s, "") }

// palette wraps text in ANSI codes when enabled.
type palette bool

func (p palette) wrap(code, s string) string {
	if !p || code == "" {
		return s
	}
	return code + s + ansiReset
}

// prettyHandler writes one key=value line per record for terminals.
// Attributes added through WithAttrs are rendered once and reused.
type prettyHandler struct {
	out       io.Writer
	mu        *sync.Mutex
	level     slog.Leveler
	addSource bool
	pal       palette

	groupPrefix string
	preformat   string
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{out: w, mu: new(sync.Mutex), level: slog.LevelInfo, pal: palette(color)}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.addSource = opts.AddSource
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ts=%s lvl=%s msg=%s",
		h.pal.wrap(ansiDim, ts.Format("15:04:05.000")),
		h.levelTag(r.Level),
		h.pal.wrap(ansiBright, r.Message))

	if h.addSource && r.PC != 0 {
		if f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next(); f.File != "" {
			sb.WriteString(" src=")
			sb.WriteString(h.pal.wrap(ansiDim, filepath.Base(f.File)+":"+strconv.Itoa(f.Line)))
		}
	}

	sb.WriteString(h.preformat)
	r.Attrs(func(a slog.Attr) bool {
		h.render(&sb, h.groupPrefix, a)
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, sb.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var sb strings.Builder
	sb.WriteString(h.preformat)
	for _, a := range attrs {
		h.render(&sb, h.groupPrefix, a)
	}
	cp := *h
	cp.preformat = sb.String()
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return h
	}
	cp := *h
	cp.groupPrefix = h.groupPrefix + name + "."
	return &cp
}

// render appends " key=value" for a, flattening groups into dotted keys.
func (h *prettyHandler) render(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := strings.TrimSpace(a.Key)
	if key == "" {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, member := range a.Value.Group() {
			h.render(sb, prefix+key+".", member)
		}
		return
	}

	name, val := prefix+key, ""
	if st, ok := fieldStyles[name]; ok {
		if st.label != "" {
			name = st.label
		}
		val = st.format(h.pal, a.Value)
	}
	if val == "" {
		val = quoteIfNeeded(valueToString(a.Value))
	}
	sb.WriteByte(' ')
	sb.WriteString(name)
	sb.WriteByte('=')
	sb.WriteString(val)
}

// fieldStyle renames and colors well-known request log fields. format
// returns "" to fall back to the plain rendering.
type fieldStyle struct {
	label  string
	format func(palette, slog.Value) string
}

var fieldStyles = map[string]fieldStyle{
	"method": {format: func(p palette, v slog.Value) string {
		m := strings.ToUpper(strings.TrimSpace(v.String()))
		return p.wrap(methodColors[m], m)
	}},
	"path": {format: func(p palette, v slog.Value) string {
		return p.wrap(ansiCyan, strings.TrimSpace(v.String()))
	}},
	"status": {format: func(p palette, v slog.Value) string {
		n, ok := valueToInt64(v)
		if !ok {
			return ""
		}
		return p.wrap(statusColor(int(n)), strconv.FormatInt(n, 10))
	}},
	"status_class": {label: "class", format: formatClass},
	"class":        {format: formatClass},
	"duration_ms": {label: "duration", format: func(p palette, v slog.Value) string {
		ms, ok := valueToInt64(v)
		if !ok {
			return ""
		}
		code := ansiDim
		if ms >= 1000 {
			code = ansiRed
		} else if ms >= 250 {
			code = ansiYellow
		}
		return p.wrap(code, strconv.FormatInt(ms, 10)+"ms")
	}},
	"result": {format: formatOutcome},
	"state":  {format: formatOutcome},
}

var methodColors = map[string]string{
	"GET":    ansiGreen,
	"POST":   ansiYellow,
	"DELETE": ansiRed,
}

var outcomeColors = map[string]string{
	"success":             ansiGreen,
	"valid":               ansiGreen,
	"ok":                  ansiGreen,
	"redirect":            ansiCyan,
	"expired":             ansiCyan,
	"client_error":        ansiYellow,
	"malformed":           ansiYellow,
	"rate_limited":        ansiYellow,
	"invalid_credentials": ansiYellow,
	"server_error":        ansiRed,
	"store_unavailable":   ansiRed,
}

func formatClass(p palette, v slog.Value) string {
	c := strings.TrimSpace(v.String())
	if c == "" || c[0] < '1' || c[0] > '5' {
		return ""
	}
	return p.wrap(statusColor(int(c[0]-'0')*100), c)
}

func formatOutcome(p palette, v slog.Value) string {
	s := strings.ToLower(strings.TrimSpace(v.String()))
	code, ok := outcomeColors[s]
	if !ok {
		return ""
	}
	return p.wrap(code, s)
}

func statusColor(status int) string {
	switch {
	case status >= 500:
		return ansiRed
	case status >= 400:
		return ansiYellow
	case status >= 300:
		return ansiCyan
	default:
		return ansiGreen
	}
}

func (h *prettyHandler) levelTag(l slog.Level) string {
	tag, code := "[INFO]", ansiBlue
	switch {
	case l >= slog.LevelError:
		tag, code = "[ERROR]", ansiRed
	case l >= slog.LevelWarn:
		tag, code = "[WARN]", ansiYellow
	case l < slog.LevelInfo:
		tag, code = "[DEBUG]", ansiMagenta
	}
	return h.pal.wrap(code, tag)
}

func valueToString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	default:
		// Int, uint, bool and duration already print plainly via String.
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func valueToInt64(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= 1<<62 {
			return int64(u), true // #nosec G115 -- bounded above.
		}
	case slog.KindFloat64:
		return int64(v.Float64()), true
	case slog.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		return n, err == nil
	}
	return 0, false
}
