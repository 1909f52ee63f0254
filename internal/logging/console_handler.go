package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// prettyHandler writes one header line per record followed by indented
// detail bullets. Derived handlers share the writer lock and the cache of
// fields already shown for an item, so repeated values are printed once.
type prettyHandler struct {
	shared    *prettyState
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

type prettyState struct {
	mu    sync.Mutex
	out   io.Writer
	shown map[string]map[string]string
}

type recordHeader struct {
	component string
	lane      string
	itemID    string
	stage     string
	platform  string
}

// slot returns the header field a key fills, or nil.
func (h *recordHeader) slot(key string) *string {
	switch key {
	case FieldComponent:
		return &h.component
	case FieldLane:
		return &h.lane
	case FieldItemID:
		return &h.itemID
	case FieldStage:
		return &h.stage
	case FieldPlatform:
		return &h.platform
	}
	return nil
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{
		shared:    &prettyState{out: w, shown: make(map[string]map[string]string)},
		level:     lvl,
		addSource: addSource,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var kvs []kv
	for _, attr := range h.attrs {
		flattenAttr(&kvs, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	// The first occurrence of a header key wins; the component is only
	// shown in the header, never as a detail field.
	var header recordHeader
	details := make([]kv, 0, len(kvs))
	for _, entry := range kvs {
		if slot := header.slot(entry.key); slot != nil && *slot == "" {
			*slot = attrString(entry.value)
		}
		if entry.key != FieldComponent {
			details = append(details, entry)
		}
	}
	details = dedupeKVsByKey(details)

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	h.shared.mu.Lock()
	defer h.shared.mu.Unlock()
	h.writeHeader(&buf, ts, record, header, message)
	if record.Level < slog.LevelInfo {
		writeDebugFields(&buf, details)
	} else {
		h.writeInfoFields(&buf, record.Level, header, details)
	}
	_, err := h.shared.out.Write(buf.Bytes())
	return err
}

func (h *prettyHandler) writeHeader(buf *bytes.Buffer, ts time.Time, record slog.Record, header recordHeader, message string) {
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if header.component != "" {
		buf.WriteString(" [" + header.component + "]")
	}
	if subject := FormatSubject(header.lane, header.itemID, header.stage); subject != "" {
		buf.WriteString(" " + subject)
	}
	if header.platform != "" {
		buf.WriteString(" @" + header.platform)
	}
	buf.WriteString(" – " + message)
	if src := record.Source(); h.addSource && src != nil {
		buf.WriteString(" [" + sourceLabel(src) + "]")
	}
	buf.WriteByte('\n')
}

func (h *prettyHandler) writeInfoFields(buf *bytes.Buffer, level slog.Level, header recordHeader, attrs []kv) {
	fields, hidden := selectInfoFields(attrs, 0, true)
	fields = h.dropRepeated(infoSummaryKey(header), fields, level)
	for _, field := range fields {
		buf.WriteString("    - " + field.label + ": " + field.value + "\n")
	}
	switch {
	case hidden == 1:
		buf.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		buf.WriteString("    + " + strconv.Itoa(hidden) + " more fields hidden\n")
	}
}

func writeDebugFields(buf *bytes.Buffer, attrs []kv) {
	for _, entry := range attrs {
		buf.WriteString("    " + entry.key + ": " + formatValue(entry.value) + "\n")
	}
}

// dropRepeated removes info fields whose value has not changed since the
// last line for the same item. Warnings and errors always print every
// field but still refresh the cache.
func (h *prettyHandler) dropRepeated(key string, fields []infoField, level slog.Level) []infoField {
	if key == "" {
		return fields
	}
	seen := h.shared.shown[key]
	if seen == nil {
		seen = make(map[string]string)
		h.shared.shown[key] = seen
	}
	kept := fields[:0:0]
	for _, field := range fields {
		if prev, ok := seen[field.label]; !ok || prev != field.value || level > slog.LevelInfo {
			kept = append(kept, field)
		}
		seen[field.label] = field.value
	}
	return kept
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(slices.Clip(h.attrs), attrs...)
	return &clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(slices.Clip(h.groups), name)
	return &clone
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeKVsByKey keeps the first position of each key with its last value.
func dedupeKVsByKey(attrs []kv) []kv {
	index := make(map[string]int, len(attrs))
	out := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if i, ok := index[attr.key]; ok {
			out[i].value = attr.value
			continue
		}
		index[attr.key] = len(out)
		out = append(out, attr)
	}
	return out
}

// flattenAttr appends attr to dst, expanding groups into dotted keys.
func flattenAttr(dst *[]kv, groups []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := groups
		if attr.Key != "" {
			inner = append(slices.Clip(groups), attr.Key)
		}
		for _, child := range value.Group() {
			flattenAttr(dst, inner, child)
		}
		return
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(append(slices.Clip(groups), attr.Key), ".")
		key = strings.TrimSuffix(key, ".")
	}
	*dst = append(*dst, kv{key: key, value: value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
