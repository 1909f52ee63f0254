package logging

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// LogEvent represents a structured log line published to the streaming hub.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	ItemID        int64             `json:"item_id,omitempty"`
	Lane          string            `json:"lane,omitempty"`
	Platform      string            `json:"platform,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField mirrors the console handler's info bullet lines.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogFilter narrows hub reads to one item, component, stage or platform.
// Empty fields match everything.
type LogFilter struct {
	ItemID    int64
	Component string
	Stage     string
	Platform  string
}

// Match reports whether evt passes the filter.
func (f LogFilter) Match(evt LogEvent) bool {
	if f.ItemID != 0 && evt.ItemID != f.ItemID {
		return false
	}
	return matchFold(f.Component, evt.Component) &&
		matchFold(f.Stage, evt.Stage) &&
		matchFold(f.Platform, evt.Platform)
}

func matchFold(want, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, got)
}

// StreamHub keeps the most recent log events in memory for /api/logs.
// Readers long-poll by sequence number.
type StreamHub struct {
	mu       sync.Mutex
	capacity int
	buffer   []LogEvent
	nextSeq  uint64
	// notify is closed and replaced on every publish.
	notify chan struct{}
}

// NewStreamHub constructs a hub holding at most capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	return &StreamHub{capacity: capacity, notify: make(chan struct{})}
}

// Publish appends a new log event to the hub.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		h.buffer = append(h.buffer[:0], h.buffer[1:]...)
	}
	h.buffer = append(h.buffer, evt)
	close(h.notify)
	h.notify = make(chan struct{})
}

// Fetch returns up to limit matching events with a sequence greater than
// since, plus the cursor to pass on the next call. With wait set it blocks
// until a matching event arrives or ctx ends.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool, filter LogFilter) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	limit = h.clampLimit(limit)
	for {
		h.mu.Lock()
		events, next := h.collectLocked(since, limit, filter)
		notify := h.notify
		h.mu.Unlock()

		if len(events) > 0 || !wait {
			return events, next, nil
		}
		since = next
		select {
		case <-ctx.Done():
			return nil, next, ctx.Err()
		case <-notify:
		}
	}
}

// Tail returns the most recent limit matching events without blocking.
func (h *StreamHub) Tail(limit int, filter LogFilter) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	limit = h.clampLimit(limit)
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []LogEvent
	for i := len(h.buffer) - 1; i >= 0 && len(out) < limit; i-- {
		if filter.Match(h.buffer[i]) {
			out = append(out, h.buffer[i])
		}
	}
	slices.Reverse(out)
	return out, h.nextSeq
}

// FirstSequence reports the smallest sequence number still buffered.
func (h *StreamHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return h.nextSeq
	}
	return h.buffer[0].Sequence
}

func (h *StreamHub) clampLimit(limit int) int {
	if limit <= 0 || limit > h.capacity {
		return h.capacity
	}
	return limit
}

// collectLocked scans forward from since. The cursor stops at the last
// returned event when limit cuts the scan short, so nothing is skipped.
func (h *StreamHub) collectLocked(since uint64, limit int, filter LogFilter) ([]LogEvent, uint64) {
	var out []LogEvent
	for _, evt := range h.buffer {
		if evt.Sequence <= since || !filter.Match(evt) {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			return out, evt.Sequence
		}
	}
	return out, h.nextSeq
}

// streamHandler copies every record into a StreamHub before passing it on.
type streamHandler struct {
	next   slog.Handler
	hub    *StreamHub
	attrs  []slog.Attr
	groups []string
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	var kvs []kv
	for _, attr := range h.attrs {
		flattenAttr(&kvs, nil, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	h.hub.Publish(newLogEvent(record, kvs))
	return h.next.Handle(ctx, record.Clone())
}

// WithAttrs records attrs pre-flattened under the current groups so
// later WithGroup calls do not re-prefix them.
func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = slices.Clip(h.attrs)
	for _, attr := range attrs {
		if len(h.groups) > 0 {
			attr = slog.Attr{Key: strings.Join(h.groups, "."), Value: slog.GroupValue(attr)}
		}
		clone.attrs = append(clone.attrs, attr)
	}
	return &clone
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.groups = append(slices.Clip(h.groups), name)
	return &clone
}

// newLogEvent lifts the standard context keys into event fields and keeps
// the rest as free-form fields. Later values win.
func newLogEvent(record slog.Record, kvs []kv) LogEvent {
	event := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
		Fields:    make(map[string]string),
	}
	targets := map[string]*string{
		FieldComponent:     &event.Component,
		FieldStage:         &event.Stage,
		FieldLane:          &event.Lane,
		FieldPlatform:      &event.Platform,
		FieldCorrelationID: &event.CorrelationID,
	}
	for _, entry := range kvs {
		switch target, ok := targets[entry.key]; {
		case entry.key == FieldItemID:
			event.ItemID = attrInt64(entry.value)
		case ok:
			*target = attrString(entry.value)
		case entry.key != "":
			event.Fields[entry.key] = attrString(entry.value)
		}
	}

	info, _ := selectInfoFields(dedupeKVsByKey(kvs), infoAttrLimit, false)
	for _, field := range info {
		event.Details = append(event.Details, DetailField{Label: field.label, Value: field.value})
	}
	return event
}

func attrInt64(v slog.Value) int64 {
	switch v = v.Resolve(); v.Kind() {
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return int64(v.Uint64())
	case slog.KindFloat64:
		return int64(v.Float64())
	}
	return 0
}
