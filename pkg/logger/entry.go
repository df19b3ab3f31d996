package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogEntry is one line of JSON log output. The ids that tie a log line to an
// inbound event are lifted out of Fields.
type LogEntry struct {
	Level     string         `json:"level"`
	Timestamp string         `json:"timestamp"`
	Component string         `json:"component,omitempty"`
	EventID   string         `json:"event_id,omitempty"`
	ChannelID string         `json:"channel_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Caller    string         `json:"caller,omitempty"`
}

// promoted maps top-level attribute keys onto LogEntry fields.
var promoted = map[string]func(*LogEntry) *string{
	"component":  func(e *LogEntry) *string { return &e.Component },
	"event_id":   func(e *LogEntry) *string { return &e.EventID },
	"channel_id": func(e *LogEntry) *string { return &e.ChannelID },
	"user_id":    func(e *LogEntry) *string { return &e.UserID },
}

// entryHandler is the slog.Handler behind the json format.
type entryHandler struct {
	level     slog.Level
	addSource bool
	writer    io.Writer
	attrs     []slog.Attr
	groups    []string
	mu        *sync.Mutex
}

func (h *entryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *entryHandler) Handle(_ context.Context, record slog.Record) error {
	line, err := json.Marshal(h.entry(record))
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(append(line, '\n'))
	return err
}

func (h *entryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *entryHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	return &next
}

func (h *entryHandler) entry(record slog.Record) LogEntry {
	at := record.Time
	if at.IsZero() {
		at = time.Now()
	}

	e := LogEntry{
		Level:     strings.ToLower(record.Level.String()),
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Message:   record.Message,
	}
	if h.addSource {
		e.Caller = caller(record.PC)
	}

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	add := func(attr slog.Attr) bool {
		attr.Value = attr.Value.Resolve()
		if attr.Equal(slog.Attr{}) {
			return true
		}

		key := prefix + attr.Key
		if field, ok := promoted[key]; ok && attr.Value.Kind() == slog.KindString {
			*field(&e) = attr.Value.String()
			return true
		}

		if e.Fields == nil {
			e.Fields = make(map[string]any)
		}
		e.Fields[key] = attrValue(attr.Value)
		return true
	}

	for _, attr := range h.attrs {
		add(attr)
	}
	record.Attrs(add)

	return e
}

func caller(pc uintptr) string {
	if pc == 0 {
		return ""
	}

	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}

	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}

// attrValue converts v to something encoding/json renders readably.
func attrValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindGroup:
		group := make(map[string]any, len(v.Group()))
		for _, item := range v.Group() {
			group[item.Key] = attrValue(item.Value.Resolve())
		}
		return group
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case fmt.Stringer:
			return x.String()
		}
		return v.Any()
	default:
		return v.Any()
	}
}
