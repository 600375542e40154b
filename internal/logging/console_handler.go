package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
	infoCache map[string]map[string]string
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{
		mu:        &sync.Mutex{},
		writer:    w,
		level:     lvl,
		addSource: addSource,
		infoCache: make(map[string]map[string]string),
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	allAttrs := dedupeKVsByKey(append([]kv(nil), kvs...))

	var component, jobID, stage string
	filtered := make([]kv, 0, len(kvs))
	for _, kv := range kvs {
		switch kv.key {
		case FieldComponent:
			if component == "" {
				component = attrString(kv.value)
			}
			continue
		case FieldJobID:
			if jobID == "" {
				jobID = attrString(kv.value)
			}
		case FieldStage:
			if stage == "" {
				stage = attrString(kv.value)
			}
		}
		filtered = append(filtered, kv)
	}
	filtered = dedupeKVsByKey(filtered)

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(filtered)*32)

	h.mu.Lock()
	defer h.mu.Unlock()
	header := logHeader{ts: timestamp, level: record.Level, component: component, jobID: jobID, stage: stage, message: message}
	if h.addSource {
		header.src = record.Source()
	}
	if record.Level < slog.LevelInfo {
		h.writeDebug(&buf, header, allAttrs)
	} else {
		h.writeInfo(&buf, header, filtered)
	}
	_, err := h.writer.Write(buf.Bytes())
	return err
}

type logHeader struct {
	ts        time.Time
	level     slog.Level
	component string
	jobID     string
	stage     string
	message   string
	src       *slog.Source
}

func (h *prettyHandler) writeInfo(buf *bytes.Buffer, header logHeader, attrs []kv) {
	writeLogHeader(buf, header)
	fields, hidden := selectInfoFields(attrs)
	fields = h.filterRepeatedInfo(infoSummaryKey(header.component, header.jobID), fields, header.level)
	buf.WriteByte('\n')
	for _, field := range fields {
		buf.WriteString("    - ")
		buf.WriteString(field.label)
		buf.WriteString(": ")
		buf.WriteString(field.value)
		buf.WriteByte('\n')
	}
	if hidden > 0 {
		buf.WriteString("    + ")
		buf.WriteString(strconv.Itoa(hidden))
		buf.WriteString(" more field")
		if hidden != 1 {
			buf.WriteByte('s')
		}
		buf.WriteString(" hidden\n")
	}
}

func (h *prettyHandler) writeDebug(buf *bytes.Buffer, header logHeader, attrs []kv) {
	writeLogHeader(buf, header)
	buf.WriteByte('\n')
	for _, kv := range attrs {
		if kv.key == "" {
			continue
		}
		buf.WriteString("    ")
		buf.WriteString(kv.key)
		buf.WriteString(": ")
		buf.WriteString(formatValue(kv.value))
		buf.WriteByte('\n')
	}
}

func writeLogHeader(buf *bytes.Buffer, header logHeader) {
	buf.WriteString(formatTimestamp(header.ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(header.level))
	if header.component != "" {
		buf.WriteString(" [")
		buf.WriteString(header.component)
		buf.WriteByte(']')
	}
	if subject := FormatSubject(header.jobID, header.stage); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	buf.WriteString(" - ")
	buf.WriteString(header.message)
	if header.src != nil {
		buf.WriteString(" [")
		buf.WriteString(filepath.Base(header.src.File))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(header.src.Line))
		buf.WriteByte(']')
	}
}

// FormatSubject builds the job/stage subject string used in console output.
func FormatSubject(jobID, stage string) string {
	jobID = strings.TrimSpace(jobID)
	stage = strings.TrimSpace(stage)
	switch {
	case jobID != "" && stage != "":
		return "Job #" + jobID + " (" + stage + ")"
	case jobID != "":
		return "Job #" + jobID
	default:
		return stage
	}
}

// filterRepeatedInfo drops info fields whose value has not changed since the
// last line logged for the same job. Warnings and errors always show everything.
func (h *prettyHandler) filterRepeatedInfo(key string, fields []infoField, level slog.Level) []infoField {
	if key == "" || len(fields) == 0 {
		return fields
	}
	cache, ok := h.infoCache[key]
	if !ok {
		cache = make(map[string]string)
		h.infoCache[key] = cache
	}
	if level > slog.LevelInfo {
		for _, field := range fields {
			cache[field.label] = field.value
		}
		return fields
	}
	filtered := make([]infoField, 0, len(fields))
	for _, field := range fields {
		if prev, ok := cache[field.label]; ok && prev == field.value {
			continue
		}
		cache[field.label] = field.value
		filtered = append(filtered, field)
	}
	return filtered
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	clone := &prettyHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		infoCache: h.infoCache,
	}
	if len(h.attrs) > 0 {
		clone.attrs = make([]slog.Attr, len(h.attrs))
		copy(clone.attrs, h.attrs)
	}
	if len(h.groups) > 0 {
		clone.groups = make([]string, len(h.groups))
		copy(clone.groups, h.groups)
	}
	return clone
}

type kv struct {
	key   string
	value slog.Value
}

func dedupeKVsByKey(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	positions := make(map[string]int, len(attrs))
	deduped := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if pos, ok := positions[attr.key]; ok {
			deduped[pos].value = attr.value
			continue
		}
		positions[attr.key] = len(deduped)
		deduped = append(deduped, attr)
	}
	return deduped
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		nextPrefix := prefix
		if attr.Key != "" {
			nextPrefix = appendPrefix(prefix, attr.Key)
		}
		flattenAttrs(dst, nextPrefix, attr.Value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		if key != "" {
			key = strings.Join(appendPrefix(prefix, key), ".")
		} else {
			key = strings.Join(prefix, ".")
		}
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func appendPrefix(prefix []string, value string) []string {
	out := make([]string, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = value
	return out
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
