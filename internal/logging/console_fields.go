package logging

import (
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type infoField struct {
	label string
	value string
}

var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"status",
	FieldProgressPercent,
	"error_message",
	FieldErrorKind,
	FieldErrorHint,
	"source",
	"output",
	"model_dir",
	"engine",
	"jobs",
	"completed",
	"failed",
	"cancelled",
	"pending",
	"audio_bytes",
	"segments",
	"stage_duration",
	"reason",
}

// selectInfoFields returns formatted info-level fields in highlight order,
// followed by the remaining attributes, and a count of suppressed entries.
func selectInfoFields(attrs []kv) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, len(attrs))
	hidden := 0

	take := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if skipInfoKey(attr.key) {
			return
		}
		if isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		val := formatValueForKey(attr.key, attr.value)
		if shouldHideInfoValue(attr.key, val) {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: val})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				take(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			take(idx)
		}
	}
	return result, hidden
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case isByteSizeKey(key) && v.Kind() == slog.KindInt64 && v.Int64() >= 0:
		return humanize.Bytes(uint64(v.Int64()))
	case isByteSizeKey(key) && v.Kind() == slog.KindUint64:
		return humanize.Bytes(v.Uint64())
	case isDurationKey(key) && v.Kind() == slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case isPercentKey(key) && v.Kind() == slog.KindFloat64:
		return humanize.FtoaWithDigits(v.Float64(), 1) + "%"
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" || key == "error_message" {
		value = truncateErrorValue(value)
	}
	return value
}

func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") || key == "size"
}

func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_duration") || key == "elapsed" || key == "duration"
}

func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent")
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "…"
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldJobID, FieldStage, FieldComponent:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case FieldRunID, "work_dir", "artifact", "command", "args", "frame_size":
		return true
	}
	return strings.HasSuffix(key, "_path") || strings.HasSuffix(key, "_dir") && key != "model_dir"
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error_message", "error", "source", "output":
		return false
	}
	return len(value) > 120
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorKind:
		return "Error Kind"
	case FieldErrorHint:
		return "Hint"
	case FieldProgressPercent:
		return "Progress"
	case "stage_duration":
		return "Duration"
	case "audio_bytes":
		return "Audio"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, part := range parts {
		lower := strings.ToLower(part)
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func infoSummaryKey(component, jobID string) string {
	if jobID = strings.TrimSpace(jobID); jobID != "" {
		return "job:" + jobID
	}
	return component
}
