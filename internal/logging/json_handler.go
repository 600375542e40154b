package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// jsonTimeLayout is RFC 3339 in UTC with fixed milliseconds, so lines sort
// lexically.
const jsonTimeLayout = "2006-01-02T15:04:05.000Z07:00"

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) == 0 {
				switch attr.Key {
				case slog.TimeKey:
					attr.Key = "ts"
					if attr.Value.Kind() == slog.KindTime {
						attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(jsonTimeLayout))
					}
					return attr
				case slog.LevelKey:
					attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
					return attr
				case slog.SourceKey:
					if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
						attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
					}
					return attr
				}
			}
			// Durations become readable strings instead of nanosecond counts.
			if attr.Value.Kind() == slog.KindDuration {
				attr.Value = slog.StringValue(attr.Value.Duration().Round(time.Millisecond).String())
			}
			return attr
		},
	}

	return slog.NewJSONHandler(w, &opts)
}
