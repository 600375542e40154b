package logging

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"
)

// Console timestamps keep milliseconds so frame-level progress lines from
// concurrent jobs stay ordered when read back from the log file.
const logTimestampLayout = "2006-01-02 15:04:05.000"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}

// attrString renders v unquoted, for header fields such as component and
// job id.
func attrString(v slog.Value) string {
	s, _ := renderValue(v)
	return s
}

// formatValue renders v for key=value output, quoting text that would not
// survive a whitespace split.
func formatValue(v slog.Value) string {
	s, textual := renderValue(v)
	if textual && needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

// renderValue returns the plain text of v and whether it is free text that
// may need quoting.
func renderValue(v slog.Value) (string, bool) {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String(), true
	case slog.KindBool:
		return strconv.FormatBool(v.Bool()), false
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10), false
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10), false
	case slog.KindFloat64:
		// Progress fractions carry long binary tails; three decimals is
		// enough to follow a job.
		return strconv.FormatFloat(math.Round(v.Float64()*1000)/1000, 'f', -1, 64), false
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String(), false
	case slog.KindTime:
		return formatTimestamp(v.Time()), false
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error(), true
		}
		return fmt.Sprint(v.Any()), true
	default:
		return v.String(), true
	}
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
