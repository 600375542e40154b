package audio

import (
	"fmt"
	"strings"
)

const (
	stderrTailLines = 20
	stderrTailBytes = 2048
)

// ExtractionError reports a failed ffmpeg invocation or an unusable output file.
type ExtractionError struct {
	Source     string
	ExitCode   int
	StderrTail string
	Err        error
}

func (e *ExtractionError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("audio extraction failed for %s (exit=%d)", e.Source, e.ExitCode)
	if e.StderrTail != "" {
		msg += ": " + e.StderrTail
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorKind classifies the failure for the job table.
func (e *ExtractionError) ErrorKind() string { return "extraction" }

// tailStderr keeps the last lines of stderr, bounded in both line count and bytes.
func tailStderr(stderr string) string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > stderrTailLines {
		lines = lines[len(lines)-stderrTailLines:]
	}
	tail := strings.Join(lines, "\n")
	if len(tail) > stderrTailBytes {
		tail = tail[len(tail)-stderrTailBytes:]
	}
	return tail
}
