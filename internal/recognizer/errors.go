package recognizer

import (
	"errors"
	"fmt"
)

// ErrNativeUnavailable is returned for the vosk engine when the binary was
// built without the vosk tag.
var ErrNativeUnavailable = errors.New("in-process vosk engine not compiled in (rebuild with -tags vosk and libvosk installed)")

// ModelLoadError reports an unusable model. It aborts the whole batch.
type ModelLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ModelLoadError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("load model %q: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelLoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorKind classifies the failure for the job table.
func (e *ModelLoadError) ErrorKind() string { return "model_load" }

// RecognitionError reports a malformed frame or an engine protocol failure.
// The session that produced it is unusable.
type RecognitionError struct {
	Op  string
	Err error
}

func (e *RecognitionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return "recognition " + e.Op + " failed"
	}
	return fmt.Sprintf("recognition %s: %v", e.Op, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorKind classifies the failure for the job table.
func (e *RecognitionError) ErrorKind() string { return "recognition" }
