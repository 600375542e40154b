package transcribe

import "fmt"

// OutputCollisionError reports that an earlier job in the batch already
// claimed the transcript path this job would write.
type OutputCollisionError struct {
	Path      string
	ClaimedBy int64
}

func (e *OutputCollisionError) Error() string {
	return fmt.Sprintf("output %s is already claimed by job %d", e.Path, e.ClaimedBy)
}

// ErrorKind classifies the failure for the job table.
func (e *OutputCollisionError) ErrorKind() string { return "output_collision" }

// WriteError wraps a failure to persist the transcript.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write transcript %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ErrorKind classifies the failure for the job table.
func (e *WriteError) ErrorKind() string { return "io" }
