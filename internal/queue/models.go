package queue

import (
	"slices"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending     Status = "pending"
	StatusExtracting  Status = "extracting"
	StatusRecognizing Status = "recognizing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusExtracting,
	StatusRecognizing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return slices.Clone(allStatuses)
}

// ParseStatus validates a status string.
func ParseStatus(value string) (Status, bool) {
	status := Status(value)
	return status, slices.Contains(allStatuses, status)
}

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsProcessing reports whether a worker currently owns the job.
func (s Status) IsProcessing() bool {
	return s == StatusExtracting || s == StatusRecognizing
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusExtracting:
		return 1
	case StatusRecognizing:
		return 2
	default:
		return 3
	}
}

// CanTransition reports whether moving from s to next keeps the lifecycle
// monotonic. Forward skips are allowed, regressions and leaving a terminal
// status are not. Repeating the current status is always allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}

// predecessors lists the statuses from which next may be reached.
func predecessors(next Status) []Status {
	var out []Status
	for _, status := range allStatuses {
		if status.CanTransition(next) {
			out = append(out, status)
		}
	}
	return out
}

// Job is one source video and its transcript.
type Job struct {
	ID           int64
	SourcePath   string
	OutputPath   string
	Status       Status
	Progress     float64
	ErrorMessage string
	ErrorKind    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Batch is an ordered set of jobs run with one model into one directory.
// Slice order is processing order.
type Batch struct {
	Jobs      []Job
	ModelPath string
	OutputDir string
}

// JobUpdate is a status/progress change applied to a persisted job.
type JobUpdate struct {
	ID           int64
	Status       Status
	Progress     float64
	ErrorMessage string
	ErrorKind    string
}

// HealthSummary describes aggregated job counts per lifecycle group.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}
