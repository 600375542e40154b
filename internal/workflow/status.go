package workflow

import "vidscribe/internal/queue"

// Summary is the outcome of one batch.
type Summary struct {
	Completed int
	Failed    int
	Cancelled int
	Pending   int
	// Jobs lists every job of the batch in submission order, with the error
	// text of failed jobs.
	Jobs []queue.Job
}

// HasFailures reports whether any job failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// FailedJobs returns the failed jobs in submission order.
func (s Summary) FailedJobs() []queue.Job {
	var out []queue.Job
	for _, job := range s.Jobs {
		if job.Status == queue.StatusFailed {
			out = append(out, job)
		}
	}
	return out
}

// Status returns a snapshot of the current (or most recent) batch.
func (s *Scheduler) Status() []queue.Job {
	s.mu.Lock()
	slots := s.slots
	s.mu.Unlock()

	jobs := make([]queue.Job, 0, len(slots))
	for _, slot := range slots {
		jobs = append(jobs, slot.get())
	}
	return jobs
}

// Running reports whether a batch is in progress.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) summary() Summary {
	summary := Summary{Jobs: s.Status()}
	for _, job := range summary.Jobs {
		switch job.Status {
		case queue.StatusCompleted:
			summary.Completed++
		case queue.StatusFailed:
			summary.Failed++
		case queue.StatusCancelled:
			summary.Cancelled++
		case queue.StatusPending:
			summary.Pending++
		}
	}
	return summary
}
