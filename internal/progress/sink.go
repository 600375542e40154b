package progress

import (
	"slices"
	"sync"

	"vidscribe/internal/queue"
)

// Update is the latest known state of one job.
type Update struct {
	JobID     int64
	Status    queue.Status
	Progress  float64
	Error     string
	ErrorKind string
}

// Publisher is the write side of a Sink.
type Publisher interface {
	Publish(Update)
}

// Sink coalesces updates per job.
type Sink struct {
	mu     sync.Mutex
	order  []int64
	latest map[int64]Update
	dirty  map[int64]struct{}
	notify chan struct{}
	closed bool
}

// NewSink creates a sink. jobIDs fixes the snapshot order; jobs first seen
// through Publish are appended after them.
func NewSink(jobIDs ...int64) *Sink {
	s := &Sink{
		latest: make(map[int64]Update, len(jobIDs)),
		dirty:  make(map[int64]struct{}),
		notify: make(chan struct{}, 1),
	}
	for _, id := range jobIDs {
		if _, ok := s.latest[id]; ok {
			continue
		}
		s.order = append(s.order, id)
		s.latest[id] = Update{JobID: id, Status: queue.StatusPending}
	}
	return s
}

// Publish records update and signals readers. It never blocks. Updates that
// would move a job backwards (status regression or lower progress within the
// same status) are dropped, as is anything published after Close.
func (s *Sink) Publish(update Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	prev, known := s.latest[update.JobID]
	if !known {
		s.order = append(s.order, update.JobID)
	} else {
		if !prev.Status.CanTransition(update.Status) {
			return
		}
		if update.Status == prev.Status && update.Progress < prev.Progress {
			update.Progress = prev.Progress
		}
	}
	s.latest[update.JobID] = update
	s.dirty[update.JobID] = struct{}{}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Snapshot returns the latest update of every known job in batch order.
func (s *Sink) Snapshot() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Update, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.latest[id])
	}
	return out
}

// Drain returns the jobs that changed since the previous Drain, in batch
// order, and resets the change set.
func (s *Sink) Drain() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dirty) == 0 {
		return nil
	}
	out := make([]Update, 0, len(s.dirty))
	for _, id := range s.order {
		if _, ok := s.dirty[id]; ok {
			out = append(out, s.latest[id])
		}
	}
	clear(s.dirty)
	return out
}

// Get returns the latest update for one job.
func (s *Sink) Get(jobID int64) (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.latest[jobID]
	return u, ok
}

// Notify returns a channel that receives a value whenever something new was
// published. It is closed by Close, after which readers should Drain once more.
func (s *Sink) Notify() <-chan struct{} {
	return s.notify
}

// Close stops accepting updates and closes the notification channel. It is
// safe to call more than once.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.notify)
}

// JobIDs returns the batch order.
func (s *Sink) JobIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}
