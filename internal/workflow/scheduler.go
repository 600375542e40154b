package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"vidscribe/internal/audio"
	"vidscribe/internal/config"
	"vidscribe/internal/logging"
	"vidscribe/internal/progress"
	"vidscribe/internal/queue"
	"vidscribe/internal/recognizer"
	"vidscribe/internal/services"
	"vidscribe/internal/transcribe"
)

// MaxConcurrency caps the number of jobs processed at once.
const MaxConcurrency = 16

// ErrAlreadyRunning is returned when Start is called while a batch runs.
var ErrAlreadyRunning = errors.New("scheduler already running")

// Options tunes a Scheduler.
type Options struct {
	// WorkDir holds the temporary WAV artifacts of this batch.
	WorkDir           string
	SampleRate        int
	FrameSize         int
	Concurrency       int
	ProgressLogBucket float64
	Logger            *slog.Logger
}

// OptionsFromConfig maps configuration onto scheduler options. workDir is
// the per-run directory beneath the configured work root.
func OptionsFromConfig(cfg *config.Config, workDir string, logger *slog.Logger) Options {
	return Options{
		WorkDir:           workDir,
		SampleRate:        cfg.Recognition.SampleRate,
		FrameSize:         cfg.Recognition.FrameSize,
		Concurrency:       cfg.Batch.Concurrency,
		ProgressLogBucket: float64(cfg.Batch.ProgressLogBucket),
		Logger:            logger,
	}
}

// Scheduler processes batches of jobs.
type Scheduler struct {
	engine    recognizer.Engine
	extractor audio.Extractor
	sink      progress.Publisher
	opts      Options
	logger    *slog.Logger

	cancelRequested atomic.Bool

	mu      sync.Mutex
	running bool
	slots   []*jobSlot
	byID    map[int64]*jobSlot
}

type jobSlot struct {
	mu  sync.Mutex
	job queue.Job
}

func (s *jobSlot) get() queue.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

func (s *jobSlot) set(job queue.Job) {
	s.mu.Lock()
	s.job = job
	s.mu.Unlock()
}

// NewScheduler builds a scheduler. sink may be nil.
func NewScheduler(engine recognizer.Engine, extractor audio.Extractor, sink progress.Publisher, opts Options) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Concurrency > MaxConcurrency {
		opts.Concurrency = MaxConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		engine:    engine,
		extractor: extractor,
		sink:      sink,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "workflow"),
	}
}

// RequestCancel asks the running batch to stop. In-flight jobs end Cancelled
// at the next frame boundary and no further job starts. A request made before
// Start applies to the next batch.
func (s *Scheduler) RequestCancel() {
	if s.cancelRequested.CompareAndSwap(false, true) {
		s.logger.Info("cancel requested", logging.String(logging.FieldEventType, "batch_cancel_requested"))
	}
}

func (s *Scheduler) cancelled(ctx context.Context) bool {
	return s.cancelRequested.Load() || ctx.Err() != nil
}

// Start runs batch to completion and returns once every attempted job is
// terminal. A batch-scoped failure is returned as the error before any job
// changes state.
func (s *Scheduler) Start(ctx context.Context, batch queue.Batch) (Summary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Summary{}, ErrAlreadyRunning
	}
	s.running = true
	s.slots = make([]*jobSlot, len(batch.Jobs))
	s.byID = make(map[int64]*jobSlot, len(batch.Jobs))
	for i, job := range batch.Jobs {
		s.slots[i] = &jobSlot{job: job}
		s.byID[job.ID] = s.slots[i]
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.cancelRequested.Store(false)
	}()

	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()

	if err := prepareDir(batch.OutputDir, "output"); err != nil {
		return s.summary(), err
	}
	if err := prepareDir(s.opts.WorkDir, "work"); err != nil {
		return s.summary(), err
	}
	if len(batch.Jobs) == 0 {
		logger.Info("batch empty; nothing to do", logging.String(logging.FieldEventType, "batch_empty"))
		return s.summary(), nil
	}
	if s.cancelled(ctx) {
		logger.Info("batch cancelled before start",
			logging.String(logging.FieldEventType, "batch_cancelled"),
			logging.Int("pending", len(batch.Jobs)),
		)
		return s.summary(), nil
	}

	model, err := s.engine.LoadModel(ctx, batch.ModelPath)
	if err != nil {
		return s.summary(), err
	}
	defer func() {
		if cerr := model.Close(); cerr != nil {
			logger.Warn("model close failed", logging.Error(cerr))
		}
	}()
	logger.Info("model loaded",
		logging.String(logging.FieldEventType, "model_loaded"),
		logging.String("engine", s.engine.Name()),
		logging.String("model_dir", batch.ModelPath),
	)

	runner, err := transcribe.NewRunner(transcribe.Options{
		Extractor:         s.extractor,
		Model:             model,
		Sink:              slotPublisher{scheduler: s, next: s.sink},
		WorkDir:           s.opts.WorkDir,
		OutputDir:         batch.OutputDir,
		SampleRate:        s.opts.SampleRate,
		FrameSize:         s.opts.FrameSize,
		ProgressLogBucket: s.opts.ProgressLogBucket,
		Cancelled:         s.cancelRequested.Load,
		Logger:            s.logger,
	})
	if err != nil {
		return s.summary(), err
	}

	plan := planOutputs(batch.Jobs, batch.OutputDir)
	for _, slot := range s.slots {
		job := slot.get()
		job.OutputPath = plan.paths[job.ID]
		slot.set(job)
	}

	workers := min(s.opts.Concurrency, len(batch.Jobs))
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.Int("jobs", len(batch.Jobs)),
		logging.Int("workers", workers),
		logging.String("output_dir", batch.OutputDir),
	)

	queued := make(chan *jobSlot)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slot := range queued {
				s.runJob(ctx, runner, plan, slot)
			}
		}()
	}
	for _, slot := range s.slots {
		if s.cancelled(ctx) {
			break
		}
		queued <- slot
	}
	close(queued)
	wg.Wait()

	summary := s.summary()
	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("cancelled", summary.Cancelled),
		logging.Int("pending", summary.Pending),
		logging.Duration("duration", time.Since(started).Round(time.Millisecond)),
	)
	return summary, nil
}

func (s *Scheduler) runJob(ctx context.Context, runner *transcribe.Runner, plan outputPlan, slot *jobSlot) {
	// A worker may receive a job just before cancel lands; it stays Pending.
	if s.cancelled(ctx) {
		return
	}
	job := slot.get()
	if collision, ok := plan.collisions[job.ID]; ok {
		slot.set(runner.Fail(ctx, job, collision))
		return
	}
	done, _ := runner.Run(ctx, job)
	slot.set(done)
}

// prepareDir creates dir when needed and checks that it is writable.
func prepareDir(dir, label string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return services.Wrap(services.ErrConfiguration, "workflow", "prepare "+label+" directory", label+" directory is not set", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "prepare "+label+" directory", fmt.Sprintf("cannot create %s", dir), err)
	}
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "prepare "+label+" directory", fmt.Sprintf("%s is not writable", dir), err)
	}
	return nil
}

// slotPublisher mirrors runner updates into the scheduler's job table before
// forwarding them.
type slotPublisher struct {
	scheduler *Scheduler
	next      progress.Publisher
}

func (p slotPublisher) Publish(update progress.Update) {
	if slot := p.scheduler.slotFor(update.JobID); slot != nil {
		slot.mu.Lock()
		if slot.job.Status.CanTransition(update.Status) {
			slot.job.Status = update.Status
			slot.job.Progress = max(slot.job.Progress, update.Progress)
			slot.job.ErrorMessage = update.Error
			slot.job.ErrorKind = update.ErrorKind
		}
		slot.mu.Unlock()
	}
	if p.next != nil {
		p.next.Publish(update)
	}
}

func (s *Scheduler) slotFor(id int64) *jobSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}
