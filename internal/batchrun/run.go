package batchrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vidscribe/internal/audio"
	"vidscribe/internal/config"
	"vidscribe/internal/logging"
	"vidscribe/internal/notifications"
	"vidscribe/internal/progress"
	"vidscribe/internal/queue"
	"vidscribe/internal/recognizer"
	"vidscribe/internal/services"
	"vidscribe/internal/workflow"
)

const notifyTimeout = 30 * time.Second

// ErrBusy is returned when another process holds the run lock.
var ErrBusy = errors.New("another vidscribe run is already in progress")

// Options configures a batch run. Zero values fall back to configuration.
type Options struct {
	ModelDir    string
	OutputDir   string
	Concurrency int
	// Engine and Extractor replace the configured backends (tests, smoke runs).
	Engine    recognizer.Engine
	Extractor audio.Extractor
	// OnStart is called once the batch is known and before any job runs, so
	// callers can start rendering the sink.
	OnStart func(queue.Batch, *progress.Sink)
	// Notifier defaults to the configured ntfy service.
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Result describes a finished run.
type Result struct {
	RunID   string
	Batch   queue.Batch
	Summary workflow.Summary
	// Reset counts jobs returned to pending because a previous run died.
	Reset int64
}

// Runner executes batch runs against a store.
type Runner struct {
	cfg      *config.Config
	store    *queue.Store
	opts     Options
	logger   *slog.Logger
	notifier notifications.Service

	cancelRequested atomic.Bool
	mu              sync.Mutex
	scheduler       *workflow.Scheduler
}

// New validates inputs and returns a Runner.
func New(cfg *config.Config, store *queue.Store, opts Options) (*Runner, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("batchrun requires config and store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Runner{
		cfg:      cfg,
		store:    store,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "batchrun"),
		notifier: notifier,
	}, nil
}

// Cancel asks the active run to stop. Called before Run, it makes the next
// Run leave every job pending.
func (r *Runner) Cancel() {
	r.cancelRequested.Store(true)
	r.mu.Lock()
	sched := r.scheduler
	r.mu.Unlock()
	if sched != nil {
		sched.RequestCancel()
	}
}

// Run processes all pending jobs.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	lock := flock.New(r.cfg.LockPath())
	if err := os.MkdirAll(filepath.Dir(r.cfg.LockPath()), 0o755); err != nil {
		return Result{}, fmt.Errorf("create state directory: %w", err)
	}
	ok, err := lock.TryLock()
	if err != nil {
		return Result{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return Result{}, ErrBusy
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	result := Result{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, r.logger)

	reset, err := r.store.ResetInterrupted(ctx)
	if err != nil {
		return result, err
	}
	result.Reset = reset
	if reset > 0 {
		logging.WarnWithContext(logger, "jobs from an interrupted run returned to pending", "jobs_reset",
			logging.Int64("count", reset),
			logging.String(logging.FieldImpact, "those jobs restart from the beginning"),
			logging.String(logging.FieldErrorHint, "none; they are picked up by this run"),
		)
	}

	stateStore := config.NewStateStore(r.cfg.StatePath())
	state, err := stateStore.Load()
	if err != nil {
		logging.WarnWithContext(logger, "remembered directories unreadable; using configuration", "state_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete "+stateStore.Path()+" to reset it"),
		)
		state = config.State{}
	}
	modelDir, err := config.ResolveDir(r.opts.ModelDir, state.LastModelDir, r.cfg.Paths.ModelDir)
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "batchrun", "resolve model directory", "invalid model directory", err)
	}
	outputDir, err := config.ResolveDir(r.opts.OutputDir, state.LastOutputDir, r.cfg.Paths.OutputDir)
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "batchrun", "resolve output directory", "invalid output directory", err)
	}

	pending, err := r.store.Pending(ctx)
	if err != nil {
		return result, err
	}
	batch := queue.Batch{ModelPath: modelDir, OutputDir: outputDir, Jobs: make([]queue.Job, 0, len(pending))}
	ids := make([]int64, 0, len(pending))
	for _, job := range pending {
		batch.Jobs = append(batch.Jobs, *job)
		ids = append(ids, job.ID)
	}
	result.Batch = batch
	if len(batch.Jobs) == 0 {
		logger.Info("no pending jobs", logging.String(logging.FieldEventType, "batch_empty"))
		return result, nil
	}

	engine, extractor, err := r.backends()
	if err != nil {
		return result, err
	}

	workDir := filepath.Join(r.cfg.Paths.WorkDir, result.RunID)
	schedOpts := workflow.OptionsFromConfig(r.cfg, workDir, r.logger)
	if r.opts.Concurrency > 0 {
		schedOpts.Concurrency = r.opts.Concurrency
	}
	sink := progress.NewSink(ids...)
	sched := workflow.NewScheduler(engine, extractor, sink, schedOpts)
	r.mu.Lock()
	r.scheduler = sched
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.scheduler = nil
		r.mu.Unlock()
	}()
	if r.cancelRequested.Load() {
		sched.RequestCancel()
	}

	persisted := make(chan struct{})
	go func() {
		defer close(persisted)
		r.persist(context.WithoutCancel(ctx), logger, sink)
	}()

	if r.opts.OnStart != nil {
		r.opts.OnStart(batch, sink)
	}
	r.notify(logger, "batch_started", func(nctx context.Context) error {
		return r.notifier.NotifyBatchStarted(nctx, len(batch.Jobs), batch.OutputDir)
	})

	started := time.Now()
	summary, runErr := sched.Start(ctx, batch)
	sink.Close()
	<-persisted
	result.Summary = summary
	r.cancelRequested.Store(false)

	r.recordOutputs(context.WithoutCancel(ctx), logger, summary)
	r.cleanupWorkDir(logger, workDir)
	if runErr != nil {
		r.notify(logger, "batch_error", func(nctx context.Context) error {
			return r.notifier.NotifyError(nctx, runErr, "batch start")
		})
		return result, runErr
	}
	r.notify(logger, "batch_completed", func(nctx context.Context) error {
		return r.notifier.NotifyBatchCompleted(nctx, notifications.BatchResult{
			Completed: summary.Completed,
			Failed:    summary.Failed,
			Cancelled: summary.Cancelled,
			Pending:   summary.Pending,
			Duration:  time.Since(started),
		})
	})

	if state.LastModelDir != modelDir || state.LastOutputDir != outputDir {
		if err := stateStore.Save(config.State{LastModelDir: modelDir, LastOutputDir: outputDir}); err != nil {
			logging.WarnWithContext(logger, "failed to remember directories", "state_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "next run falls back to configured directories"),
			)
		}
	}
	return result, nil
}

// notify sends a notification detached from run cancellation so a cancelled
// batch still reports its outcome. Failures only warn.
func (r *Runner) notify(logger *slog.Logger, event string, send func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := send(ctx); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("notification", event),
			logging.Error(err),
			logging.String(logging.FieldImpact, "batch result not pushed to ntfy"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (r *Runner) backends() (recognizer.Engine, audio.Extractor, error) {
	engine := r.opts.Engine
	if engine == nil {
		var err error
		engine, err = recognizer.New(r.cfg.Recognition, r.logger)
		if err != nil {
			return nil, nil, services.Wrap(services.ErrConfiguration, "batchrun", "select engine", "unsupported recognition engine", err)
		}
	}
	extractor := r.opts.Extractor
	if extractor == nil {
		extractor = audio.NewFFmpegExtractor(r.cfg.FFmpegBinary(), audio.WithLogger(logging.NewComponentLogger(r.logger, "audio")))
	}
	return engine, extractor, nil
}

// persist mirrors sink updates into the job table until the sink closes.
func (r *Runner) persist(ctx context.Context, logger *slog.Logger, sink *progress.Sink) {
	for range sink.Notify() {
		r.apply(ctx, logger, sink.Drain())
	}
	r.apply(ctx, logger, sink.Drain())
}

func (r *Runner) apply(ctx context.Context, logger *slog.Logger, updates []progress.Update) {
	for _, u := range updates {
		_, err := r.store.ApplyUpdate(ctx, queue.JobUpdate{
			ID:           u.JobID,
			Status:       u.Status,
			Progress:     u.Progress,
			ErrorMessage: u.Error,
			ErrorKind:    u.ErrorKind,
		})
		if err != nil {
			logging.WarnWithContext(logger, "failed to persist job progress", "job_persist_failed",
				logging.Int64(logging.FieldJobID, u.JobID),
				logging.String("status", string(u.Status)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "queue list may show stale status"),
			)
		}
	}
}

func (r *Runner) recordOutputs(ctx context.Context, logger *slog.Logger, summary workflow.Summary) {
	for _, job := range summary.Jobs {
		if job.Status != queue.StatusCompleted || job.OutputPath == "" {
			continue
		}
		if err := r.store.SetOutputPath(ctx, job.ID, job.OutputPath); err != nil {
			logger.Warn("failed to record transcript path",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Error(err),
			)
		}
	}
}

// cleanupWorkDir removes this run's (now empty) artifact directory and prunes
// run directories abandoned by crashed runs.
func (r *Runner) cleanupWorkDir(logger *slog.Logger, workDir string) {
	if err := os.RemoveAll(workDir); err != nil {
		logger.Warn("failed to remove run work directory", logging.String("path", workDir), logging.Error(err))
	}
	logging.CleanupOld(logger, r.cfg.Batch.WorkRetentionDays, logging.RetentionTarget{
		Dir:  r.cfg.Paths.WorkDir,
		Dirs: true,
	})
}
