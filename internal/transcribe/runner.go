package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"vidscribe/internal/audio"
	"vidscribe/internal/fileutil"
	"vidscribe/internal/logging"
	"vidscribe/internal/progress"
	"vidscribe/internal/queue"
	"vidscribe/internal/recognizer"
	"vidscribe/internal/services"
)

// maxRecognizingProgress keeps progress below 1.0 until the transcript exists.
const maxRecognizingProgress = 0.999

var errCancelled = errors.New("job cancelled")

// Options configures a Runner.
type Options struct {
	Extractor audio.Extractor
	Model     recognizer.Model
	Sink      progress.Publisher
	// WorkDir receives the per-job WAV artifacts.
	WorkDir string
	// OutputDir is used for jobs that arrive without an OutputPath.
	OutputDir  string
	SampleRate int
	// FrameSize is the number of samples per Feed call.
	FrameSize         int
	ProgressLogBucket float64
	// Cancelled reports the batch-wide cancel flag. Context cancellation is
	// treated the same way.
	Cancelled func() bool
	Logger    *slog.Logger
}

// Runner drives jobs through Pending → Extracting → Recognizing → terminal.
type Runner struct {
	extractor  audio.Extractor
	model      recognizer.Model
	sink       progress.Publisher
	workDir    string
	outputDir  string
	sampleRate int
	frameSize  int
	logBucket  float64
	cancelFlag func() bool
	logger     *slog.Logger
}

// NewRunner validates opts and builds a Runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Extractor == nil {
		return nil, errors.New("transcribe: extractor is required")
	}
	if opts.Model == nil {
		return nil, errors.New("transcribe: model is required")
	}
	if strings.TrimSpace(opts.WorkDir) == "" {
		return nil, errors.New("transcribe: work directory is required")
	}
	r := &Runner{
		extractor:  opts.Extractor,
		model:      opts.Model,
		sink:       opts.Sink,
		workDir:    opts.WorkDir,
		outputDir:  opts.OutputDir,
		sampleRate: opts.SampleRate,
		frameSize:  opts.FrameSize,
		logBucket:  opts.ProgressLogBucket,
		cancelFlag: opts.Cancelled,
		logger:     opts.Logger,
	}
	if r.sampleRate <= 0 {
		r.sampleRate = audio.SampleRate
	}
	if r.frameSize <= 0 {
		r.frameSize = recognizer.DefaultFrameSize
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	r.logger = logging.NewComponentLogger(r.logger, "transcribe")
	return r, nil
}

// Run processes job and returns it in its terminal status. The returned error
// is the job-scoped failure recorded on a Failed job; Completed and Cancelled
// jobs return nil.
func (r *Runner) Run(ctx context.Context, job queue.Job) (queue.Job, error) {
	if job.OutputPath == "" {
		job.OutputPath = OutputPath(r.outputDir, job.SourcePath)
	}
	ctx = services.WithJobID(ctx, job.ID)
	run := &jobRun{
		runner:  r,
		job:     job,
		sampler: logging.NewProgressSampler(r.logBucket),
	}
	run.logger = logging.WithContext(ctx, r.logger)
	defer run.releaseArtifact()
	return run.execute(ctx)
}

// Fail moves a job that never started straight to Failed with err.
func (r *Runner) Fail(ctx context.Context, job queue.Job, err error) queue.Job {
	run := &jobRun{runner: r, job: job}
	run.logger = logging.WithContext(services.WithJobID(ctx, job.ID), r.logger)
	out, _ := run.fail(err)
	return out
}

func (r *Runner) cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return r.cancelFlag != nil && r.cancelFlag()
}

type jobRun struct {
	runner   *Runner
	job      queue.Job
	logger   *slog.Logger
	sampler  *logging.ProgressSampler
	artifact string
	release  sync.Once
}

func (j *jobRun) execute(ctx context.Context) (queue.Job, error) {
	r := j.runner
	j.logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("source", j.job.SourcePath),
		logging.String("output", j.job.OutputPath),
	)

	j.publish(queue.StatusExtracting, 0, nil)
	extractCtx := services.WithStage(ctx, string(queue.StatusExtracting))
	artifact, err := r.extractor.Extract(extractCtx, j.job.ID, j.job.SourcePath, r.workDir)
	if err != nil {
		if r.cancelled(ctx) {
			return j.cancel()
		}
		return j.fail(err)
	}
	j.artifact = artifact
	j.logger.Debug("audio extracted", logging.String("artifact", artifact))

	if r.cancelled(ctx) {
		return j.cancel()
	}
	j.publish(queue.StatusRecognizing, 0, nil)

	segments, err := j.recognize(ctx, artifact)
	if errors.Is(err, errCancelled) {
		return j.cancel()
	}
	if err != nil {
		return j.fail(err)
	}

	if err := writeTranscript(j.job.OutputPath, segments); err != nil {
		return j.fail(err)
	}
	j.releaseArtifact()
	j.publish(queue.StatusCompleted, 1, nil)
	j.logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("output", j.job.OutputPath),
		logging.Int("segments", len(segments)),
	)
	return j.job, nil
}

func (j *jobRun) recognize(ctx context.Context, artifact string) ([]string, error) {
	r := j.runner
	wav, err := audio.OpenWAV(artifact)
	if err != nil {
		return nil, &recognizer.RecognitionError{Op: "open audio", Err: err}
	}
	defer wav.Close()

	format := wav.Format()
	if !format.IsRecognizerReady(r.sampleRate) {
		return nil, &recognizer.RecognitionError{
			Op: "check audio format",
			Err: fmt.Errorf("got %d Hz, %d channel(s), %d-bit; want %d Hz mono 16-bit PCM",
				format.SampleRate, format.Channels, format.BitsPerSample, r.sampleRate),
		}
	}

	session, err := r.model.NewSession(ctx, r.sampleRate)
	if err != nil {
		return nil, asRecognitionError("new session", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			j.logger.Warn("recognition session close failed", logging.Error(cerr))
		}
	}()

	total := wav.NumFrames()
	frameBytes := int64(format.FrameBytes())
	var consumed int64
	var segments []string
	for {
		if r.cancelled(ctx) {
			return nil, errCancelled
		}
		frame, err := wav.ReadFrames(r.frameSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &recognizer.RecognitionError{Op: "read audio", Err: err}
		}
		if len(frame) == 0 {
			continue
		}
		segment, final, err := session.Feed(frame)
		if err != nil {
			if r.cancelled(ctx) {
				return nil, errCancelled
			}
			return nil, asRecognitionError("feed", err)
		}
		if final && !segment.Empty() {
			segments = append(segments, strings.TrimSpace(segment.Text))
		}
		consumed += int64(len(frame)) / frameBytes
		j.publish(queue.StatusRecognizing, frameProgress(consumed, total), nil)
	}

	if r.cancelled(ctx) {
		return nil, errCancelled
	}
	segment, err := session.Finalize()
	if err != nil {
		return nil, asRecognitionError("finalize", err)
	}
	if !segment.Empty() {
		segments = append(segments, strings.TrimSpace(segment.Text))
	}
	return segments, nil
}

func frameProgress(consumed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return min(max(float64(consumed)/float64(total), 0), maxRecognizingProgress)
}

func asRecognitionError(op string, err error) error {
	var recErr *recognizer.RecognitionError
	if errors.As(err, &recErr) {
		return err
	}
	var loadErr *recognizer.ModelLoadError
	if errors.As(err, &loadErr) {
		return err
	}
	return &recognizer.RecognitionError{Op: op, Err: err}
}

func (j *jobRun) publish(status queue.Status, pct float64, err error) {
	if status == j.job.Status && pct < j.job.Progress {
		pct = j.job.Progress
	}
	j.job.Status = status
	j.job.Progress = pct
	j.job.ErrorMessage = ""
	j.job.ErrorKind = ""
	if err != nil {
		j.job.ErrorMessage = err.Error()
		j.job.ErrorKind = queue.KindOf(err)
	}

	if status == queue.StatusRecognizing && j.sampler != nil && j.sampler.ShouldLog(pct, string(status)) {
		j.logger.Info("recognition progress",
			logging.String(logging.FieldStage, string(status)),
			logging.Float64(logging.FieldProgressPercent, pct*100),
		)
	}

	if j.runner.sink == nil {
		return
	}
	j.runner.sink.Publish(progress.Update{
		JobID:     j.job.ID,
		Status:    status,
		Progress:  pct,
		Error:     j.job.ErrorMessage,
		ErrorKind: j.job.ErrorKind,
	})
}

func (j *jobRun) fail(err error) (queue.Job, error) {
	j.releaseArtifact()
	j.publish(queue.StatusFailed, j.job.Progress, err)
	logging.ErrorWithContext(j.logger, "job failed", "job_failed",
		logging.String(logging.FieldErrorKind, j.job.ErrorKind),
		logging.String(logging.FieldErrorHint, errorHint(j.job.ErrorKind)),
		logging.String("source", j.job.SourcePath),
		logging.Error(err),
	)
	return j.job, err
}

func errorHint(kind string) string {
	switch kind {
	case queue.KindExtraction:
		return "check that ffmpeg can decode the source file"
	case queue.KindRecognition:
		return "check the recognizer engine and model directory"
	case queue.KindOutputCollision:
		return "rename one of the sources or run it in a separate batch"
	case queue.KindIO:
		return "check free space and permissions of the output directory"
	default:
		return "check logs for details"
	}
}

func (j *jobRun) cancel() (queue.Job, error) {
	j.releaseArtifact()
	j.publish(queue.StatusCancelled, j.job.Progress, nil)
	j.logger.Info("job cancelled",
		logging.String(logging.FieldEventType, "job_cancelled"),
		logging.Float64(logging.FieldProgressPercent, j.job.Progress*100),
	)
	return j.job, nil
}

func (j *jobRun) releaseArtifact() {
	j.release.Do(func() {
		if j.artifact == "" {
			return
		}
		if err := fileutil.RemoveIfExists(j.artifact); err != nil {
			logging.WarnWithContext(j.logger, "failed to remove audio artifact", "artifact_cleanup_failed",
				logging.String("artifact", j.artifact),
				logging.Error(err),
				logging.String(logging.FieldImpact, "temporary WAV left in work directory"),
			)
		}
	})
}
