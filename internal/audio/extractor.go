package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vidscribe/internal/logging"
)

const (
	// SampleRate is the PCM rate every extracted artifact uses.
	SampleRate = 16000
	// Channels is the channel count every extracted artifact uses.
	Channels = 1
	// BitsPerSample is the sample width every extracted artifact uses.
	BitsPerSample = 16
)

// Extractor produces a recognizer-ready WAV for one job.
type Extractor interface {
	Extract(ctx context.Context, jobID int64, sourcePath, workDir string) (string, error)
}

// FFmpegExtractor runs ffmpeg to decode the source's audio track.
type FFmpegExtractor struct {
	binary string
	runner CommandRunner
	logger *slog.Logger
}

// Option customizes an FFmpegExtractor.
type Option func(*FFmpegExtractor)

// WithRunner overrides the process runner.
func WithRunner(runner CommandRunner) Option {
	return func(e *FFmpegExtractor) {
		if runner != nil {
			e.runner = runner
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *FFmpegExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewFFmpegExtractor constructs an extractor for the given ffmpeg binary.
func NewFFmpegExtractor(binary string, opts ...Option) *FFmpegExtractor {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	e := &FFmpegExtractor{binary: binary, runner: ExecRunner{}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ArtifactPath returns the per-job WAV location inside workDir.
func ArtifactPath(workDir string, jobID int64) string {
	return filepath.Join(workDir, fmt.Sprintf("job-%d.wav", jobID))
}

// Extract writes <workDir>/job-<id>.wav and returns its path. The source is
// only read. On failure any partial output is removed.
func (e *FFmpegExtractor) Extract(ctx context.Context, jobID int64, sourcePath, workDir string) (string, error) {
	dest := ArtifactPath(workDir, jobID)
	args := buildFFmpegArgs(sourcePath, dest)
	logger := logging.WithContext(ctx, e.logger)
	logger.Debug("running ffmpeg",
		logging.String("command", e.binary),
		logging.String("args", strings.Join(args, " ")),
	)

	result, err := e.runner.Run(ctx, e.binary, args...)
	if err != nil {
		_ = os.Remove(dest)
		exitCode := result.ExitCode
		if exitCode == 0 {
			exitCode = -1
		}
		return "", &ExtractionError{
			Source:     sourcePath,
			ExitCode:   exitCode,
			StderrTail: tailStderr(result.Stderr),
			Err:        err,
		}
	}

	if err := checkArtifact(dest); err != nil {
		_ = os.Remove(dest)
		return "", &ExtractionError{
			Source:     sourcePath,
			ExitCode:   result.ExitCode,
			StderrTail: tailStderr(result.Stderr),
			Err:        err,
		}
	}
	return dest, nil
}

var errNoAudioFrames = errors.New("ffmpeg output contains no audio frames")

func checkArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("ffmpeg completed but output file is missing: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("ffmpeg produced an empty output file")
	}
	r, err := OpenWAV(path)
	if err != nil {
		return err
	}
	defer r.Close()
	if r.NumFrames() == 0 {
		return errNoAudioFrames
	}
	return nil
}

func buildFFmpegArgs(source, dest string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dest,
	}
}
