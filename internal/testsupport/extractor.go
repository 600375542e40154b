package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"vidscribe/internal/audio"
)

// FakeExtractor writes synthetic tone WAVs instead of running ffmpeg.
type FakeExtractor struct {
	// Seconds of audio written per job (default 10).
	Seconds float64
	// Failures maps a source path to the error Extract returns for it.
	Failures map[string]error
	// SampleRate overrides the artifact rate; 0 means 16 kHz.
	SampleRate int

	mu    sync.Mutex
	calls []string
}

// Extract implements audio.Extractor.
func (f *FakeExtractor) Extract(ctx context.Context, jobID int64, sourcePath, workDir string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sourcePath)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := f.Failures[sourcePath]; ok {
		return "", err
	}
	seconds := f.Seconds
	if seconds <= 0 {
		seconds = 10
	}
	rate := f.SampleRate
	if rate <= 0 {
		rate = audio.SampleRate
	}
	dest := audio.ArtifactPath(workDir, jobID)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	file, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer file.Close()
	samples := make([]int16, int(seconds*float64(rate)))
	copy(samples, SineSamples(seconds))
	if err := audio.WriteWAV(file, rate, samples); err != nil {
		return "", err
	}
	return dest, nil
}

// Calls returns the sources passed to Extract, in call order.
func (f *FakeExtractor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
