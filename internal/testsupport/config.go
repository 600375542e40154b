package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vidscribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ModelDir = filepath.Join(base, "model")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Recognition.Engine = config.EngineStub

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithEngine selects the recognition engine on the test config.
func WithEngine(engine string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Recognition.Engine = engine
	}
}

// WithConcurrency sets the batch worker count on the test config.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Batch.Concurrency = n
	}
}

// WithModelDir creates a minimal Vosk model layout and points the config at it.
func WithModelDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.ModelDir = WriteModelDir(b.t, filepath.Join(b.baseDir, "model"))
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and vosk-stream are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "vosk-stream"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
