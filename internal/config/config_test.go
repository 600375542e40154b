package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vidscribe/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvModelDir, "")
	t.Setenv(config.EnvOutputDir, "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".cache", "vidscribe", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "Transcripts") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.ModelDir != "" {
		t.Fatalf("expected empty model dir by default, got %q", cfg.Paths.ModelDir)
	}
	if cfg.Recognition.Engine != config.EngineProcess {
		t.Fatalf("unexpected engine: %q", cfg.Recognition.Engine)
	}
	if cfg.Recognition.SampleRate != 16000 {
		t.Fatalf("unexpected sample rate: %d", cfg.Recognition.SampleRate)
	}
	if cfg.Recognition.FrameSize != 4000 {
		t.Fatalf("unexpected frame size: %d", cfg.Recognition.FrameSize)
	}
	if cfg.Batch.Concurrency != 1 {
		t.Fatalf("unexpected concurrency: %d", cfg.Batch.Concurrency)
	}
	if cfg.FFmpegBinary() != "ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary: %q", cfg.FFmpegBinary())
	}
	if cfg.QueueDBPath() != filepath.Join(cfg.Paths.StateDir, "queue.db") {
		t.Fatalf("unexpected queue db path: %q", cfg.QueueDBPath())
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvModelDir, "")
	t.Setenv(config.EnvOutputDir, "")

	configPath := filepath.Join(tempHome, "config.toml")
	cfg := config.Default()
	cfg.Paths.ModelDir = "~/models/vosk-en"
	cfg.Paths.OutputDir = "~/out"
	cfg.Recognition.Engine = "STUB"
	cfg.Batch.Concurrency = 4
	cfg.Logging.Format = "json"

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if loaded.Paths.ModelDir != filepath.Join(tempHome, "models", "vosk-en") {
		t.Fatalf("unexpected model dir: %q", loaded.Paths.ModelDir)
	}
	if loaded.Paths.OutputDir != filepath.Join(tempHome, "out") {
		t.Fatalf("unexpected output dir: %q", loaded.Paths.OutputDir)
	}
	if loaded.Recognition.Engine != config.EngineStub {
		t.Fatalf("expected engine to be lower-cased, got %q", loaded.Recognition.Engine)
	}
	if loaded.Batch.Concurrency != 4 {
		t.Fatalf("unexpected concurrency: %d", loaded.Batch.Concurrency)
	}
	if loaded.Logging.Format != "json" {
		t.Fatalf("unexpected log format: %q", loaded.Logging.Format)
	}
}

func TestEnvironmentOverridesDirectories(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())
	modelDir := filepath.Join(tempHome, "env-model")
	outputDir := filepath.Join(tempHome, "env-out")
	t.Setenv(config.EnvModelDir, modelDir)
	t.Setenv(config.EnvOutputDir, outputDir)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.ModelDir != modelDir {
		t.Fatalf("model dir = %q, want %q", cfg.Paths.ModelDir, modelDir)
	}
	if cfg.Paths.OutputDir != outputDir {
		t.Fatalf("output dir = %q, want %q", cfg.Paths.OutputDir, outputDir)
	}
}

func TestValidateAcceptsEveryEngine(t *testing.T) {
	for _, engine := range []string{config.EngineProcess, config.EngineVosk, config.EngineVoskServer, config.EngineStub} {
		cfg := config.Default()
		cfg.Recognition.Engine = engine
		if err := cfg.Validate(); err != nil {
			t.Fatalf("engine %q rejected: %v", engine, err)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"concurrency zero", func(c *config.Config) { c.Batch.Concurrency = 0 }, "batch.concurrency"},
		{"concurrency high", func(c *config.Config) { c.Batch.Concurrency = 17 }, "batch.concurrency"},
		{"engine", func(c *config.Config) { c.Recognition.Engine = "kaldi" }, "recognition.engine"},
		{"sample rate", func(c *config.Config) { c.Recognition.SampleRate = 8000 }, "recognition.sample_rate"},
		{"frame size", func(c *config.Config) { c.Recognition.FrameSize = -1 }, "recognition.frame_size"},
		{"server url", func(c *config.Config) {
			c.Recognition.Engine = config.EngineVoskServer
			c.Recognition.ServerURL = "http://localhost:2700"
		}, "recognition.server_url"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "ntfy.sh/topic" }, "notifications.ntfy_topic"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[paths\nmodel_dir = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvModelDir, "")
	t.Setenv(config.EnvOutputDir, "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Recognition.Command != "vosk-stream" {
		t.Fatalf("unexpected command: %q", cfg.Recognition.Command)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputDir = filepath.Join(base, "out")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
}
