package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidscribe/internal/config"
	"vidscribe/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	mediaDir   string
}

// setupCLITestEnv writes a config using the stub engine and a fake ffmpeg
// that copies a one-second WAV fixture to its output path. Sources whose name
// contains "broken" make the fake ffmpeg exit 1.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv(config.EnvModelDir, "")
	t.Setenv(config.EnvOutputDir, "")

	fixture := filepath.Join(base, "fixture.wav")
	testsupport.WriteWAV(t, fixture, testsupport.SineSamples(1))
	ffmpeg := filepath.Join(base, "fake-ffmpeg")
	script := fmt.Sprintf(`#!/bin/sh
for last; do :; done
case "$*" in
  *broken*) echo "Invalid data found when processing input" >&2; exit 1 ;;
esac
cp %q "$last"
`, fixture)
	if err := os.WriteFile(ffmpeg, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	cfg.Extraction.FFmpegBinary = ffmpeg

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	mediaDir := filepath.Join(base, "media")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		t.Fatalf("mkdir media: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base, mediaDir: mediaDir}
}

// video creates a placeholder source file and returns its path.
func (e *cliTestEnv) video(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.mediaDir, name)
	testsupport.WriteFile(t, path, 64)
	return path
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, e.configPath)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
model_dir = %q
output_dir = %q
work_dir = %q
state_dir = %q
log_dir = %q

[recognition]
engine = %q
command = %q

[extraction]
ffmpeg_binary = %q

[batch]
concurrency = %d

[notifications]
ntfy_topic = %q
`,
		cfg.Paths.ModelDir,
		cfg.Paths.OutputDir,
		cfg.Paths.WorkDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Recognition.Engine,
		cfg.Recognition.Command,
		cfg.Extraction.FFmpegBinary,
		cfg.Batch.Concurrency,
		cfg.Notifications.NtfyTopic,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}
