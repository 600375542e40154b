package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ModelDir  string `toml:"model_dir"`
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Recognition selects and tunes the speech-recognition backend.
type Recognition struct {
	// Engine is one of "process", "vosk-server" or "stub".
	Engine string `toml:"engine"`
	// Command is the helper executable spawned by the process engine.
	Command string `toml:"command"`
	// ServerURL is the websocket endpoint used by the vosk-server engine.
	ServerURL  string `toml:"server_url"`
	SampleRate int    `toml:"sample_rate"`
	// FrameSize is the number of samples fed to the recognizer per call.
	FrameSize int `toml:"frame_size"`
}

// Extraction contains settings for the audio extraction step.
type Extraction struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
}

// Batch contains scheduling settings.
type Batch struct {
	Concurrency       int     `toml:"concurrency"`
	ProgressLogBucket float64 `toml:"progress_log_bucket"`
	// WorkRetentionDays prunes run scratch directories left behind by crashed runs.
	WorkRetentionDays int `toml:"work_retention_days"`
}

// Notifications configures ntfy push messages for batch milestones.
type Notifications struct {
	// NtfyTopic is the full topic URL, e.g. https://ntfy.sh/my-transcripts.
	// Empty disables notifications.
	NtfyTopic string `toml:"ntfy_topic"`
	// RequestTimeout is in seconds.
	RequestTimeout int `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vidscribe.
//
// Configuration sections by subsystem:
//   - Paths: model, output, scratch, state, and log directories
//   - Recognition: engine selection, helper command, frame size
//   - Extraction: ffmpeg binary
//   - Batch: concurrency and progress log sampling
//   - Notifications: ntfy topic for batch start/finish messages
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Recognition   Recognition   `toml:"recognition"`
	Extraction    Extraction    `toml:"extraction"`
	Batch         Batch         `toml:"batch"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes to.
// OutputDir is left alone when unset; a run fails later with a clear error.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		if err := os.MkdirAll(c.Paths.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", c.Paths.OutputDir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for audio extraction.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Extraction.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// QueueDBPath returns the location of the persisted job table.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// LockPath returns the location of the single-run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "vidscribe.lock")
}

// StatePath returns the location of the remembered-directories file.
func (c *Config) StatePath() string {
	return filepath.Join(c.Paths.StateDir, "state.toml")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
