package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRecognition()
	c.normalizeBatch()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv(EnvModelDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.ModelDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(EnvOutputDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}

	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.model_dir", &c.Paths.ModelDir, ""},
		{"paths.output_dir", &c.Paths.OutputDir, ""},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		raw := strings.TrimSpace(*field.value)
		if raw == "" {
			raw = field.fallback
		}
		expanded, err := expandPath(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeRecognition() {
	c.Recognition.Engine = strings.ToLower(strings.TrimSpace(c.Recognition.Engine))
	if c.Recognition.Engine == "" {
		c.Recognition.Engine = EngineProcess
	}
	c.Recognition.Command = strings.TrimSpace(c.Recognition.Command)
	if c.Recognition.Command == "" {
		c.Recognition.Command = defaultEngineCommand
	}
	c.Recognition.ServerURL = strings.TrimSpace(c.Recognition.ServerURL)
	if c.Recognition.ServerURL == "" {
		c.Recognition.ServerURL = defaultServerURL
	}
	if c.Recognition.SampleRate == 0 {
		c.Recognition.SampleRate = defaultSampleRate
	}
	if c.Recognition.FrameSize == 0 {
		c.Recognition.FrameSize = defaultFrameSize
	}
	c.Extraction.FFmpegBinary = strings.TrimSpace(c.Extraction.FFmpegBinary)
}

func (c *Config) normalizeBatch() {
	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = defaultConcurrency
	}
	if c.Batch.ProgressLogBucket <= 0 {
		c.Batch.ProgressLogBucket = defaultProgressLogBucket
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
