package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateRecognition() error {
	switch c.Recognition.Engine {
	case EngineProcess:
		if strings.TrimSpace(c.Recognition.Command) == "" {
			return errors.New("recognition.command must be set when recognition.engine is process")
		}
	case EngineVoskServer:
		url := strings.TrimSpace(c.Recognition.ServerURL)
		if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return fmt.Errorf("recognition.server_url must be a ws:// or wss:// URL, got %q", c.Recognition.ServerURL)
		}
	case EngineVosk, EngineStub:
	default:
		return fmt.Errorf("recognition.engine: unsupported value %q (want %s, %s, %s or %s)",
			c.Recognition.Engine, EngineProcess, EngineVosk, EngineVoskServer, EngineStub)
	}
	if c.Recognition.SampleRate != defaultSampleRate {
		return fmt.Errorf("recognition.sample_rate must be %d, got %d", defaultSampleRate, c.Recognition.SampleRate)
	}
	if c.Recognition.FrameSize <= 0 {
		return fmt.Errorf("recognition.frame_size must be positive, got %d", c.Recognition.FrameSize)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > maxConcurrency {
		return fmt.Errorf("batch.concurrency must be between 1 and %d, got %d", maxConcurrency, c.Batch.Concurrency)
	}
	if c.Batch.WorkRetentionDays < 0 {
		return fmt.Errorf("batch.work_retention_days must be >= 0, got %d", c.Batch.WorkRetentionDays)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
