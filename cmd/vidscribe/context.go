package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"vidscribe/internal/config"
	"vidscribe/internal/logging"
	"vidscribe/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// withStore opens the job table for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job table: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

var errRunActive = errors.New("a vidscribe run is in progress; wait for it or cancel it before removing jobs")

// withQueueEdit opens the job table while holding the run lock, so jobs a
// live run has already loaded cannot be removed underneath it.
func (c *commandContext) withQueueEdit(fn func(*config.Config, *queue.Store) error) error {
	return c.withStore(func(cfg *config.Config, store *queue.Store) error {
		lock := flock.New(cfg.LockPath())
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return errRunActive
		}
		defer lock.Unlock()
		return fn(cfg, store)
	})
}

// runLogger builds the logger for a batch run. While the live progress view
// owns the terminal, logs only go to the log file.
func runLogger(cfg *config.Config, live bool) (*slog.Logger, error) {
	if !live {
		return logging.NewFromConfig(cfg)
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
