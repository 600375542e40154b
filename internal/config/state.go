package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"vidscribe/internal/fileutil"
)

// State holds values remembered between runs.
type State struct {
	LastModelDir  string `toml:"last_model_dir"`
	LastOutputDir string `toml:"last_output_dir"`
}

// StateStore reads and writes the remembered-directories file.
type StateStore struct {
	path string
}

// NewStateStore returns a store backed by the TOML file at path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the backing file location.
func (s *StateStore) Path() string {
	return s.path
}

// Load returns the remembered state. A missing file yields an empty State.
func (s *StateStore) Load() (State, error) {
	var st State
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, nil
		}
		return st, fmt.Errorf("read state: %w", err)
	}
	if err := toml.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse state %s: %w", s.path, err)
	}
	return st, nil
}

// Save persists st atomically. Concurrent writers serialize on a sibling lock file.
func (s *StateStore) Save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock state: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// ResolveDir picks the first non-blank candidate in priority order
// (explicit flag, remembered state, configuration) and expands it.
func ResolveDir(candidates ...string) (string, error) {
	for _, candidate := range candidates {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return expandPath(trimmed)
		}
	}
	return "", nil
}
