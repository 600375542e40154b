// Package manifest reads YAML batch manifests for "vidscribe add --manifest".
//
//	sources:
//	  - lectures/week1.mp4
//	  - /srv/video/interview.mkv
//	output_dir: ~/Transcripts/course
//	model_dir: ~/models/vosk-model-en-us-0.22
//
// Relative source paths resolve against the manifest's directory.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"vidscribe/internal/config"
)

// Manifest lists sources to queue plus optional directory overrides.
type Manifest struct {
	Sources   []string `yaml:"sources"`
	OutputDir string   `yaml:"output_dir"`
	ModelDir  string   `yaml:"model_dir"`
}

// Load reads and resolves the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}
	m, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes manifest YAML. Unknown keys are rejected so typos surface.
// Source paths are made absolute relative to baseDir; blank and duplicate
// entries are dropped while keeping the first occurrence's position.
func Parse(data []byte, baseDir string) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("manifest is empty")
		}
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	seen := make(map[string]struct{}, len(m.Sources))
	sources := make([]string, 0, len(m.Sources))
	for _, src := range m.Sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		resolved, err := resolve(src, baseDir)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		sources = append(sources, resolved)
	}
	if len(sources) == 0 {
		return nil, errors.New("manifest lists no sources")
	}
	m.Sources = sources

	var err error
	if m.OutputDir, err = resolveOptional(m.OutputDir, baseDir); err != nil {
		return nil, err
	}
	if m.ModelDir, err = resolveOptional(m.ModelDir, baseDir); err != nil {
		return nil, err
	}
	return &m, nil
}

func resolve(path, baseDir string) (string, error) {
	if !strings.HasPrefix(path, "~") && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return config.ExpandPath(path)
}

func resolveOptional(path, baseDir string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	return resolve(strings.TrimSpace(path), baseDir)
}
