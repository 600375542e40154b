package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseResolvesRelativeSources(t *testing.T) {
	base := t.TempDir()
	data := []byte(`
sources:
  - week1.mp4
  - nested/week2.mkv
  - /abs/interview.webm
  - week1.mp4
  - "  "
output_dir: out
`)
	m, err := Parse(data, base)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{
		filepath.Join(base, "week1.mp4"),
		filepath.Join(base, "nested", "week2.mkv"),
		"/abs/interview.webm",
	}
	if len(m.Sources) != len(want) {
		t.Fatalf("sources = %v", m.Sources)
	}
	for i := range want {
		if m.Sources[i] != want[i] {
			t.Fatalf("source[%d] = %q, want %q", i, m.Sources[i], want[i])
		}
	}
	if m.OutputDir != filepath.Join(base, "out") {
		t.Fatalf("output dir = %q", m.OutputDir)
	}
	if m.ModelDir != "" {
		t.Fatalf("model dir should stay empty, got %q", m.ModelDir)
	}
}

func TestParseExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	m, err := Parse([]byte("sources: [~/clip.mp4]\nmodel_dir: ~/models/small\n"), "/unused")
	if err != nil {
		t.Fatal(err)
	}
	if m.Sources[0] != filepath.Join(home, "clip.mp4") || m.ModelDir != filepath.Join(home, "models", "small") {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}

func TestParseRejectsBadManifests(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty", "", "empty"},
		{"no sources", "output_dir: /tmp\n", "no sources"},
		{"unknown key", "sources: [a.mp4]\noutputdir: /tmp\n", "outputdir"},
		{"wrong type", "sources: a.mp4\n", "parse manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "/base")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadUsesManifestDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	if err := os.WriteFile(path, []byte("sources:\n  - talk.mp4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Sources[0] != filepath.Join(dir, "talk.mp4") {
		t.Fatalf("source = %q", m.Sources[0])
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}
