package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeRunner struct {
	calls    [][]string
	result   CommandResult
	err      error
	write    func(dest string) error
	lastName string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (CommandResult, error) {
	f.lastName = name
	f.calls = append(f.calls, append([]string(nil), args...))
	if f.write != nil {
		if err := f.write(args[len(args)-1]); err != nil {
			return CommandResult{}, err
		}
	}
	return f.result, f.err
}

func writeSamples(count int) func(string) error {
	return func(dest string) error {
		var buf bytes.Buffer
		if err := WriteWAV(&buf, SampleRate, make([]int16, count)); err != nil {
			return err
		}
		return os.WriteFile(dest, buf.Bytes(), 0o644)
	}
}

func TestExtractWritesArtifact(t *testing.T) {
	workDir := t.TempDir()
	runner := &fakeRunner{write: writeSamples(1600)}
	extractor := NewFFmpegExtractor("/opt/ffmpeg", WithRunner(runner))

	path, err := extractor.Extract(context.Background(), 42, "/videos/talk.mp4", workDir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if path != filepath.Join(workDir, "job-42.wav") {
		t.Fatalf("unexpected artifact path %q", path)
	}
	if runner.lastName != "/opt/ffmpeg" {
		t.Fatalf("unexpected binary %q", runner.lastName)
	}
	want := "-hide_banner -nostdin -y -loglevel error -i /videos/talk.mp4 -vn -sn -dn -ac 1 -ar 16000 -c:a pcm_s16le -f wav " + path
	if got := strings.Join(runner.calls[0], " "); got != want {
		t.Fatalf("args mismatch\n got: %s\nwant: %s", got, want)
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file in work dir, got %d", len(entries))
	}
}

func TestExtractNonZeroExit(t *testing.T) {
	var stderr strings.Builder
	for i := range 30 {
		fmt.Fprintf(&stderr, "line %d\n", i)
	}
	runner := &fakeRunner{
		result: CommandResult{ExitCode: 1, Stderr: stderr.String()},
		err:    errors.New("exit status 1"),
	}
	extractor := NewFFmpegExtractor("", WithRunner(runner))

	_, err := extractor.Extract(context.Background(), 1, "/videos/broken.mkv", t.TempDir())
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extErr.ExitCode != 1 {
		t.Fatalf("exit code = %d, want 1", extErr.ExitCode)
	}
	lines := strings.Split(extErr.StderrTail, "\n")
	if len(lines) != stderrTailLines {
		t.Fatalf("tail has %d lines, want %d", len(lines), stderrTailLines)
	}
	if lines[0] != "line 10" || lines[len(lines)-1] != "line 29" {
		t.Fatalf("unexpected tail bounds: %q .. %q", lines[0], lines[len(lines)-1])
	}
	if extErr.ErrorKind() != "extraction" {
		t.Fatalf("kind = %q", extErr.ErrorKind())
	}
	if runner.lastName != "ffmpeg" {
		t.Fatalf("expected default binary, got %q", runner.lastName)
	}
}

func TestExtractStartFailureReportsMinusOne(t *testing.T) {
	runner := &fakeRunner{err: errors.New("executable file not found")}
	_, err := NewFFmpegExtractor("ffmpeg", WithRunner(runner)).Extract(context.Background(), 3, "/v.mp4", t.TempDir())
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extErr.ExitCode != -1 {
		t.Fatalf("exit code = %d, want -1", extErr.ExitCode)
	}
}

func TestExtractRejectsEmptyOutputs(t *testing.T) {
	cases := map[string]func(string) error{
		"missing": nil,
		"empty": func(dest string) error {
			return os.WriteFile(dest, nil, 0o644)
		},
		"no frames": writeSamples(0),
	}
	for name, write := range cases {
		t.Run(name, func(t *testing.T) {
			workDir := t.TempDir()
			runner := &fakeRunner{write: write}
			_, err := NewFFmpegExtractor("ffmpeg", WithRunner(runner)).Extract(context.Background(), 9, "/v.mp4", workDir)
			var extErr *ExtractionError
			if !errors.As(err, &extErr) {
				t.Fatalf("expected ExtractionError, got %v", err)
			}
			if _, statErr := os.Stat(ArtifactPath(workDir, 9)); !os.IsNotExist(statErr) {
				t.Fatal("partial artifact should be removed")
			}
		})
	}
}

func TestTailStderrBoundsBytes(t *testing.T) {
	long := strings.Repeat("x", 5000)
	tail := tailStderr(long)
	if len(tail) != stderrTailBytes {
		t.Fatalf("tail length = %d, want %d", len(tail), stderrTailBytes)
	}
	if tailStderr("  \n ") != "" {
		t.Fatal("blank stderr should produce empty tail")
	}
}
