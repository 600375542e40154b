package transcribe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"vidscribe/internal/audio"
	"vidscribe/internal/progress"
	"vidscribe/internal/queue"
	"vidscribe/internal/recognizer"
	"vidscribe/internal/testsupport"
	"vidscribe/internal/transcribe"
)

type recordingSink struct {
	mu      sync.Mutex
	updates []progress.Update
}

func (s *recordingSink) Publish(u progress.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
}

func (s *recordingSink) all() []progress.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]progress.Update(nil), s.updates...)
}

// scriptedModel hands out sessions whose behaviour is controlled per test.
type scriptedModel struct {
	onFeed    func(frame int) (recognizer.Segment, bool, error)
	finalized atomic.Int32
	closed    atomic.Int32
}

func (m *scriptedModel) NewSession(context.Context, int) (recognizer.Session, error) {
	return &scriptedSession{model: m}, nil
}

func (m *scriptedModel) Close() error { return nil }

type scriptedSession struct {
	model  *scriptedModel
	frames int
}

func (s *scriptedSession) Feed([]byte) (recognizer.Segment, bool, error) {
	s.frames++
	if s.model.onFeed == nil {
		return recognizer.Segment{}, false, nil
	}
	return s.model.onFeed(s.frames)
}

func (s *scriptedSession) Finalize() (recognizer.Segment, error) {
	s.model.finalized.Add(1)
	return recognizer.Segment{}, nil
}

func (s *scriptedSession) Close() error {
	s.model.closed.Add(1)
	return nil
}

type fixture struct {
	workDir   string
	outputDir string
	sink      *recordingSink
	extractor *testsupport.FakeExtractor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		workDir:   filepath.Join(base, "work"),
		outputDir: filepath.Join(base, "out"),
		sink:      &recordingSink{},
		extractor: &testsupport.FakeExtractor{},
	}
	for _, dir := range []string{f.workDir, f.outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func (f *fixture) runner(t *testing.T, model recognizer.Model, cancelled func() bool) *transcribe.Runner {
	t.Helper()
	r, err := transcribe.NewRunner(transcribe.Options{
		Extractor: f.extractor,
		Model:     model,
		Sink:      f.sink,
		WorkDir:   f.workDir,
		OutputDir: f.outputDir,
		Cancelled: cancelled,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func stubModel(t *testing.T, script map[int]string, final string) recognizer.Model {
	t.Helper()
	engine := recognizer.NewStubEngine(nil)
	engine.Script = script
	engine.FinalText = final
	model, err := engine.LoadModel(context.Background(), "unused")
	if err != nil {
		t.Fatal(err)
	}
	return model
}

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected %s to be absent, stat err = %v", path, err)
	}
}

func TestRunnerWritesFinalizedSegments(t *testing.T) {
	f := newFixture(t)
	model := stubModel(t, map[int]string{5: "hello"}, "world")
	runner := f.runner(t, model, nil)

	job, err := runner.Run(context.Background(), queue.Job{ID: 7, SourcePath: "/videos/talk.mp4", Status: queue.StatusPending})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if job.Status != queue.StatusCompleted || job.Progress != 1 {
		t.Fatalf("unexpected terminal job: %+v", job)
	}

	want := filepath.Join(f.outputDir, "talk.txt")
	if job.OutputPath != want {
		t.Fatalf("output path = %q, want %q", job.OutputPath, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(data) != "hello\nworld" {
		t.Fatalf("transcript = %q", data)
	}
	info, _ := os.Stat(want)
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("transcript mode = %v", info.Mode().Perm())
	}
	assertNoFile(t, audio.ArtifactPath(f.workDir, 7))

	updates := f.sink.all()
	if len(updates) < 3 {
		t.Fatalf("expected several updates, got %d", len(updates))
	}
	last := -1.0
	rank := map[queue.Status]int{queue.StatusExtracting: 1, queue.StatusRecognizing: 2, queue.StatusCompleted: 3}
	lastRank := 0
	for _, u := range updates {
		if rank[u.Status] < lastRank {
			t.Fatalf("status regressed at %+v", u)
		}
		if rank[u.Status] == lastRank && u.Progress < last {
			t.Fatalf("progress regressed at %+v", u)
		}
		if u.Status != queue.StatusCompleted && u.Progress >= 1 {
			t.Fatalf("progress reached 1.0 before completion: %+v", u)
		}
		lastRank, last = rank[u.Status], u.Progress
	}
	if final := updates[len(updates)-1]; final.Status != queue.StatusCompleted || final.Progress != 1 {
		t.Fatalf("last update = %+v", final)
	}
}

func TestRunnerDropsEmptySegments(t *testing.T) {
	f := newFixture(t)
	model := stubModel(t, map[int]string{2: "  ", 3: "one", 9: "two"}, "")
	runner := f.runner(t, model, nil)

	job, err := runner.Run(context.Background(), queue.Job{ID: 1, SourcePath: "/v/clip"})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(job.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one\ntwo" {
		t.Fatalf("transcript = %q", data)
	}
	if filepath.Base(job.OutputPath) != "clip.txt" {
		t.Fatalf("output = %s", job.OutputPath)
	}
}

func TestRunnerExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.Failures = map[string]error{
		"/v/broken.mkv": &audio.ExtractionError{Source: "/v/broken.mkv", ExitCode: 1, StderrTail: "Invalid data found"},
	}
	model := &scriptedModel{}
	runner := f.runner(t, model, nil)

	job, err := runner.Run(context.Background(), queue.Job{ID: 2, SourcePath: "/v/broken.mkv"})
	var extractErr *audio.ExtractionError
	if !errors.As(err, &extractErr) || extractErr.ExitCode != 1 {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if job.Status != queue.StatusFailed || job.ErrorKind != queue.KindExtraction {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.ErrorMessage == "" {
		t.Fatal("expected error message on failed job")
	}
	assertNoFile(t, filepath.Join(f.outputDir, "broken.txt"))
	if model.closed.Load() != 0 {
		t.Fatal("no session should be opened when extraction fails")
	}
}

func TestRunnerCancelMidStream(t *testing.T) {
	f := newFixture(t)
	var flag atomic.Bool
	model := &scriptedModel{
		onFeed: func(frame int) (recognizer.Segment, bool, error) {
			if frame == 3 {
				flag.Store(true)
			}
			return recognizer.Segment{Text: "partial words"}, true, nil
		},
	}
	runner := f.runner(t, model, flag.Load)

	job, err := runner.Run(context.Background(), queue.Job{ID: 3, SourcePath: "/v/long.mp4"})
	if err != nil {
		t.Fatalf("cancel should not be reported as an error: %v", err)
	}
	if job.Status != queue.StatusCancelled {
		t.Fatalf("status = %s", job.Status)
	}
	if job.Progress <= 0 || job.Progress >= 1 {
		t.Fatalf("cancelled job should keep partial progress, got %v", job.Progress)
	}
	if model.finalized.Load() != 0 {
		t.Fatal("Finalize must not run after cancel")
	}
	if model.closed.Load() != 1 {
		t.Fatalf("session closed %d times", model.closed.Load())
	}
	assertNoFile(t, filepath.Join(f.outputDir, "long.txt"))
	assertNoFile(t, audio.ArtifactPath(f.workDir, 3))
}

func TestRunnerContextCancelledBeforeRecognition(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := f.runner(t, &scriptedModel{}, nil)

	job, err := runner.Run(ctx, queue.Job{ID: 4, SourcePath: "/v/a.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != queue.StatusCancelled {
		t.Fatalf("status = %s", job.Status)
	}
}

func TestRunnerFeedErrorFailsJob(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{
		onFeed: func(frame int) (recognizer.Segment, bool, error) {
			if frame == 2 {
				return recognizer.Segment{}, false, errors.New("engine crashed")
			}
			return recognizer.Segment{}, false, nil
		},
	}
	runner := f.runner(t, model, nil)

	job, err := runner.Run(context.Background(), queue.Job{ID: 5, SourcePath: "/v/a.mp4"})
	var recErr *recognizer.RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected RecognitionError, got %T %v", err, err)
	}
	if job.Status != queue.StatusFailed || job.ErrorKind != queue.KindRecognition {
		t.Fatalf("unexpected job: %+v", job)
	}
	if model.closed.Load() != 1 {
		t.Fatal("session must be closed on failure")
	}
	assertNoFile(t, audio.ArtifactPath(f.workDir, 5))
	assertNoFile(t, filepath.Join(f.outputDir, "a.txt"))
}

func TestRunnerRejectsWrongSampleRate(t *testing.T) {
	f := newFixture(t)
	f.extractor.SampleRate = 8000
	model := &scriptedModel{}
	runner := f.runner(t, model, nil)

	job, err := runner.Run(context.Background(), queue.Job{ID: 6, SourcePath: "/v/a.mp4"})
	var recErr *recognizer.RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected RecognitionError, got %v", err)
	}
	if job.Status != queue.StatusFailed {
		t.Fatalf("status = %s", job.Status)
	}
	if model.closed.Load() != 0 {
		t.Fatal("session should not open for unusable audio")
	}
}

func TestRunnerWriteFailure(t *testing.T) {
	f := newFixture(t)
	runner := f.runner(t, stubModel(t, nil, "text"), nil)

	missing := filepath.Join(f.outputDir, "gone", "a.txt")
	job, err := runner.Run(context.Background(), queue.Job{ID: 8, SourcePath: "/v/a.mp4", OutputPath: missing})
	var writeErr *transcribe.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if job.Status != queue.StatusFailed || job.ErrorKind != queue.KindIO {
		t.Fatalf("unexpected job: %+v", job)
	}
	assertNoFile(t, audio.ArtifactPath(f.workDir, 8))
}

func TestRunnerFailSkipsExtraction(t *testing.T) {
	f := newFixture(t)
	runner := f.runner(t, &scriptedModel{}, nil)

	collision := &transcribe.OutputCollisionError{Path: "/out/a.txt", ClaimedBy: 1}
	job := runner.Fail(context.Background(), queue.Job{ID: 2, SourcePath: "/v2/a.mp4", Status: queue.StatusPending}, collision)
	if job.Status != queue.StatusFailed || job.ErrorKind != queue.KindOutputCollision {
		t.Fatalf("unexpected job: %+v", job)
	}
	if calls := f.extractor.Calls(); len(calls) != 0 {
		t.Fatalf("extractor called: %v", calls)
	}
	updates := f.sink.all()
	if len(updates) != 1 || updates[0].Status != queue.StatusFailed {
		t.Fatalf("unexpected updates: %+v", updates)
	}
}

func TestNewRunnerValidatesOptions(t *testing.T) {
	if _, err := transcribe.NewRunner(transcribe.Options{}); err == nil {
		t.Fatal("expected error without extractor")
	}
	if _, err := transcribe.NewRunner(transcribe.Options{Extractor: &testsupport.FakeExtractor{}}); err == nil {
		t.Fatal("expected error without model")
	}
	if _, err := transcribe.NewRunner(transcribe.Options{Extractor: &testsupport.FakeExtractor{}, Model: &scriptedModel{}}); err == nil {
		t.Fatal("expected error without work dir")
	}
}
