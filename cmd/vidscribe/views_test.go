package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"vidscribe/internal/logging"
	"vidscribe/internal/progress"
	"vidscribe/internal/queue"
)

func TestFormatStatusLabel(t *testing.T) {
	tests := map[queue.Status]string{
		queue.StatusPending:         "Pending",
		queue.StatusRecognizing:     "Recognizing",
		queue.Status("out_of_band"): "Out Of Band",
		queue.Status(""):            "",
	}
	for status, want := range tests {
		if got := formatStatusLabel(status); got != want {
			t.Errorf("formatStatusLabel(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestBuildJobRows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	jobs := []*queue.Job{
		{ID: 1, SourcePath: "/v/a.mp4", Status: queue.StatusCompleted, Progress: 1, OutputPath: "/out/a.txt", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 2, SourcePath: "/v/b.mp4", Status: queue.StatusFailed, Progress: 0.4, ErrorKind: queue.KindRecognition, ErrorMessage: "engine crashed"},
		{ID: 3, SourcePath: "/v/c.mp4", Status: queue.StatusRecognizing, Progress: 0.256},
		{ID: 4, SourcePath: "/v/d.mp4", Status: queue.StatusPending},
	}

	rows := buildJobRows(jobs, now)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	want := [][]string{
		{"1", "a.mp4", "Completed", "100%", "2 hours ago", "/out/a.txt"},
		{"2", "b.mp4", "Failed", "40%", "", "recognition: engine crashed"},
		{"3", "c.mp4", "Recognizing", "26%", "", ""},
		{"4", "d.mp4", "Pending", "-", "", ""},
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %q, want %q", i, rows[i], want[i])
		}
	}
	if buildJobRows(nil, now) != nil {
		t.Fatal("expected nil rows for empty input")
	}
}

func TestBuildStatusCountRowsFollowsLifecycleOrder(t *testing.T) {
	rows := buildStatusCountRows(map[queue.Status]int{
		queue.StatusFailed:    2,
		queue.StatusPending:   1200,
		queue.StatusCancelled: 0,
	})
	if len(rows) != 2 {
		t.Fatalf("expected zero counts to be skipped, got %q", rows)
	}
	if rows[0][0] != "Pending" || rows[0][1] != "1,200" || rows[1][0] != "Failed" {
		t.Fatalf("unexpected rows: %q", rows)
	}
}

func TestRenderTableWrapsLongCells(t *testing.T) {
	long := strings.Repeat("segment ", 20)
	out := renderTable([]string{"ID", "Detail"}, [][]string{{"1", long}}, []columnAlignment{alignRight, alignLeft})
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if len([]rune(line)) > maxCellWidth+20 {
			t.Fatalf("line not wrapped (%d runes): %q", len([]rune(line)), line)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestPlainViewPrintsTransitionsAndBuckets(t *testing.T) {
	var buf bytes.Buffer
	v := &plainView{
		out:      &buf,
		names:    map[int64]string{7: "talk.mp4"},
		total:    1,
		samplers: map[int64]*logging.ProgressSampler{},
	}
	updates := []progress.Update{
		{JobID: 7, Status: queue.StatusExtracting},
		{JobID: 7, Status: queue.StatusRecognizing, Progress: 0},
		{JobID: 7, Status: queue.StatusRecognizing, Progress: 0.1},
		{JobID: 7, Status: queue.StatusRecognizing, Progress: 0.3},
		{JobID: 7, Status: queue.StatusRecognizing, Progress: 0.3},
		{JobID: 7, Status: queue.StatusCompleted, Progress: 1},
	}
	for _, u := range updates {
		v.render([]progress.Update{u})
	}

	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"[1/1] talk.mp4: Extracting",
		"[1/1] talk.mp4: Recognizing 0%",
		"[1/1] talk.mp4: Recognizing 30%",
		"[1/1] talk.mp4: Completed",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected lines:\n%s", buf.String())
	}
}

func TestFormatPlainLineIncludesError(t *testing.T) {
	line := formatPlainLine(2, 3, "b.mp4", progress.Update{Status: queue.StatusFailed, Error: "ffmpeg exited with code 1"})
	if line != "[2/3] b.mp4: Failed - ffmpeg exited with code 1" {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestPlainViewStopRendersFinalSnapshot(t *testing.T) {
	sink := progress.NewSink(1)
	var buf bytes.Buffer
	v := startPlainView(&buf, map[int64]string{1: "a.mp4"}, sink)
	sink.Publish(progress.Update{JobID: 1, Status: queue.StatusCompleted, Progress: 1})
	sink.Close()
	v.stop()
	v.stop()
	if !strings.Contains(buf.String(), "a.mp4: Completed") {
		t.Fatalf("final state not rendered: %q", buf.String())
	}
}
