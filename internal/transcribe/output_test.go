package transcribe

import (
	"path/filepath"
	"testing"

	"vidscribe/internal/queue"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"/videos/talk.mp4", "talk.txt"},
		{"/videos/archive.tar.gz", "archive.tar.txt"},
		{"/videos/noext", "noext.txt"},
		{"/videos/.hidden", ".hidden.txt"},
		{"relative/clip.MKV", "clip.txt"},
		{"/videos/with space.webm", "with space.txt"},
	}
	for _, tt := range tests {
		got := OutputPath("/out", tt.source)
		if want := filepath.Join("/out", tt.want); got != want {
			t.Errorf("OutputPath(%q) = %q, want %q", tt.source, got, want)
		}
	}
}

func TestFrameProgressClamps(t *testing.T) {
	if got := frameProgress(0, 0); got != 0 {
		t.Fatalf("empty total = %v", got)
	}
	if got := frameProgress(50, 100); got != 0.5 {
		t.Fatalf("half = %v", got)
	}
	if got := frameProgress(100, 100); got != maxRecognizingProgress {
		t.Fatalf("complete stream must stay below 1.0, got %v", got)
	}
	if got := frameProgress(150, 100); got != maxRecognizingProgress {
		t.Fatalf("overrun = %v", got)
	}
}

func TestErrorKinds(t *testing.T) {
	if got := queue.KindOf(&OutputCollisionError{Path: "/out/a.txt", ClaimedBy: 1}); got != queue.KindOutputCollision {
		t.Fatalf("collision kind = %q", got)
	}
	if got := queue.KindOf(&WriteError{Path: "/out/a.txt"}); got != queue.KindIO {
		t.Fatalf("write kind = %q", got)
	}
}
