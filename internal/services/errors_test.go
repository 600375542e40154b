package services_test

import (
	"errors"
	"strings"
	"testing"

	"vidscribe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "extracting", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extracting", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsConfiguration(t *testing.T) {
	cfgErr := services.Wrap(services.ErrConfiguration, "batch", "resolve", "output directory missing", nil)
	if !services.IsConfiguration(cfgErr) {
		t.Fatalf("expected configuration classification for %v", cfgErr)
	}
	toolErr := services.Wrap(services.ErrExternalTool, "extracting", "ffmpeg", "exit 1", nil)
	if services.IsConfiguration(toolErr) {
		t.Fatalf("did not expect configuration classification for %v", toolErr)
	}
}
