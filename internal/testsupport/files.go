package testsupport

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"vidscribe/internal/audio"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteWAV writes 16 kHz mono PCM samples to path.
func WriteWAV(t testing.TB, path string, samples []int16) {
	t.Helper()

	var buf bytes.Buffer
	if err := audio.WriteWAV(&buf, audio.SampleRate, samples); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SineSamples returns seconds of a 440 Hz tone at 16 kHz.
func SineSamples(seconds float64) []int16 {
	n := int(seconds * audio.SampleRate)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/audio.SampleRate))
	}
	return samples
}

// WriteModelDir creates a minimal Vosk model layout at dir and returns dir.
func WriteModelDir(t testing.TB, dir string) string {
	t.Helper()

	WriteFile(t, filepath.Join(dir, "am", "final.mdl"), 16)
	WriteFile(t, filepath.Join(dir, "conf", "model.conf"), 16)
	return dir
}
