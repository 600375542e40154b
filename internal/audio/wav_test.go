package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func canonicalWAV(t *testing.T, samples []int16) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteWAV(&buf, SampleRate, samples); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOpenWAVCanonical(t *testing.T) {
	samples := make([]int16, 10000)
	for i := range samples {
		samples[i] = int16(i)
	}
	r, err := OpenWAV(writeFixture(t, canonicalWAV(t, samples)))
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	defer r.Close()

	f := r.Format()
	if f.SampleRate != 16000 || f.Channels != 1 || f.BitsPerSample != 16 {
		t.Fatalf("unexpected format %+v", f)
	}
	if !f.IsRecognizerReady(16000) {
		t.Fatal("expected recognizer-ready format")
	}
	if r.NumFrames() != 10000 {
		t.Fatalf("NumFrames = %d", r.NumFrames())
	}

	var sizes []int
	for {
		chunk, err := r.ReadFrames(4000)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrames: %v", err)
		}
		sizes = append(sizes, len(chunk))
	}
	want := []int{8000, 8000, 4000}
	if len(sizes) != len(want) {
		t.Fatalf("chunk sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("chunk sizes = %v, want %v", sizes, want)
		}
	}
}

func TestOpenWAVSkipsUnknownAndOddChunks(t *testing.T) {
	base := canonicalWAV(t, []int16{1, 2, 3, 4})
	// Insert an odd-sized LIST chunk (plus pad byte) between fmt and data.
	var buf bytes.Buffer
	buf.Write(base[:36])
	buf.WriteString("LIST")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(3))
	buf.Write([]byte{'a', 'b', 'c', 0})
	buf.Write(base[36:])

	r, err := OpenWAV(writeFixture(t, buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	defer r.Close()
	if r.NumFrames() != 4 {
		t.Fatalf("NumFrames = %d, want 4", r.NumFrames())
	}
	chunk, err := r.ReadFrames(10)
	if err != nil {
		t.Fatalf("ReadFrames: %v", err)
	}
	if got := int16(binary.LittleEndian.Uint16(chunk[6:8])); got != 4 {
		t.Fatalf("last sample = %d, want 4", got)
	}
}

func TestOpenWAVClampsStreamingDataSize(t *testing.T) {
	data := canonicalWAV(t, make([]int16, 100))
	binary.LittleEndian.PutUint32(data[40:44], 0xFFFFFFFF)

	r, err := OpenWAV(writeFixture(t, data))
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	defer r.Close()
	if r.NumFrames() != 100 {
		t.Fatalf("NumFrames = %d, want 100", r.NumFrames())
	}
}

func TestOpenWAVRejectsGarbage(t *testing.T) {
	if _, err := OpenWAV(writeFixture(t, []byte("definitely not audio"))); !errors.Is(err, ErrNotWAV) {
		t.Fatalf("expected ErrNotWAV, got %v", err)
	}
	headerOnly := canonicalWAV(t, nil)[:36]
	if _, err := OpenWAV(writeFixture(t, headerOnly)); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestFormatRejectsStereo(t *testing.T) {
	f := Format{AudioFormat: wavFormatPCM, Channels: 2, SampleRate: 16000, BitsPerSample: 16}
	if f.IsRecognizerReady(16000) {
		t.Fatal("stereo must not be recognizer-ready")
	}
	if f.FrameBytes() != 4 {
		t.Fatalf("FrameBytes = %d", f.FrameBytes())
	}
}
