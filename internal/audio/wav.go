package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Format describes the PCM layout of a WAV file.
type Format struct {
	AudioFormat   uint16
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// FrameBytes is the size of one frame (one sample per channel).
func (f Format) FrameBytes() int {
	return f.Channels * f.BitsPerSample / 8
}

// IsRecognizerReady reports whether the format is 16-bit mono PCM at rate.
func (f Format) IsRecognizerReady(rate int) bool {
	return f.AudioFormat == wavFormatPCM && f.Channels == Channels && f.BitsPerSample == BitsPerSample && f.SampleRate == rate
}

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

var (
	// ErrNotWAV is returned when the file lacks a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a RIFF/WAVE file")
	// ErrNoFormat is returned when the data chunk precedes any fmt chunk.
	ErrNoFormat = errors.New("wav: data chunk before fmt chunk")
	// ErrNoData is returned when no data chunk exists.
	ErrNoData = errors.New("wav: missing data chunk")
)

// WAVReader streams PCM frames from a WAV file.
type WAVReader struct {
	file      *os.File
	reader    *bufio.Reader
	format    Format
	dataBytes int64
	remaining int64
}

// OpenWAV parses the RIFF header, skipping chunks other than fmt and data.
// A data size larger than the bytes present (streaming writers emit
// 0xFFFFFFFF) is clamped to the actual file length.
func OpenWAV(path string) (*WAVReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat wav: %w", err)
	}
	r := &WAVReader{file: file, reader: bufio.NewReaderSize(file, 64*1024)}
	if err := r.parseHeader(info.Size()); err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *WAVReader) parseHeader(fileSize int64) error {
	var riff [12]byte
	if _, err := io.ReadFull(r.reader, riff[:]); err != nil {
		return ErrNotWAV
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return ErrNotWAV
	}
	offset := int64(12)
	haveFormat := false

	for {
		var header [8]byte
		if _, err := io.ReadFull(r.reader, header[:]); err != nil {
			return ErrNoData
		}
		offset += 8
		id := string(header[0:4])
		size := int64(binary.LittleEndian.Uint32(header[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return fmt.Errorf("wav: fmt chunk too short (%d bytes)", size)
			}
			buf := make([]byte, size)
			if _, err := io.ReadFull(r.reader, buf); err != nil {
				return fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			r.format = Format{
				AudioFormat:   binary.LittleEndian.Uint16(buf[0:2]),
				Channels:      int(binary.LittleEndian.Uint16(buf[2:4])),
				SampleRate:    int(binary.LittleEndian.Uint32(buf[4:8])),
				BitsPerSample: int(binary.LittleEndian.Uint16(buf[14:16])),
			}
			if r.format.AudioFormat == wavFormatExtensible && size >= 26 {
				r.format.AudioFormat = binary.LittleEndian.Uint16(buf[24:26])
			}
			if r.format.FrameBytes() <= 0 {
				return fmt.Errorf("wav: invalid frame layout (%d channels, %d bits)", r.format.Channels, r.format.BitsPerSample)
			}
			haveFormat = true
			offset += size
			if err := r.skipPad(size, &offset); err != nil {
				return err
			}
		case "data":
			if !haveFormat {
				return ErrNoFormat
			}
			if available := fileSize - offset; size > available {
				size = max(available, 0)
			}
			frameBytes := int64(r.format.FrameBytes())
			size -= size % frameBytes
			r.dataBytes = size
			r.remaining = size
			return nil
		default:
			if _, err := r.reader.Discard(int(size)); err != nil {
				return ErrNoData
			}
			offset += size
			if err := r.skipPad(size, &offset); err != nil {
				return err
			}
		}
	}
}

// skipPad consumes the pad byte that follows odd-sized chunks.
func (r *WAVReader) skipPad(size int64, offset *int64) error {
	if size%2 == 0 {
		return nil
	}
	if _, err := r.reader.Discard(1); err != nil {
		return ErrNoData
	}
	*offset++
	return nil
}

// Format returns the parsed fmt chunk.
func (r *WAVReader) Format() Format {
	return r.format
}

// NumFrames returns the number of frames in the data chunk.
func (r *WAVReader) NumFrames() int64 {
	return r.dataBytes / int64(r.format.FrameBytes())
}

// DataBytes returns the size of the PCM payload in bytes.
func (r *WAVReader) DataBytes() int64 {
	return r.dataBytes
}

// ReadFrames returns up to n frames of raw little-endian PCM. It returns
// io.EOF once the data chunk is exhausted.
func (r *WAVReader) ReadFrames(n int) ([]byte, error) {
	if r.remaining <= 0 {
		return nil, io.EOF
	}
	if n <= 0 {
		return nil, fmt.Errorf("wav: invalid frame count %d", n)
	}
	want := min(int64(n)*int64(r.format.FrameBytes()), r.remaining)
	buf := make([]byte, want)
	read, err := io.ReadFull(r.reader, buf)
	r.remaining -= int64(read)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			r.remaining = 0
			if read == 0 {
				return nil, io.EOF
			}
			whole := read - read%r.format.FrameBytes()
			return buf[:whole], nil
		}
		return nil, fmt.Errorf("wav: read frames: %w", err)
	}
	return buf, nil
}

// Close releases the underlying file.
func (r *WAVReader) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// WriteWAV writes 16-bit mono PCM samples as a canonical WAV file. It is used
// by tests and test fixtures.
func WriteWAV(w io.Writer, sampleRate int, samples []int16) error {
	dataBytes := uint32(len(samples) * 2)
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataBytes)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(header[22:24], Channels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], BitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataBytes)
	if _, err := w.Write(header); err != nil {
		return err
	}
	payload := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(payload[i*2:], uint16(s))
	}
	_, err := w.Write(payload)
	return err
}
