package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultPollInterval is how often Follow checks for new lines.
const DefaultPollInterval = 250 * time.Millisecond

const maxLineBytes = 1024 * 1024

// Chunk is a batch of complete lines and the byte offset after them.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Last returns up to limit trailing lines of path. A limit of zero or less
// returns every line. A missing file yields an empty chunk.
func Last(path string, limit int) (Chunk, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return Chunk{}, err
	}
	defer file.Close()

	scanner := newScanner(file)
	var ring []string
	if limit > 0 {
		ring = make([]string, 0, limit)
	}
	start := 0
	var offset int64
	for scanner.Scan() {
		line := scanner.Text()
		offset += int64(len(scanner.Bytes())) + 1
		if limit <= 0 || len(ring) < limit {
			ring = append(ring, line)
			continue
		}
		ring[start] = line
		start = (start + 1) % limit
	}
	if err := scanner.Err(); err != nil {
		return Chunk{}, fmt.Errorf("read log file: %w", err)
	}

	lines := make([]string, 0, len(ring))
	lines = append(lines, ring[start:]...)
	lines = append(lines, ring[:start]...)
	return Chunk{Lines: lines, Offset: completeOffset(file, offset)}, nil
}

// Read returns the complete lines written after offset. An offset past the
// end of the file (truncation) restarts from the beginning.
func Read(path string, offset int64) (Chunk, error) {
	file, err := openLog(path)
	if err != nil {
		return Chunk{Offset: offset}, err
	}
	if file == nil {
		return Chunk{}, nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	chunk := Chunk{Offset: offset}
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			// A partial trailing line is picked up once it is complete.
			return chunk, nil
		}
		if err != nil {
			return chunk, fmt.Errorf("read log file: %w", err)
		}
		chunk.Offset += int64(len(line))
		chunk.Lines = append(chunk.Lines, trimNewline(line))
	}
}

// Follow calls emit for each line appended after offset until ctx ends.
// It returns nil on cancellation.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		chunk, err := Read(path, offset)
		if err != nil {
			return err
		}
		for _, line := range chunk.Lines {
			emit(line)
		}
		offset = chunk.Offset

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func openLog(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

// completeOffset clamps the scanned offset to the file size; the scanner
// counts a newline after an unterminated final line.
func completeOffset(file *os.File, scanned int64) int64 {
	info, err := file.Stat()
	if err != nil || scanned <= info.Size() {
		return scanned
	}
	return info.Size()
}

func trimNewline(line string) string {
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
