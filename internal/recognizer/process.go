package recognizer

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"vidscribe/internal/logging"
)

// ProcessEngine drives an external recognizer helper (vosk-stream by
// default) over a length-prefixed stdin protocol.
//
// The helper is started as `<command> --model <dir> --sample-rate <rate>`.
// Each stdin message is a 4-byte little-endian length followed by that many
// bytes of PCM; a zero length ends the stream. The helper answers every frame
// with one JSON line and writes one final line after the end of stream.
type ProcessEngine struct {
	command string
	logger  *slog.Logger
}

// NewProcessEngine returns an engine that spawns command per session.
func NewProcessEngine(command string, logger *slog.Logger) *ProcessEngine {
	command = strings.TrimSpace(command)
	if command == "" {
		command = "vosk-stream"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ProcessEngine{command: command, logger: logger}
}

// Name implements Engine.
func (e *ProcessEngine) Name() string { return "process" }

// LoadModel validates the model directory and resolves the helper binary.
func (e *ProcessEngine) LoadModel(_ context.Context, modelPath string) (Model, error) {
	if err := ValidateModelDir(modelPath); err != nil {
		return nil, err
	}
	resolved, err := exec.LookPath(e.command)
	if err != nil {
		return nil, &ModelLoadError{Path: modelPath, Reason: fmt.Sprintf("recognizer helper %q not found", e.command), Err: err}
	}
	e.logger.Debug("process engine ready",
		logging.String("command", resolved),
		logging.String("model_dir", modelPath),
	)
	return &processModel{command: resolved, modelPath: modelPath, logger: e.logger}, nil
}

type processModel struct {
	command   string
	modelPath string
	logger    *slog.Logger
}

func (m *processModel) Close() error { return nil }

func (m *processModel) NewSession(ctx context.Context, sampleRate int) (Session, error) {
	args := []string{"--model", m.modelPath, "--sample-rate", strconv.Itoa(sampleRate)}
	// The helper lives as long as the session; Close terminates it.
	cmd := exec.Command(m.command, args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &RecognitionError{Op: "start helper", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &RecognitionError{Op: "start helper", Err: err}
	}
	stderr := &tailBuffer{limit: 2048}
	cmd.Stderr = stderr
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, &RecognitionError{Op: "start helper", Err: err}
	}
	logging.WithContext(ctx, m.logger).Debug("recognizer helper started",
		logging.Int("pid", cmd.Process.Pid),
		logging.Int("sample_rate", sampleRate),
	)
	return &processSession{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		stderr: stderr,
	}, nil
}

type processSession struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	stderr    *tailBuffer
	failed    error
	finalized bool
	closeOnce sync.Once
	waited    bool
}

func (s *processSession) Feed(frame []byte) (Segment, bool, error) {
	if s.failed != nil {
		return Segment{}, false, s.failed
	}
	if s.finalized {
		return Segment{}, false, s.fail("feed", errors.New("session already finalized"))
	}
	if err := checkFrame(frame); err != nil {
		s.failed = err
		return Segment{}, false, err
	}
	if len(frame) == 0 {
		return Segment{}, false, nil
	}
	if err := s.writeFrame(frame); err != nil {
		return Segment{}, false, s.fail("feed", err)
	}
	result, err := s.readResult()
	if err != nil {
		return Segment{}, false, err
	}
	if !result.Final {
		return Segment{}, false, nil
	}
	return Segment{Text: result.Text}, true, nil
}

func (s *processSession) Finalize() (Segment, error) {
	if s.failed != nil {
		return Segment{}, s.failed
	}
	if s.finalized {
		return Segment{}, s.fail("finalize", errors.New("session already finalized"))
	}
	s.finalized = true
	if err := s.writeFrame(nil); err != nil {
		return Segment{}, s.fail("finalize", err)
	}
	_ = s.stdin.Close()
	result, err := s.readResult()
	if err != nil {
		return Segment{}, err
	}
	s.waited = true
	if err := s.cmd.Wait(); err != nil {
		return Segment{}, s.fail("finalize", fmt.Errorf("helper exited: %w", err))
	}
	return Segment{Text: result.Text}, nil
}

func (s *processSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.stdin.Close()
		if s.waited {
			return
		}
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
		s.waited = true
	})
	return nil
}

func (s *processSession) writeFrame(frame []byte) error {
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(frame)))
	if _, err := s.stdin.Write(header[:]); err != nil {
		return err
	}
	if len(frame) == 0 {
		return nil
	}
	_, err := s.stdin.Write(frame)
	return err
}

func (s *processSession) readResult() (Result, error) {
	line, err := s.stdout.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return Result{}, s.fail("read result", err)
	}
	result, perr := ParseResult(line)
	if perr != nil {
		s.failed = perr
		return Result{}, perr
	}
	return result, nil
}

func (s *processSession) fail(op string, err error) error {
	if tail := s.stderr.String(); tail != "" {
		err = fmt.Errorf("%w (helper stderr: %s)", err, tail)
	}
	s.failed = &RecognitionError{Op: op, Err: err}
	return s.failed
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
