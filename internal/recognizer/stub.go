package recognizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"vidscribe/internal/logging"
)

// StubEngine produces deterministic transcripts without a speech model.
//
// With no Script, every session emits "[stub] segment N" each time
// SegmentEvery frames have been fed and Finalize reports the frame count.
// With a Script, the text mapped to a 1-based frame number is returned as the
// segment finalized by that frame, and FinalText is returned by Finalize.
type StubEngine struct {
	Script       map[int]string
	FinalText    string
	SegmentEvery int
	log          *slog.Logger

	mu       sync.Mutex
	sessions int
}

// NewStubEngine returns an engine that generates placeholder transcripts.
func NewStubEngine(logger *slog.Logger) *StubEngine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StubEngine{SegmentEvery: 25, log: logger.With(logging.String(logging.FieldComponent, "recognizer.stub"))}
}

// Name implements Engine.
func (e *StubEngine) Name() string { return "stub" }

// Sessions returns how many sessions were opened.
func (e *StubEngine) Sessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions
}

// LoadModel accepts any path; the stub needs no model files.
func (e *StubEngine) LoadModel(_ context.Context, modelPath string) (Model, error) {
	if e.log != nil {
		e.log.Debug("stub model loaded", logging.String("model_dir", modelPath))
	}
	return stubModel{engine: e}, nil
}

type stubModel struct {
	engine *StubEngine
}

func (m stubModel) Close() error { return nil }

func (m stubModel) NewSession(_ context.Context, sampleRate int) (Session, error) {
	if sampleRate <= 0 {
		return nil, &RecognitionError{Op: "new session", Err: fmt.Errorf("invalid sample rate %d", sampleRate)}
	}
	m.engine.mu.Lock()
	m.engine.sessions++
	m.engine.mu.Unlock()
	return &stubSession{engine: m.engine}, nil
}

type stubSession struct {
	engine    *StubEngine
	frames    int
	segments  int
	finalized bool
	closed    bool
}

func (s *stubSession) Feed(frame []byte) (Segment, bool, error) {
	if s.closed || s.finalized {
		return Segment{}, false, &RecognitionError{Op: "feed", Err: fmt.Errorf("session no longer accepts audio")}
	}
	if err := checkFrame(frame); err != nil {
		return Segment{}, false, err
	}
	s.frames++
	if s.engine.Script != nil {
		if text, ok := s.engine.Script[s.frames]; ok {
			return Segment{Text: text}, true, nil
		}
		return Segment{}, false, nil
	}
	if every := s.engine.SegmentEvery; every > 0 && s.frames%every == 0 {
		s.segments++
		return Segment{Text: fmt.Sprintf("[stub] segment %d", s.segments)}, true, nil
	}
	return Segment{}, false, nil
}

func (s *stubSession) Finalize() (Segment, error) {
	if s.closed || s.finalized {
		return Segment{}, &RecognitionError{Op: "finalize", Err: fmt.Errorf("session already finalized")}
	}
	s.finalized = true
	if s.engine.Script != nil {
		return Segment{Text: strings.TrimSpace(s.engine.FinalText)}, nil
	}
	return Segment{Text: fmt.Sprintf("[stub] %d frames", s.frames)}, nil
}

func (s *stubSession) Close() error {
	s.closed = true
	return nil
}
