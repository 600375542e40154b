//go:build vosk

package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"vidscribe/internal/logging"
)

// NativeAvailable reports whether the in-process Vosk backend is compiled in.
func NativeAvailable() bool { return true }

// NativeEngine runs Vosk in-process through libvosk.
type NativeEngine struct {
	logger *slog.Logger
}

// NewNativeEngine returns the in-process Vosk engine.
func NewNativeEngine(logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	vosk.SetLogLevel(-1)
	return &NativeEngine{logger: logger}, nil
}

// Name implements Engine.
func (e *NativeEngine) Name() string { return "vosk" }

// LoadModel validates and loads the model once; sessions share it.
func (e *NativeEngine) LoadModel(_ context.Context, modelPath string) (Model, error) {
	if err := ValidateModelDir(modelPath); err != nil {
		return nil, err
	}
	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, &ModelLoadError{Path: modelPath, Reason: "libvosk could not load the model", Err: err}
	}
	e.logger.Debug("vosk model loaded", logging.String("model_dir", modelPath))
	return &nativeModel{model: model}, nil
}

type nativeModel struct {
	mu    sync.Mutex
	model *vosk.VoskModel
}

func (m *nativeModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model != nil {
		m.model.Free()
		m.model = nil
	}
	return nil
}

func (m *nativeModel) NewSession(_ context.Context, sampleRate int) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model == nil {
		return nil, &RecognitionError{Op: "new session", Err: errors.New("model closed")}
	}
	rec, err := vosk.NewRecognizer(m.model, float64(sampleRate))
	if err != nil {
		return nil, &RecognitionError{Op: "new session", Err: err}
	}
	return &nativeSession{rec: rec}, nil
}

type nativeSession struct {
	rec       *vosk.VoskRecognizer
	failed    error
	finalized bool
}

func (s *nativeSession) Feed(frame []byte) (Segment, bool, error) {
	if s.failed != nil {
		return Segment{}, false, s.failed
	}
	if s.rec == nil || s.finalized {
		s.failed = &RecognitionError{Op: "feed", Err: errors.New("session already finalized")}
		return Segment{}, false, s.failed
	}
	if err := checkFrame(frame); err != nil {
		s.failed = err
		return Segment{}, false, err
	}
	if len(frame) == 0 {
		return Segment{}, false, nil
	}
	switch s.rec.AcceptWaveform(frame) {
	case 0:
		return Segment{}, false, nil
	case 1:
		result, err := ParseResult([]byte(s.rec.Result()))
		if err != nil {
			s.failed = err
			return Segment{}, false, err
		}
		return Segment{Text: result.Text}, true, nil
	default:
		s.failed = &RecognitionError{Op: "feed", Err: fmt.Errorf("libvosk rejected a %d byte frame", len(frame))}
		return Segment{}, false, s.failed
	}
}

func (s *nativeSession) Finalize() (Segment, error) {
	if s.failed != nil {
		return Segment{}, s.failed
	}
	if s.rec == nil || s.finalized {
		s.failed = &RecognitionError{Op: "finalize", Err: errors.New("session already finalized")}
		return Segment{}, s.failed
	}
	s.finalized = true
	result, err := ParseResult([]byte(s.rec.FinalResult()))
	if err != nil {
		s.failed = err
		return Segment{}, err
	}
	return Segment{Text: result.Text}, nil
}

func (s *nativeSession) Close() error {
	if s.rec != nil {
		s.rec.Free()
		s.rec = nil
	}
	return nil
}
