package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultFrameSize is the number of samples handed to Feed per call.
const DefaultFrameSize = 4000

// Segment is a finalized piece of transcript text.
type Segment struct {
	Text string
}

// Empty reports whether the segment carries no words.
func (s Segment) Empty() bool {
	return strings.TrimSpace(s.Text) == ""
}

// Engine loads speech models.
type Engine interface {
	// Name identifies the backend in logs.
	Name() string
	// LoadModel validates and loads the model at modelPath. Failures are
	// reported as *ModelLoadError.
	LoadModel(ctx context.Context, modelPath string) (Model, error)
}

// Model creates recognition sessions. A model may be shared across
// concurrent jobs; sessions may not.
type Model interface {
	NewSession(ctx context.Context, sampleRate int) (Session, error)
	Close() error
}

// Session is a single-owner streaming recognizer for one audio stream.
type Session interface {
	// Feed consumes one frame of 16-bit little-endian PCM. The bool reports
	// whether the engine finalized an utterance with this frame.
	Feed(frame []byte) (Segment, bool, error)
	// Finalize flushes buffered audio and returns the trailing segment. It
	// must be called at most once, and only after the last Feed.
	Finalize() (Segment, error)
	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Open loads modelPath with engine and starts one session. Closing the
// returned session also releases the model.
func Open(ctx context.Context, engine Engine, modelPath string, sampleRate int) (Session, error) {
	model, err := engine.LoadModel(ctx, modelPath)
	if err != nil {
		return nil, err
	}
	session, err := model.NewSession(ctx, sampleRate)
	if err != nil {
		_ = model.Close()
		return nil, err
	}
	return &ownedSession{Session: session, model: model}, nil
}

type ownedSession struct {
	Session
	model Model
}

func (s *ownedSession) Close() error {
	err := s.Session.Close()
	if cerr := s.model.Close(); err == nil {
		err = cerr
	}
	return err
}

// Result is one decoded engine reply.
type Result struct {
	Text  string
	Final bool
}

type wireResult struct {
	Text    *string `json:"text"`
	Partial *string `json:"partial"`
}

// ParseResult decodes a Vosk-style JSON reply. Only the finalized text is
// kept; partial hypotheses, word timings and confidences are discarded.
func ParseResult(data []byte) (Result, error) {
	var wire wireResult
	if err := json.Unmarshal(data, &wire); err != nil {
		return Result{}, &RecognitionError{Op: "parse result", Err: err}
	}
	if wire.Text != nil {
		return Result{Text: strings.TrimSpace(*wire.Text), Final: true}, nil
	}
	if wire.Partial != nil {
		return Result{}, nil
	}
	return Result{}, &RecognitionError{Op: "parse result", Err: fmt.Errorf("reply has neither text nor partial: %s", truncate(data, 120))}
}

func checkFrame(frame []byte) error {
	if len(frame)%2 != 0 {
		return &RecognitionError{Op: "feed", Err: fmt.Errorf("frame length %d is not a whole number of 16-bit samples", len(frame))}
	}
	return nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "…"
}
