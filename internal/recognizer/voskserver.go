package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"vidscribe/internal/logging"
)

// VoskServerEngine streams audio to a running vosk-server over websocket.
// The server owns the model, so the local model directory is not consulted.
type VoskServerEngine struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewVoskServerEngine returns an engine that talks to the server at url.
func NewVoskServerEngine(url string, logger *slog.Logger) *VoskServerEngine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &VoskServerEngine{url: url, dialer: websocket.DefaultDialer, logger: logger}
}

// Name implements Engine.
func (e *VoskServerEngine) Name() string { return "vosk-server" }

// LoadModel verifies the server accepts connections.
func (e *VoskServerEngine) LoadModel(ctx context.Context, modelPath string) (Model, error) {
	conn, _, err := e.dialer.DialContext(ctx, e.url, nil)
	if err != nil {
		return nil, &ModelLoadError{Path: e.url, Reason: "vosk server unreachable", Err: err}
	}
	_ = conn.Close()
	e.logger.Debug("vosk server reachable",
		logging.String("server_url", e.url),
		logging.String("model_dir", modelPath),
	)
	return &voskServerModel{engine: e}, nil
}

type voskServerModel struct {
	engine *VoskServerEngine
}

func (m *voskServerModel) Close() error { return nil }

type voskConfigMessage struct {
	Config voskConfig `json:"config"`
}

type voskConfig struct {
	SampleRate int `json:"sample_rate"`
}

func (m *voskServerModel) NewSession(ctx context.Context, sampleRate int) (Session, error) {
	conn, _, err := m.engine.dialer.DialContext(ctx, m.engine.url, nil)
	if err != nil {
		return nil, &RecognitionError{Op: "connect", Err: err}
	}
	// The server does not acknowledge the config message.
	if err := conn.WriteJSON(voskConfigMessage{Config: voskConfig{SampleRate: sampleRate}}); err != nil {
		_ = conn.Close()
		return nil, &RecognitionError{Op: "configure", Err: err}
	}
	return &voskServerSession{conn: conn}, nil
}

type voskServerSession struct {
	conn      *websocket.Conn
	failed    error
	finalized bool
	closeOnce sync.Once
}

func (s *voskServerSession) Feed(frame []byte) (Segment, bool, error) {
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
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
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

func (s *voskServerSession) Finalize() (Segment, error) {
	if s.failed != nil {
		return Segment{}, s.failed
	}
	if s.finalized {
		return Segment{}, s.fail("finalize", errors.New("session already finalized"))
	}
	s.finalized = true
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return Segment{}, s.fail("finalize", err)
	}
	result, err := s.readResult()
	if err != nil {
		return Segment{}, err
	}
	return Segment{Text: result.Text}, nil
}

func (s *voskServerSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
	})
	return err
}

func (s *voskServerSession) readResult() (Result, error) {
	kind, data, err := s.conn.ReadMessage()
	if err != nil {
		return Result{}, s.fail("read result", err)
	}
	if kind != websocket.TextMessage {
		return Result{}, s.fail("read result", fmt.Errorf("unexpected websocket message type %d", kind))
	}
	result, err := ParseResult(data)
	if err != nil {
		s.failed = err
		return Result{}, err
	}
	return result, nil
}

func (s *voskServerSession) fail(op string, err error) error {
	s.failed = &RecognitionError{Op: op, Err: err}
	return s.failed
}
