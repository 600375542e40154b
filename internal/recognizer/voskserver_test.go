package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

type fakeVoskServer struct {
	mu         sync.Mutex
	sampleRate int
	frames     int
}

func (s *fakeVoskServer) handler(t *testing.T) http.Handler {
	upgrader := websocket.Upgrader{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.TextMessage {
				var msg map[string]json.RawMessage
				if err := json.Unmarshal(data, &msg); err != nil {
					t.Errorf("bad text message %q", data)
					return
				}
				if raw, ok := msg["config"]; ok {
					var cfg voskConfig
					_ = json.Unmarshal(raw, &cfg)
					s.mu.Lock()
					s.sampleRate = cfg.SampleRate
					s.mu.Unlock()
					continue
				}
				if _, ok := msg["eof"]; ok {
					_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"text": "world"}`))
					return
				}
			}
			s.mu.Lock()
			s.frames++
			frames := s.frames
			s.mu.Unlock()
			reply := `{"partial": ""}`
			if frames == 1 {
				reply = `{"text": "hello"}`
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte(reply))
		}
	})
}

func TestVoskServerSession(t *testing.T) {
	fake := &fakeVoskServer{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	session, err := Open(context.Background(), NewVoskServerEngine(url, nil), "/ignored", 16000)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	seg, ok, err := session.Feed(make([]byte, 8000))
	if err != nil || !ok || seg.Text != "hello" {
		t.Fatalf("Feed 1: %+v %v %v", seg, ok, err)
	}
	if _, ok, err := session.Feed(make([]byte, 8000)); err != nil || ok {
		t.Fatalf("Feed 2: ok=%v err=%v", ok, err)
	}
	final, err := session.Finalize()
	if err != nil || final.Text != "world" {
		t.Fatalf("Finalize: %+v %v", final, err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.sampleRate != 16000 {
		t.Fatalf("server saw sample rate %d", fake.sampleRate)
	}
}

func TestVoskServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	_, err := NewVoskServerEngine(url, nil).LoadModel(context.Background(), "")
	var loadErr *ModelLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected ModelLoadError, got %v", err)
	}
}
