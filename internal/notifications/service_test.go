package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vidscribe/internal/config"
	"vidscribe/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyBatchStarted(context.Background(), 3, "/out"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("nil config should yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "batch started",
			send: func(s notifications.Service) error {
				return s.NotifyBatchStarted(context.Background(), 4, "/srv/transcripts")
			},
			expectTitle:   "vidscribe - Batch Started",
			expectMessage: "Transcribing 4 video(s) into /srv/transcripts",
			expectTags:    "vidscribe,batch,started",
		},
		{
			name: "batch completed",
			send: func(s notifications.Service) error {
				return s.NotifyBatchCompleted(context.Background(), notifications.BatchResult{Completed: 4, Duration: 90*time.Second + 400*time.Millisecond})
			},
			expectTitle:   "vidscribe - Batch Complete",
			expectMessage: "4 transcribed in 1m30s",
			expectTags:    "vidscribe,batch,completed",
		},
		{
			name: "batch completed with errors",
			send: func(s notifications.Service) error {
				return s.NotifyBatchCompleted(context.Background(), notifications.BatchResult{Completed: 2, Failed: 1, Duration: time.Minute})
			},
			expectTitle:    "vidscribe - Batch Complete (with errors)",
			expectMessage:  "2 transcribed, 1 failed in 1m0s",
			expectTags:     "vidscribe,batch,completed",
			expectPriority: "high",
		},
		{
			name: "batch cancelled",
			send: func(s notifications.Service) error {
				return s.NotifyBatchCompleted(context.Background(), notifications.BatchResult{Completed: 1, Cancelled: 1, Pending: 2, Duration: 5 * time.Second})
			},
			expectTitle:   "vidscribe - Batch Cancelled",
			expectMessage: "1 transcribed in 5s; 1 cancelled, 2 still pending",
			expectTags:    "vidscribe,batch,cancelled",
		},
		{
			name: "error",
			send: func(s notifications.Service) error {
				return s.NotifyError(context.Background(), errors.New("model directory does not exist"), "model load")
			},
			expectTitle:    "vidscribe - Error",
			expectMessage:  "Error during model load: model directory does not exist",
			expectTags:     "vidscribe,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic reserved", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic reserved") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}
