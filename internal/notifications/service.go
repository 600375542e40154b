package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidscribe/internal/config"
)

const userAgent = "vidscribe/0.1"

// BatchResult summarizes a finished batch for notification purposes.
type BatchResult struct {
	Completed int
	Failed    int
	Cancelled int
	Pending   int
	Duration  time.Duration
}

// Service defines the notification surface exposed to the batch runner.
type Service interface {
	NotifyBatchStarted(ctx context.Context, jobs int, outputDir string) error
	NotifyBatchCompleted(ctx context.Context, result BatchResult) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, jobs int, outputDir string) error {
	message := fmt.Sprintf("Transcribing %d video(s)", jobs)
	if outputDir = strings.TrimSpace(outputDir); outputDir != "" {
		message += " into " + outputDir
	}
	return n.send(ctx, payload{
		title:   "vidscribe - Batch Started",
		message: message,
		tags:    []string{"vidscribe", "batch", "started"},
	})
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, result BatchResult) error {
	duration := result.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	data := payload{
		title: "vidscribe - Batch Complete",
		tags:  []string{"vidscribe", "batch", "completed"},
	}
	switch {
	case result.Failed > 0:
		data.title = "vidscribe - Batch Complete (with errors)"
		data.message = fmt.Sprintf("%d transcribed, %d failed in %s", result.Completed, result.Failed, duration)
		data.priority = "high"
	default:
		data.message = fmt.Sprintf("%d transcribed in %s", result.Completed, duration)
	}
	if result.Cancelled > 0 || result.Pending > 0 {
		data.title = "vidscribe - Batch Cancelled"
		data.message += fmt.Sprintf("; %d cancelled, %d still pending", result.Cancelled, result.Pending)
		data.tags = []string{"vidscribe", "batch", "cancelled"}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "vidscribe - Error",
		message:  builder.String(),
		tags:     []string{"vidscribe", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "vidscribe - Test",
		message:  "Notification system test",
		tags:     []string{"vidscribe", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, int, string) error   { return nil }
func (noopService) NotifyBatchCompleted(context.Context, BatchResult) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
