package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipcast/internal/config"
)

const userAgent = "Clipcast-Go/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyPublishCompleted(ctx context.Context, title, watchURL string) error
	NotifyConversionCompleted(ctx context.Context, outputPath string) error
	NotifyPipelineFailed(ctx context.Context, stage string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		publishEvents: cfg.Notifications.PublishEvents,
		errors:        cfg.Notifications.Errors,
		client:        &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	publishEvents bool
	errors        bool
	client        *http.Client
}

func (n *ntfyService) NotifyPublishCompleted(ctx context.Context, title, watchURL string) error {
	if !n.publishEvents {
		return nil
	}
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Published: %s", title)
	if watchURL = strings.TrimSpace(watchURL); watchURL != "" {
		message = fmt.Sprintf("%s\n%s", message, watchURL)
	}
	return n.send(ctx, payload{
		title:    "Clipcast - Published",
		message:  message,
		tags:     []string{"clipcast", "publish", "completed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyConversionCompleted(ctx context.Context, outputPath string) error {
	if !n.publishEvents {
		return nil
	}
	return n.send(ctx, payload{
		title:   "Clipcast - Converted",
		message: fmt.Sprintf("Conversion complete: %s", strings.TrimSpace(outputPath)),
		tags:    []string{"clipcast", "convert", "completed"},
	})
}

func (n *ntfyService) NotifyPipelineFailed(ctx context.Context, stage string, err error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Pipeline failed")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" during ")
		builder.WriteString(stage)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "Clipcast - Error",
		message:  builder.String(),
		tags:     []string{"clipcast", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Clipcast - Test",
		message:  "Notification system test",
		tags:     []string{"clipcast", "test"},
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

func (noopService) NotifyPublishCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyConversionCompleted(context.Context, string) error      { return nil }
func (noopService) NotifyPipelineFailed(context.Context, string, error) error    { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
