package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clipcast/internal/config"
	"clipcast/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPublishCompleted(context.Background(), "Clip", ""); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	message  string
	tags     string
	priority string
}

func captureServer(t *testing.T, sink *[]captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		*sink = append(*sink, captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	var sent []captured
	server := captureServer(t, &sent)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.PublishEvents = true
	cfg.Notifications.Errors = true
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyPublishCompleted(ctx, "Weekly recap", "https://www.youtube.com/watch?v=vid-1"); err != nil {
		t.Fatalf("NotifyPublishCompleted: %v", err)
	}
	if err := svc.NotifyConversionCompleted(ctx, "/out/clip.mp4"); err != nil {
		t.Fatalf("NotifyConversionCompleted: %v", err)
	}
	if err := svc.NotifyPipelineFailed(ctx, "uploading", errors.New("upload transfer error: Backend Error")); err != nil {
		t.Fatalf("NotifyPipelineFailed: %v", err)
	}

	if len(sent) != 3 {
		t.Fatalf("sent %d notifications", len(sent))
	}
	if sent[0].title != "Clipcast - Published" || sent[0].priority != "high" {
		t.Fatalf("publish notification = %+v", sent[0])
	}
	if !strings.Contains(sent[0].message, "watch?v=vid-1") {
		t.Fatalf("publish message = %q", sent[0].message)
	}
	if sent[1].tags != "clipcast,convert,completed" {
		t.Fatalf("convert tags = %q", sent[1].tags)
	}
	if !strings.Contains(sent[2].message, "during uploading") {
		t.Fatalf("error message = %q", sent[2].message)
	}
}

func TestNtfyServiceRespectsEventGates(t *testing.T) {
	var sent []captured
	server := captureServer(t, &sent)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.PublishEvents = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyPublishCompleted(ctx, "Clip", ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyPipelineFailed(ctx, "converting", errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	if len(sent) != 0 {
		t.Fatalf("gated events still sent: %d", len(sent))
	}

	// Test notifications bypass the gates.
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatal(err)
	}
	if len(sent) != 1 {
		t.Fatalf("test notification not sent")
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic blocked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from ntfy failure")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("unexpected error: %v", err)
	}
}
