package services_test

import (
	"errors"
	"strings"
	"testing"

	"clipcast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConversion, "transcode", "exec", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConversion) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcode", "exec", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestUserMessageStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrUploadInit, "upload", "init", "no session URL received", nil)
	msg := services.UserMessage(err)
	if strings.Contains(msg, services.ErrUploadInit.Error()) {
		t.Fatalf("marker prefix not stripped: %q", msg)
	}
	if !strings.Contains(msg, "no session URL received") {
		t.Fatalf("detail missing from %q", msg)
	}

	if got := services.UserMessage(nil); got != "" {
		t.Fatalf("expected empty message for nil error, got %q", got)
	}
}

func TestAuthFailureReason(t *testing.T) {
	failure := services.NewAuthFailure(services.AuthReasonPopupClosed, "Sign-in was cancelled.")
	if !errors.Is(failure, services.ErrAuth) {
		t.Fatal("auth failure should classify as ErrAuth")
	}

	wrapped := services.Wrap(services.ErrAuth, "auth", "sign-in", "", failure)
	reason, ok := services.AuthReasonOf(wrapped)
	if !ok {
		t.Fatal("expected reason to survive wrapping")
	}
	if reason != services.AuthReasonPopupClosed {
		t.Fatalf("unexpected reason %q", reason)
	}
}
