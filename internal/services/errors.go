package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers classifying pipeline stage failures. Each stage wraps its
// own failures with exactly one of these so the state machine and CLI can
// branch on the class without parsing messages.
var (
	ErrInitialization = errors.New("initialization error")
	ErrAuth           = errors.New("authentication error")
	ErrConversion     = errors.New("conversion error")
	ErrUploadInit     = errors.New("upload initialization error")
	ErrUploadTransfer = errors.New("upload transfer error")
	ErrExpiredToken   = errors.New("expired token")
	ErrConfiguration  = errors.New("configuration error")
	ErrTimeout        = errors.New("timeout")
)

// AuthReason identifies why a sign-in attempt failed.
type AuthReason string

const (
	AuthReasonPopupClosed   AuthReason = "popup_closed"
	AuthReasonAccessDenied  AuthReason = "access_denied"
	AuthReasonProviderError AuthReason = "provider_error"
	AuthReasonTimeout       AuthReason = "timeout"
)

// AuthFailure tags an authentication error with its reason while remaining
// classifiable through ErrAuth.
type AuthFailure struct {
	Reason  AuthReason
	Message string
}

func (f *AuthFailure) Error() string {
	if strings.TrimSpace(f.Message) != "" {
		return f.Message
	}
	return string(f.Reason)
}

func (f *AuthFailure) Unwrap() error { return ErrAuth }

// NewAuthFailure builds an AuthFailure with a user-facing message.
func NewAuthFailure(reason AuthReason, message string) *AuthFailure {
	return &AuthFailure{Reason: reason, Message: message}
}

// AuthReasonOf extracts the sign-in failure reason if err carries one.
func AuthReasonOf(err error) (AuthReason, bool) {
	var failure *AuthFailure
	if errors.As(err, &failure) {
		return failure.Reason, true
	}
	return "", false
}

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrConfiguration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserMessage reduces a stage error to the single human-readable message the
// pipeline surfaces. Sentinel prefixes are stripped; the stage detail stays.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{
		ErrInitialization, ErrAuth, ErrConversion, ErrUploadInit,
		ErrUploadTransfer, ErrExpiredToken, ErrConfiguration, ErrTimeout,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
