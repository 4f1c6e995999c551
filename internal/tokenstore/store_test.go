package tokenstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T, now time.Time) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "youtube_auth.json")
	return New(path, WithClock(func() time.Time { return now })), path
}

func TestRoundTrip(t *testing.T) {
	now := time.Now()
	store, _ := newTestStore(t, now)

	credential := Credential{AccessToken: "token-1", ExpiresAt: now.Add(time.Hour)}
	if err := store.Set(credential); err != nil {
		t.Fatalf("set: %v", err)
	}

	got := store.Get()
	if got == nil {
		t.Fatal("expected credential")
	}
	if got.AccessToken != "token-1" {
		t.Fatalf("access token: %q", got.AccessToken)
	}
	// Persisted at millisecond precision.
	if got.ExpiresAt.UnixMilli() != credential.ExpiresAt.UnixMilli() {
		t.Fatalf("expiry mismatch: %v vs %v", got.ExpiresAt, credential.ExpiresAt)
	}
}

func TestGetAbsent(t *testing.T) {
	store, _ := newTestStore(t, time.Now())
	if got := store.Get(); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestGetRemovesExpiring(t *testing.T) {
	now := time.Now()
	store, path := newTestStore(t, now)

	// Inside the five-minute buffer: treated as expired.
	if err := store.Set(Credential{AccessToken: "stale", ExpiresAt: now.Add(4 * time.Minute)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := store.Get(); got != nil {
		t.Fatalf("expected nil for expiring credential, got %+v", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expiring credential should be deleted")
	}
}

func TestGetRemovesMalformed(t *testing.T) {
	store, path := newTestStore(t, time.Now())
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := store.Get(); got != nil {
		t.Fatalf("expected nil for malformed state, got %+v", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("malformed state should be deleted")
	}
}

func TestRemoveIdempotent(t *testing.T) {
	store, _ := newTestStore(t, time.Now())
	if err := store.Remove(); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if err := store.Remove(); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestSetOverwrites(t *testing.T) {
	now := time.Now()
	store, _ := newTestStore(t, now)

	if err := store.Set(Credential{AccessToken: "old", ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("set old: %v", err)
	}
	if err := store.Set(Credential{AccessToken: "new", ExpiresAt: now.Add(2 * time.Hour)}); err != nil {
		t.Fatalf("set new: %v", err)
	}
	got := store.Get()
	if got == nil || got.AccessToken != "new" {
		t.Fatalf("expected overwrite, got %+v", got)
	}
}
