package google

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clipcast/internal/config"
	"clipcast/internal/services"
	"clipcast/internal/tokenstore"
)

// fakeProvider records token client configuration and lets tests fire the
// callbacks the way the real provider would.
type fakeProvider struct {
	mu          sync.Mutex
	loadErr     error
	loaded      bool
	available   bool
	initErr     error
	cfg         TokenClientConfig
	lastOptions RequestOptions
	requested   int
	revoked     []string
	revokeErr   error
}

func (p *fakeProvider) Load(context.Context) error {
	if p.loadErr != nil {
		return p.loadErr
	}
	p.mu.Lock()
	p.loaded = true
	p.available = true
	p.mu.Unlock()
	return nil
}

func (p *fakeProvider) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

func (p *fakeProvider) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

func (p *fakeProvider) InitTokenClient(cfg TokenClientConfig) (TokenClient, error) {
	if p.initErr != nil {
		return nil, p.initErr
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	return fakeTokenClient{provider: p}, nil
}

func (p *fakeProvider) Revoke(_ context.Context, token string) error {
	p.mu.Lock()
	p.revoked = append(p.revoked, token)
	p.mu.Unlock()
	return p.revokeErr
}

type fakeTokenClient struct {
	provider *fakeProvider
}

func (c fakeTokenClient) RequestAccessToken(_ context.Context, opts RequestOptions) error {
	c.provider.mu.Lock()
	c.provider.lastOptions = opts
	c.provider.requested++
	c.provider.mu.Unlock()
	return nil
}

func (p *fakeProvider) options() RequestOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOptions
}

func (p *fakeProvider) callbacks() TokenClientConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

func newTestSession(t *testing.T) (*Session, *fakeProvider, *tokenstore.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.Google.ClientID = "client-123"
	cfg.Google.LoadTimeout = 1
	cfg.Google.ReadyTimeout = 1
	cfg.Google.SignInTimeout = 2

	tokens := tokenstore.New(filepath.Join(t.TempDir(), "auth.json"))
	provider := &fakeProvider{}
	session := NewSession(&cfg, provider, tokens, nil)
	return session, provider, tokens
}

func TestInitializeIdempotent(t *testing.T) {
	session, _, _ := newTestSession(t)
	if err := session.Initialize(context.Background()); err != nil {
		t.Fatalf("first initialize: %v", err)
	}
	if err := session.Initialize(context.Background()); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
}

func TestInitializeRequiresClientID(t *testing.T) {
	session, _, _ := newTestSession(t)
	session.cfg.Google.ClientID = ""

	err := session.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected error without client id")
	}
	if !errors.Is(err, services.ErrInitialization) {
		t.Fatalf("expected ErrInitialization, got %v", err)
	}
}

func TestInitializeProviderLoadFailure(t *testing.T) {
	session, provider, _ := newTestSession(t)
	provider.loadErr = errors.New("script unavailable")

	err := session.Initialize(context.Background())
	if !errors.Is(err, services.ErrInitialization) {
		t.Fatalf("expected ErrInitialization, got %v", err)
	}
}

func TestSignInSuccessPersistsBeforeResolve(t *testing.T) {
	session, provider, tokens := newTestSession(t)

	done := make(chan struct{})
	var credential *tokenstore.Credential
	var signInErr error
	go func() {
		defer close(done)
		credential, signInErr = session.SignIn(context.Background())
	}()

	waitForRequest(t, provider)
	provider.callbacks().Callback(TokenResponse{
		AccessToken: "token-abc",
		ExpiresIn:   3600,
		State:       provider.options().State,
	})
	<-done

	if signInErr != nil {
		t.Fatalf("sign-in failed: %v", signInErr)
	}
	if credential == nil || credential.AccessToken != "token-abc" {
		t.Fatalf("unexpected credential: %+v", credential)
	}
	stored := tokens.Get()
	if stored == nil || stored.AccessToken != "token-abc" {
		t.Fatalf("credential not persisted: %+v", stored)
	}
	if remaining := time.Until(stored.ExpiresAt); remaining < 50*time.Minute {
		t.Fatalf("expiry not mapped from expires_in: %v", remaining)
	}
}

func TestSignInPopupClosed(t *testing.T) {
	session, provider, _ := newTestSession(t)

	done := make(chan struct{})
	var signInErr error
	go func() {
		defer close(done)
		_, signInErr = session.SignIn(context.Background())
	}()

	waitForRequest(t, provider)
	provider.callbacks().ErrorCallback(ErrorResponse{
		Type:  "popup_closed",
		State: provider.options().State,
	})
	<-done

	if signInErr == nil {
		t.Fatal("expected error")
	}
	reason, ok := services.AuthReasonOf(signInErr)
	if !ok || reason != services.AuthReasonPopupClosed {
		t.Fatalf("expected popup-closed reason, got %v", signInErr)
	}
}

func TestSignInAccessDenied(t *testing.T) {
	session, provider, _ := newTestSession(t)

	done := make(chan struct{})
	var signInErr error
	go func() {
		defer close(done)
		_, signInErr = session.SignIn(context.Background())
	}()

	waitForRequest(t, provider)
	provider.callbacks().Callback(TokenResponse{
		Error: "access_denied",
		State: provider.options().State,
	})
	<-done

	reason, ok := services.AuthReasonOf(signInErr)
	if !ok || reason != services.AuthReasonAccessDenied {
		t.Fatalf("expected access-denied reason, got %v", signInErr)
	}
}

func TestSignInTimeout(t *testing.T) {
	session, provider, _ := newTestSession(t)
	session.cfg.Google.SignInTimeout = 1

	start := time.Now()
	_, err := session.SignIn(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	reason, ok := services.AuthReasonOf(err)
	if !ok || reason != services.AuthReasonTimeout {
		t.Fatalf("expected timeout reason, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout took far longer than configured")
	}
	_ = provider
}

func TestSignInRaceResolvesExactlyOnce(t *testing.T) {
	session, provider, _ := newTestSession(t)

	done := make(chan struct{})
	var signInErr error
	go func() {
		defer close(done)
		_, signInErr = session.SignIn(context.Background())
	}()

	waitForRequest(t, provider)
	state := provider.options().State
	cfg := provider.callbacks()
	cfg.Callback(TokenResponse{AccessToken: "winner", ExpiresIn: 3600, State: state})
	// Late loser callbacks must be no-ops.
	cfg.ErrorCallback(ErrorResponse{Type: "popup_closed", State: state})
	cfg.Callback(TokenResponse{Error: "access_denied", State: state})
	<-done

	if signInErr != nil {
		t.Fatalf("winner should have resolved the request: %v", signInErr)
	}
}

func TestSignInStaleStateIgnored(t *testing.T) {
	session, provider, _ := newTestSession(t)

	done := make(chan struct{})
	var signInErr error
	go func() {
		defer close(done)
		_, signInErr = session.SignIn(context.Background())
	}()

	waitForRequest(t, provider)
	cfg := provider.callbacks()
	// Response carrying a foreign state nonce must not settle the request.
	cfg.Callback(TokenResponse{AccessToken: "forged", ExpiresIn: 3600, State: "someone-else"})
	cfg.Callback(TokenResponse{AccessToken: "genuine", ExpiresIn: 3600, State: provider.options().State})
	<-done

	if signInErr != nil {
		t.Fatalf("genuine response should win: %v", signInErr)
	}
}

func TestSignOutClearsEvenWhenRevokeFails(t *testing.T) {
	session, provider, tokens := newTestSession(t)
	provider.revokeErr = errors.New("revoke endpoint down")

	if err := tokens.Set(tokenstore.Credential{
		AccessToken: "token-x",
		ExpiresAt:   time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	if err := session.SignOut(context.Background()); err != nil {
		t.Fatalf("sign-out: %v", err)
	}
	if tokens.Get() != nil {
		t.Fatal("credential should be cleared despite revoke failure")
	}
	if len(provider.revoked) != 1 || provider.revoked[0] != "token-x" {
		t.Fatalf("revoke not attempted: %v", provider.revoked)
	}
}

func TestAccessTokenPassThrough(t *testing.T) {
	session, _, tokens := newTestSession(t)
	if token := session.AccessToken(); token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
	if session.Authenticated() {
		t.Fatal("should not report authenticated")
	}

	if err := tokens.Set(tokenstore.Credential{
		AccessToken: "token-y",
		ExpiresAt:   time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	if token := session.AccessToken(); token != "token-y" {
		t.Fatalf("unexpected token %q", token)
	}
	if !session.Authenticated() {
		t.Fatal("should report authenticated")
	}
}

func waitForRequest(t *testing.T, provider *fakeProvider) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		provider.mu.Lock()
		requested := provider.requested
		provider.mu.Unlock()
		if requested > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("sign-in never requested an access token")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
