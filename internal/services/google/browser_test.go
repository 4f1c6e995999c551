package google

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

func newLoadedProvider(t *testing.T, opts ...BrowserOption) *BrowserProvider {
	t.Helper()
	provider := NewBrowserProvider(
		"https://accounts.example.com/auth",
		"https://accounts.example.com/revoke",
		"127.0.0.1:0",
		opts...,
	)
	if err := provider.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestLoadIdempotent(t *testing.T) {
	provider := newLoadedProvider(t)
	addr := provider.RedirectURL()
	if err := provider.Load(context.Background()); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if provider.RedirectURL() != addr {
		t.Fatal("second load replaced the listener")
	}
	if !provider.Loaded() || !provider.Available() {
		t.Fatal("provider should report ready")
	}
}

func TestInitTokenClientRequiresClientID(t *testing.T) {
	provider := newLoadedProvider(t)
	if _, err := provider.InitTokenClient(TokenClientConfig{}); err == nil {
		t.Fatal("expected error without client id")
	}
}

func TestRequestAccessTokenBuildsConsentURL(t *testing.T) {
	var opened string
	provider := newLoadedProvider(t, WithBrowserOpener(func(u string) error {
		opened = u
		return nil
	}))

	client, err := provider.InitTokenClient(TokenClientConfig{
		ClientID: "client-9",
		Scope:    "upload-scope",
	})
	if err != nil {
		t.Fatalf("init client: %v", err)
	}

	if err := client.RequestAccessToken(context.Background(), RequestOptions{Prompt: "consent", State: "nonce-1"}); err != nil {
		t.Fatalf("request: %v", err)
	}

	parsed, err := url.Parse(opened)
	if err != nil {
		t.Fatalf("parse consent url: %v", err)
	}
	query := parsed.Query()
	if query.Get("client_id") != "client-9" {
		t.Fatalf("client_id: %q", query.Get("client_id"))
	}
	if query.Get("response_type") != "token" {
		t.Fatalf("response_type: %q", query.Get("response_type"))
	}
	if query.Get("prompt") != "consent" {
		t.Fatalf("prompt: %q", query.Get("prompt"))
	}
	if query.Get("state") != "nonce-1" {
		t.Fatalf("state: %q", query.Get("state"))
	}
	if !strings.HasPrefix(query.Get("redirect_uri"), "http://127.0.0.1:") {
		t.Fatalf("redirect_uri: %q", query.Get("redirect_uri"))
	}
}

func TestBrowserOpenFailureFiresErrorCallback(t *testing.T) {
	var mu sync.Mutex
	var received *ErrorResponse
	provider := newLoadedProvider(t, WithBrowserOpener(func(string) error {
		return io.ErrUnexpectedEOF
	}))

	client, err := provider.InitTokenClient(TokenClientConfig{
		ClientID: "client-9",
		ErrorCallback: func(response ErrorResponse) {
			mu.Lock()
			received = &response
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("init client: %v", err)
	}

	if err := client.RequestAccessToken(context.Background(), RequestOptions{State: "nonce-2"}); err != nil {
		t.Fatalf("request: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received == nil {
		t.Fatal("error callback not fired")
	}
	if received.Type != "popup_failed_to_open" || received.State != "nonce-2" {
		t.Fatalf("unexpected error response: %+v", received)
	}
}

func TestLoopbackRelayDeliversToken(t *testing.T) {
	tokens := make(chan TokenResponse, 1)
	provider := newLoadedProvider(t, WithBrowserOpener(func(string) error { return nil }))

	if _, err := provider.InitTokenClient(TokenClientConfig{
		ClientID: "client-9",
		Callback: func(response TokenResponse) { tokens <- response },
	}); err != nil {
		t.Fatalf("init client: %v", err)
	}

	// The relay page turns the fragment into this query.
	tokenURL := strings.Replace(provider.RedirectURL(), "/callback", "/token", 1) +
		"?access_token=tok-7&expires_in=3599&state=nonce-3"
	resp, err := http.Get(tokenURL)
	if err != nil {
		t.Fatalf("get token url: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token endpoint status %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "close this window") {
		t.Fatalf("completion page missing: %q", body)
	}

	select {
	case response := <-tokens:
		if response.AccessToken != "tok-7" || response.ExpiresIn != 3599 || response.State != "nonce-3" {
			t.Fatalf("unexpected response: %+v", response)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
}

func TestCallbackPageServesRelayScript(t *testing.T) {
	provider := newLoadedProvider(t)
	resp, err := http.Get(provider.RedirectURL())
	if err != nil {
		t.Fatalf("get callback page: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "location.hash") {
		t.Fatalf("relay script missing: %q", body)
	}
}

func TestRevoke(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotToken = r.PostFormValue("token")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := NewBrowserProvider("https://accounts.example.com/auth", server.URL, "127.0.0.1:0")
	if err := provider.Revoke(context.Background(), "tok-revoke"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if gotToken != "tok-revoke" {
		t.Fatalf("token not posted: %q", gotToken)
	}
}
