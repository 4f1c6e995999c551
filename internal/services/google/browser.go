package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// HTTPDoer describes the HTTP client used for provider API calls.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BrowserProvider implements Provider by sending the user's browser through
// the provider's consent screen and catching the redirect on a loopback
// listener. The implicit-grant response arrives in the URL fragment, which
// never reaches the server, so the callback page relays it back as a query.
type BrowserProvider struct {
	authEndpoint   string
	revokeEndpoint string
	bind           string
	httpClient     HTTPDoer
	openBrowser    func(url string) error

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	client   *browserTokenClient
}

// BrowserOption customises BrowserProvider construction.
type BrowserOption func(*BrowserProvider)

// WithHTTPClient overrides the HTTP client used for revocation calls.
func WithHTTPClient(client HTTPDoer) BrowserOption {
	return func(p *BrowserProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithBrowserOpener overrides how the consent URL is opened (used in tests).
func WithBrowserOpener(open func(url string) error) BrowserOption {
	return func(p *BrowserProvider) {
		if open != nil {
			p.openBrowser = open
		}
	}
}

// NewBrowserProvider builds the production provider.
func NewBrowserProvider(authEndpoint, revokeEndpoint, bind string, opts ...BrowserOption) *BrowserProvider {
	provider := &BrowserProvider{
		authEndpoint:   strings.TrimSpace(authEndpoint),
		revokeEndpoint: strings.TrimSpace(revokeEndpoint),
		bind:           strings.TrimSpace(bind),
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		openBrowser:    openSystemBrowser,
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// Load starts the loopback listener. Idempotent.
func (p *BrowserProvider) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener != nil {
		return nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", p.bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", p.bind, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", p.handleCallback)
	mux.HandleFunc("/token", p.handleToken)

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.Serve(listener)
	}()

	p.listener = listener
	p.server = server
	return nil
}

// Close shuts the loopback listener down.
func (p *BrowserProvider) Close() error {
	p.mu.Lock()
	server := p.server
	p.server = nil
	p.listener = nil
	p.mu.Unlock()

	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// Loaded reports whether the loopback listener is active.
func (p *BrowserProvider) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listener != nil
}

// Available reports whether a token client can be constructed.
func (p *BrowserProvider) Available() bool {
	return p.Loaded()
}

// RedirectURL returns the loopback URL the consent flow redirects to.
func (p *BrowserProvider) RedirectURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return ""
	}
	return "http://" + p.listener.Addr().String() + "/callback"
}

// InitTokenClient constructs the token client bound to one client ID and
// scope. The callbacks receive every response the loopback catches.
func (p *BrowserProvider) InitTokenClient(cfg TokenClientConfig) (TokenClient, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("client ID is required")
	}
	client := &browserTokenClient{provider: p, cfg: cfg}
	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	return client, nil
}

// Revoke invalidates the access token with the provider.
func (p *BrowserProvider) Revoke(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("revoke returned %d", resp.StatusCode)
	}
	return nil
}

// handleCallback serves the relay page. The provider puts the token in the
// URL fragment; this page forwards it to /token as a query string.
func (p *BrowserProvider) handleCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, callbackRelayPage)
}

// handleToken receives the relayed response and dispatches it to the token
// client callbacks.
func (p *BrowserProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()

	query := r.URL.Query()
	if client != nil {
		client.dispatch(query)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, completionPage)
}

// browserTokenClient launches the consent URL and forwards responses.
type browserTokenClient struct {
	provider *BrowserProvider
	cfg      TokenClientConfig
}

// RequestAccessToken opens the browser at the provider's consent screen.
func (c *browserTokenClient) RequestAccessToken(_ context.Context, opts RequestOptions) error {
	redirect := c.provider.RedirectURL()
	if redirect == "" {
		return errors.New("provider not loaded")
	}

	params := url.Values{
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {redirect},
		"response_type": {"token"},
		"scope":         {c.cfg.Scope},
		"state":         {opts.State},
	}
	if opts.Prompt != "" {
		params.Set("prompt", opts.Prompt)
	}
	consentURL := c.provider.authEndpoint + "?" + params.Encode()

	if err := c.provider.openBrowser(consentURL); err != nil {
		if c.cfg.ErrorCallback != nil {
			c.cfg.ErrorCallback(ErrorResponse{
				Type:    errorTypePopupFailedToOpen,
				Message: "Failed to open the sign-in page: " + err.Error(),
				State:   opts.State,
			})
		}
		return nil
	}
	return nil
}

// dispatch converts a relayed query into the appropriate callback.
func (c *browserTokenClient) dispatch(query url.Values) {
	state := query.Get("state")

	if errCode := query.Get("error"); errCode != "" {
		if c.cfg.Callback != nil {
			c.cfg.Callback(TokenResponse{
				Error:            errCode,
				ErrorDescription: query.Get("error_description"),
				State:            state,
			})
		}
		return
	}

	expiresIn, _ := strconv.Atoi(query.Get("expires_in"))
	if c.cfg.Callback != nil {
		c.cfg.Callback(TokenResponse{
			AccessToken: query.Get("access_token"),
			ExpiresIn:   expiresIn,
			Scope:       query.Get("scope"),
			State:       state,
		})
	}
}

func openSystemBrowser(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	return cmd.Start()
}

const callbackRelayPage = `<!DOCTYPE html>
<html>
<head><title>Signing in…</title></head>
<body>
<p>Completing sign-in…</p>
<script>
  var hash = window.location.hash.replace(/^#/, "");
  window.location.replace("/token?" + hash);
</script>
</body>
</html>
`

const completionPage = `<!DOCTYPE html>
<html>
<head><title>Sign-in complete</title></head>
<body><p>You can close this window and return to clipcast.</p></body>
</html>
`
