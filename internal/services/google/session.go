package google

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipcast/internal/await"
	"clipcast/internal/config"
	"clipcast/internal/logging"
	"clipcast/internal/services"
	"clipcast/internal/tokenstore"
)

// Session drives the identity-provider token flow and persists the
// resulting credential.
type Session struct {
	cfg      *config.Config
	provider Provider
	tokens   *tokenstore.Store
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	initialized bool
	client      TokenClient
	generation  uint64
	pending     *signInRequest
}

// SessionOption customises Session construction.
type SessionOption func(*Session)

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession builds a Session over the given provider and token store.
func NewSession(cfg *config.Config, provider Provider, tokens *tokenstore.Store, logger *slog.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = logging.NewNop()
	}
	session := &Session{
		cfg:      cfg,
		provider: provider,
		tokens:   tokens,
		logger:   logger.With(logging.String(logging.FieldComponent, "auth")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(session)
	}
	return session
}

// signInRequest owns the resolve path for one sign-in attempt. Whichever of
// success callback, error callback, or timeout fires first settles it; the
// rest become no-ops.
type signInRequest struct {
	generation uint64
	state      string
	once       sync.Once
	done       chan signInResult
}

type signInResult struct {
	credential tokenstore.Credential
	err        error
}

func (r *signInRequest) settle(result signInResult) {
	r.once.Do(func() {
		r.done <- result
	})
}

// Initialize loads the provider client and constructs the token client.
// Idempotent; safe to call when already initialized.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked(ctx)
}

func (s *Session) initializeLocked(ctx context.Context) error {
	if s.initialized {
		return nil
	}

	if err := s.cfg.RequireClientID(); err != nil {
		return services.Wrap(services.ErrInitialization, "auth", "initialize", "", err)
	}

	if err := s.provider.Load(ctx); err != nil {
		return services.Wrap(services.ErrInitialization, "auth", "load identity services", "", err)
	}

	loadDeadline := time.Duration(s.cfg.Google.LoadTimeout) * time.Second
	if err := await.Poll(ctx, await.Options{Deadline: loadDeadline, What: "identity services"}, s.provider.Loaded); err != nil {
		return services.Wrap(services.ErrInitialization, "auth", "load identity services",
			"Identity services failed to load", err)
	}

	readyDeadline := time.Duration(s.cfg.Google.ReadyTimeout) * time.Second
	if err := await.Poll(ctx, await.Options{Deadline: readyDeadline, What: "token client"}, s.provider.Available); err != nil {
		return services.Wrap(services.ErrInitialization, "auth", "await token client",
			"Identity services not available", err)
	}

	client, err := s.provider.InitTokenClient(TokenClientConfig{
		ClientID:      s.cfg.Google.ClientID,
		Scope:         s.cfg.Google.Scope,
		Callback:      s.handleTokenResponse,
		ErrorCallback: s.handleErrorResponse,
	})
	if err != nil {
		return services.Wrap(services.ErrInitialization, "auth", "init token client", "", err)
	}

	s.client = client
	s.initialized = true
	s.logger.Info("identity services initialized")
	return nil
}

// SignIn runs the consent flow and returns the persisted credential. At most
// one sign-in is pending at a time; a newer call supersedes an older pending
// one, which is settled with a provider error.
func (s *Session) SignIn(ctx context.Context) (*tokenstore.Credential, error) {
	s.mu.Lock()
	if err := s.initializeLocked(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	request := &signInRequest{
		generation: s.generation + 1,
		state:      uuid.NewString(),
		done:       make(chan signInResult, 1),
	}
	s.generation = request.generation

	if superseded := s.pending; superseded != nil {
		superseded.settle(signInResult{err: services.NewAuthFailure(
			services.AuthReasonProviderError, "Superseded by a newer sign-in attempt.")})
	}
	s.pending = request
	client := s.client
	s.mu.Unlock()

	s.logger.Info("requesting access token")
	if err := client.RequestAccessToken(ctx, RequestOptions{Prompt: "consent", State: request.state}); err != nil {
		request.settle(signInResult{err: services.NewAuthFailure(
			services.AuthReasonProviderError, err.Error())})
	}

	timeout := time.Duration(s.cfg.Google.SignInTimeout) * time.Second
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result signInResult
	select {
	case result = <-request.done:
	case <-timer.C:
		request.settle(signInResult{err: services.NewAuthFailure(
			services.AuthReasonTimeout, "Sign-in timed out. Please allow popups and try again.")})
		result = <-request.done
	case <-ctx.Done():
		request.settle(signInResult{err: ctx.Err()})
		result = <-request.done
	}

	s.mu.Lock()
	if s.pending == request {
		s.pending = nil
	}
	s.mu.Unlock()

	if result.err != nil {
		s.logger.Warn("sign-in failed", logging.Error(result.err))
		return nil, services.Wrap(services.ErrAuth, "auth", "sign-in", "", result.err)
	}

	credential := result.credential
	s.logger.Info("sign-in complete")
	return &credential, nil
}

// handleTokenResponse is the provider success callback. The credential is
// persisted before the waiting sign-in call is resolved.
func (s *Session) handleTokenResponse(response TokenResponse) {
	request := s.matchPending(response.State)
	if request == nil {
		s.logger.Debug("dropping token response for stale sign-in request")
		return
	}

	if response.Error != "" {
		request.settle(signInResult{err: mapResponseError(response)})
		return
	}

	credential := tokenstore.Credential{
		AccessToken: response.AccessToken,
		ExpiresAt:   s.now().Add(time.Duration(response.ExpiresIn) * time.Second),
	}
	if err := s.tokens.Set(credential); err != nil {
		request.settle(signInResult{err: services.NewAuthFailure(
			services.AuthReasonProviderError, "Failed to persist credential: "+err.Error())})
		return
	}
	request.settle(signInResult{credential: credential})
}

// handleErrorResponse is the provider error callback.
func (s *Session) handleErrorResponse(response ErrorResponse) {
	request := s.matchPending(response.State)
	if request == nil {
		s.logger.Debug("dropping error response for stale sign-in request")
		return
	}
	request.settle(signInResult{err: mapErrorResponse(response)})
}

// matchPending returns the pending request when the response's state nonce
// matches it. Responses for superseded or unknown requests return nil. An
// empty state matches the current pending request for providers that cannot
// echo state.
func (s *Session) matchPending(state string) *signInRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	if state != "" && state != s.pending.state {
		return nil
	}
	return s.pending
}

func mapResponseError(response TokenResponse) error {
	switch response.Error {
	case responseErrorPopupClosed:
		return services.NewAuthFailure(services.AuthReasonPopupClosed, "Sign-in was cancelled.")
	case responseErrorAccessDenied:
		return services.NewAuthFailure(services.AuthReasonAccessDenied,
			"Access was denied. Please grant permission to upload videos.")
	default:
		message := response.ErrorDescription
		if message == "" {
			message = response.Error
		}
		return services.NewAuthFailure(services.AuthReasonProviderError, message)
	}
}

func mapErrorResponse(response ErrorResponse) error {
	switch response.Type {
	case errorTypePopupClosed:
		return services.NewAuthFailure(services.AuthReasonPopupClosed,
			"Sign-in popup was closed. Please try again and complete the authorization.")
	default:
		message := response.Message
		if message == "" {
			message = "Sign-in failed"
		}
		return services.NewAuthFailure(services.AuthReasonProviderError, message)
	}
}

// SignOut revokes the current credential with the provider on a best-effort
// basis, then clears the token store regardless of the revoke outcome.
func (s *Session) SignOut(ctx context.Context) error {
	if credential := s.tokens.Get(); credential != nil {
		if err := s.provider.Revoke(ctx, credential.AccessToken); err != nil {
			s.logger.Warn("token revoke failed", logging.Error(err))
		}
	}
	return s.tokens.Remove()
}

// AccessToken returns the persisted access token, or the empty string when
// no valid credential exists.
func (s *Session) AccessToken() string {
	if credential := s.tokens.Get(); credential != nil {
		return credential.AccessToken
	}
	return ""
}

// Authenticated reports whether a valid credential is available.
func (s *Session) Authenticated() bool {
	return s.tokens.Get() != nil
}
