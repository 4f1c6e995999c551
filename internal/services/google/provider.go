package google

import "context"

// TokenResponse is delivered by the provider's success callback.
type TokenResponse struct {
	AccessToken string
	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int
	Scope     string
	// State echoes the request's state nonce so responses can be matched to
	// the sign-in attempt that triggered them.
	State string
	// Error and ErrorDescription are set when the provider reports a
	// failure through the success callback channel.
	Error            string
	ErrorDescription string
}

// ErrorResponse is delivered by the provider's error callback when the
// consent flow fails before a token response exists.
type ErrorResponse struct {
	// Type classifies the failure, e.g. "popup_closed".
	Type    string
	Message string
	State   string
}

// TokenClientConfig binds a token client to one upload scope and one client
// identifier. Both callbacks may be invoked from arbitrary goroutines.
type TokenClientConfig struct {
	ClientID      string
	Scope         string
	Callback      func(TokenResponse)
	ErrorCallback func(ErrorResponse)
}

// RequestOptions customises one access-token request.
type RequestOptions struct {
	// Prompt forces the consent screen when set to "consent".
	Prompt string
	// State is the per-request nonce echoed back by the provider.
	State string
}

// TokenClient requests access tokens from the provider. RequestAccessToken
// returns once the consent flow has been started; the outcome arrives via
// the configured callbacks.
type TokenClient interface {
	RequestAccessToken(ctx context.Context, opts RequestOptions) error
}

// Provider is the identity-provider capability the session depends on.
// Implementations must make Load idempotent.
type Provider interface {
	// Load begins loading the provider client. Safe to call repeatedly.
	Load(ctx context.Context) error
	// Loaded reports whether the client library has finished loading.
	Loaded() bool
	// Available reports whether the token-client object is usable.
	Available() bool
	// InitTokenClient constructs a token-request client.
	InitTokenClient(cfg TokenClientConfig) (TokenClient, error)
	// Revoke invalidates the given access token with the provider.
	Revoke(ctx context.Context, accessToken string) error
}

// Provider error types reported through ErrorCallback.
const (
	errorTypePopupClosed       = "popup_closed"
	errorTypePopupFailedToOpen = "popup_failed_to_open"
)

// Error codes reported through the success callback's Error field.
const (
	responseErrorPopupClosed  = "popup_closed_by_user"
	responseErrorAccessDenied = "access_denied"
)
