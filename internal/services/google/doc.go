// Package google implements the identity-provider session used to
// authorize uploads.
//
// Session owns the token flow: bounded-wait initialization of the provider
// client, a consent sign-in where success, provider error, and timeout race
// to resolve each request exactly once, best-effort revocation on sign-out,
// and persistence through the token store. The provider itself is an
// injected capability (Provider/TokenClient) so tests substitute a double;
// BrowserProvider is the production implementation, which drives the user's
// browser through a loopback redirect.
package google
