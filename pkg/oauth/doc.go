// Package oauth holds the protocol primitives shared by the session packages:
// PKCE generation (RFC 7636), the state parameter, and the identity document
// returned by the identity-check endpoint.
//
// Every call to GeneratePKCE produces a fresh verifier; a verifier must never
// be reused across two login attempts.
//
//	pkce, err := oauth.GeneratePKCE()
//	state, err := oauth.GenerateState()
package oauth
