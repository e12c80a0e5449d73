// Package session implements the authentication and session lifecycle of one
// browsing context ("tab"): PKCE login through the authorization-code flow,
// the tab's token store, the cross-tab handoff mailbox, the bootstrapper that
// decides between "authenticated" and "redirecting", and the refresh
// scheduler that warns before expiry and forces re-authentication after it.
//
// # Storage layout
//
// The tab-scoped store holds two keys:
//
//	sessionkeeper.session   {accessToken, expiresAt}
//	sessionkeeper.pending   {codeVerifier, state}
//
// The origin-shared store holds one:
//
//	sessionkeeper.handoff   {accessToken, expiresAt, createdAt}
//
// # Boot sequence
//
// Manager.EnsureAuthenticatedWithMe runs, in order: adopt a fresh handoff if
// the tab has no usable session; complete the return leg if the current URL
// carries a code; reuse a stored token after an identity check; otherwise
// start a new login redirect. Every failure except a configuration error
// clears partial state and restarts login with a fresh PKCE pair.
//
// # Timing
//
// A token is usable while now < expiresAt - Skew. The scheduler warns
// WarningWindow before expiry and expires the session at expiresAt - Skew,
// the same instant the validity check starts failing.
package session
