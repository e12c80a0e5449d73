// Package agent keeps one tab's session alive in a long running process.
//
// The agent boots the tab, arms the refresh scheduler after every successful
// login and receives every authorization response on a persistent loopback
// callback server, so a login restarted by expiry completes without user
// interaction beyond the browser.
//
// Other local processes read the session through a small JSON API bound to
// a loopback address:
//
//	GET  /v1/token    current access token, 401 when there is none
//	GET  /v1/session  tab status and identity
//	POST /v1/handoff  publish the session for the next tab that boots
//	POST /v1/refresh  discard the session and start a new login
//
// When started by systemd the agent reports readiness and status through
// sd_notify.
package agent
