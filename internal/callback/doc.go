// Package callback receives the authorization response on the loopback
// interface.
//
// The redirect URI registered with the identity provider points at this
// server. Each request to its path is turned into a Result carrying the full
// return URL, which the caller loads into the tab before re-running the boot
// sequence. The server only binds loopback addresses.
package callback
