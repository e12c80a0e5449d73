package session

import "time"

// Storage keys.
const (
	SessionKey = "sessionkeeper.session"
	PendingKey = "sessionkeeper.pending"
	HandoffKey = "sessionkeeper.handoff"
)

const (
	// Skew is subtracted from a token's expiry so a request started with a
	// valid token does not expire in flight.
	Skew = 60 * time.Second

	// WarningWindow is how long before expiry the scheduler warns.
	WarningWindow = 2 * time.Minute

	// HandoffMaxAge is the freshness window of a handoff record.
	HandoffMaxAge = 30 * time.Second
)

// SessionRecord is the tab's access token and its absolute expiry.
type SessionRecord struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// UsableAt reports whether the token may still be used at now.
func (r *SessionRecord) UsableAt(now time.Time) bool {
	if r == nil || r.AccessToken == "" {
		return false
	}
	return now.Before(r.ExpiresAt.Add(-Skew))
}

// PendingAuthorization is the secret half of an in-flight login. It is
// consumed exactly once, on the return leg.
type PendingAuthorization struct {
	CodeVerifier string    `json:"codeVerifier"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HandoffRecord transplants a live session into a newly opened tab.
type HandoffRecord struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FreshAt reports whether the record is inside the freshness window at now.
func (h *HandoffRecord) FreshAt(now time.Time) bool {
	if h == nil || h.AccessToken == "" {
		return false
	}
	age := now.Sub(h.CreatedAt)
	return age <= HandoffMaxAge && age >= -HandoffMaxAge
}

// Session returns the session record carried by the handoff.
func (h *HandoffRecord) Session() SessionRecord {
	return SessionRecord{AccessToken: h.AccessToken, ExpiresAt: h.ExpiresAt}
}
