package oauth

import "strings"

// Identity is the caller's own profile as returned by the identity-check
// endpoint. Only DisplayName is guaranteed by the provider.
type Identity struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Country     string `json:"country,omitempty"`
	Product     string `json:"product,omitempty"`
}

// Name returns the best human readable label for the identity.
func (i *Identity) Name() string {
	if i == nil {
		return ""
	}
	if s := strings.TrimSpace(i.DisplayName); s != "" {
		return s
	}
	if i.Email != "" {
		return i.Email
	}
	return i.ID
}
