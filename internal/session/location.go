package session

import (
	"context"
	"net/url"
	"sync"
)

// Navigator performs a full-page navigation of the tab to target. After a
// successful call the current page is considered gone.
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, target string) error

func (f NavigatorFunc) Navigate(ctx context.Context, target string) error {
	return f(ctx, target)
}

// Location is the tab's address bar.
type Location interface {
	// Current returns a copy of the current URL.
	Current() *url.URL
	// Assign navigates away to target.
	Assign(ctx context.Context, target string) error
	// Replace rewrites the current URL in place without navigating.
	Replace(u *url.URL)
}

// TabLocation is the Location of one tab.
type TabLocation struct {
	mu       sync.RWMutex
	current  *url.URL
	nav      Navigator
	assigned string
}

// NewTabLocation returns a Location positioned at initial.
func NewTabLocation(initial *url.URL, nav Navigator) *TabLocation {
	l := &TabLocation{nav: nav}
	l.Load(initial)
	return l
}

// Load models a new page load at u, e.g. the provider redirecting back.
func (l *TabLocation) Load(u *url.URL) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if u == nil {
		u = &url.URL{}
	}
	l.current = cloneURL(u)
}

func (l *TabLocation) Current() *url.URL {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneURL(l.current)
}

func (l *TabLocation) Assign(ctx context.Context, target string) error {
	l.mu.Lock()
	l.assigned = target
	nav := l.nav
	l.mu.Unlock()

	if nav == nil {
		return nil
	}
	return nav.Navigate(ctx, target)
}

func (l *TabLocation) Replace(u *url.URL) {
	l.Load(u)
}

// LastAssigned returns the most recent navigation target, or "".
func (l *TabLocation) LastAssigned() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.assigned
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}

// oauthReturnParams are removed from the address bar once consumed.
var oauthReturnParams = []string{"code", "state", "error", "error_description", "error_uri", "iss", "session_state"}

// stripReturnParams removes authorization response parameters from u while
// keeping other query parameters and the fragment.
func stripReturnParams(u *url.URL) *url.URL {
	c := cloneURL(u)
	q := c.Query()
	for _, p := range oauthReturnParams {
		q.Del(p)
	}
	c.RawQuery = q.Encode()
	c.ForceQuery = false
	return c
}

var _ Location = (*TabLocation)(nil)
