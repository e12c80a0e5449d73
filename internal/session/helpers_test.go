package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sessionkeeper/internal/storage"
	"sessionkeeper/pkg/oauth"
)

// fakeClock only moves when Advance is called. Timers fire inside Advance,
// in deadline order, on the caller's goroutine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, one due timer at a time.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		next := due[0]
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
	}
}

// pending returns the number of armed timers.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeIdP is an identity provider with a token and an identity endpoint.
type fakeIdP struct {
	t      *testing.T
	server *httptest.Server

	mu         sync.Mutex
	challenge  string
	code       string
	token      string
	expiresIn  int
	identity   oauth.Identity
	meStatus   int
	tokenForms []url.Values

	tokenCalls atomic.Int32
	meCalls    atomic.Int32
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{
		t:         t,
		code:      "good-code",
		token:     "access-token-1",
		expiresIn: 3600,
		identity:  oauth.Identity{ID: "u1", DisplayName: "Ada"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", idp.handleToken)
	mux.HandleFunc("/me", idp.handleMe)
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (p *fakeIdP) handleToken(w http.ResponseWriter, r *http.Request) {
	p.tokenCalls.Add(1)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.tokenForms = append(p.tokenForms, r.PostForm)
	challenge, code, token, expiresIn := p.challenge, p.code, p.token, p.expiresIn
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.PostForm.Get("code") != code ||
		(challenge != "" && oauth.ChallengeFromVerifier(r.PostForm.Get("code_verifier")) != challenge) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}

	resp := map[string]interface{}{"access_token": token, "token_type": "Bearer"}
	if expiresIn > 0 {
		resp["expires_in"] = expiresIn
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (p *fakeIdP) handleMe(w http.ResponseWriter, r *http.Request) {
	p.meCalls.Add(1)
	p.mu.Lock()
	token, status, identity := p.token, p.meStatus, p.identity
	p.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(identity)
}

func (p *fakeIdP) setChallenge(c string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.challenge = c
}

func (p *fakeIdP) setMeStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.meStatus = status
}

func (p *fakeIdP) lastTokenForm() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tokenForms) == 0 {
		return nil
	}
	return p.tokenForms[len(p.tokenForms)-1]
}

func (p *fakeIdP) config() Config {
	return Config{
		ClientID:              "client-123",
		RedirectURI:           "https://app.example/callback",
		AuthorizationEndpoint: "https://idp.example/authorize",
		TokenEndpoint:         p.server.URL + "/token",
		IdentityEndpoint:      p.server.URL + "/me",
		Scopes:                []string{"user-read-private", "user-read-email"},
	}
}

type testTab struct {
	manager  *Manager
	location *TabLocation
	tabStore *storage.MemoryStore
	shared   *storage.MemoryStore
	clock    *fakeClock
	idp      *fakeIdP
}

const homeURL = "https://app.example/home#top"

func newTestTab(t *testing.T, idp *fakeIdP, clock *fakeClock, shared *storage.MemoryStore) *testTab {
	t.Helper()
	return newTestTabWithConfig(t, idp, clock, shared, idp.config())
}

func newTestTabWithConfig(t *testing.T, idp *fakeIdP, clock *fakeClock, shared *storage.MemoryStore, cfg Config) *testTab {
	t.Helper()
	home, err := url.Parse(homeURL)
	require.NoError(t, err)

	tt := &testTab{
		location: NewTabLocation(home, nil),
		tabStore: storage.NewMemoryStore(),
		shared:   shared,
		clock:    clock,
		idp:      idp,
	}
	opts := Options{
		Tab:        "t1",
		Config:     cfg,
		TabStore:   tt.tabStore,
		Location:   tt.location,
		HTTPClient: idp.server.Client(),
		Clock:      clock,
	}
	if shared != nil {
		opts.SharedStore = shared
	}
	tt.manager, err = New(opts)
	require.NoError(t, err)
	t.Cleanup(tt.manager.Teardown)
	return tt
}

// authorizeParams returns the query of the last authorization redirect.
func (tt *testTab) authorizeParams(t *testing.T) url.Values {
	t.Helper()
	assigned := tt.location.LastAssigned()
	require.NotEmpty(t, assigned, "tab was not redirected")
	u, err := url.Parse(assigned)
	require.NoError(t, err)
	return u.Query()
}

// returnWith loads the callback URL into the tab as the provider would.
func (tt *testTab) returnWith(t *testing.T, params url.Values) {
	t.Helper()
	u, err := url.Parse("https://app.example/callback#after")
	require.NoError(t, err)
	u.RawQuery = params.Encode()
	tt.location.Load(u)
}

// login runs a full redirect and return leg and fails the test unless the
// tab ends authenticated.
func (tt *testTab) login(t *testing.T) *BootResult {
	t.Helper()
	res, err := tt.manager.EnsureAuthenticatedWithMe(t.Context())
	require.NoError(t, err)
	require.Equal(t, StatusRedirecting, res.Status)

	q := tt.authorizeParams(t)
	tt.idp.setChallenge(q.Get("code_challenge"))
	tt.returnWith(t, url.Values{"code": {tt.idp.code}, "state": {q.Get("state")}})

	res, err = tt.manager.EnsureAuthenticatedWithMe(t.Context())
	require.NoError(t, err)
	require.Equal(t, StatusAuthenticated, res.Status)
	return res
}
