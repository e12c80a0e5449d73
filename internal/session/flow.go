package session

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"sessionkeeper/pkg/logging"
	"sessionkeeper/pkg/oauth"
)

// DefaultTokenLifetime is assumed when the token endpoint omits expires_in.
const DefaultTokenLifetime = time.Hour

// Config describes the OAuth client.
type Config struct {
	ClientID              string
	RedirectURI           string
	AuthorizationEndpoint string
	TokenEndpoint         string
	IdentityEndpoint      string
	Scopes                []string
}

func (c Config) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    c.ClientID,
		RedirectURL: c.RedirectURI,
		Scopes:      c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthorizationEndpoint,
			TokenURL: c.TokenEndpoint,
			// Public client: client_id travels in the form body.
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Controller drives the authorization code flow for one tab.
type Controller struct {
	cfg        Config
	tokens     *TokenStore
	location   Location
	identity   IdentityChecker
	httpClient *http.Client
	clock      Clock
}

// NewController returns a Controller. A nil httpClient uses the default
// transport.
func NewController(cfg Config, tokens *TokenStore, location Location, identity IdentityChecker, httpClient *http.Client, clock Clock) *Controller {
	if clock == nil {
		clock = SystemClock
	}
	return &Controller{
		cfg:        cfg,
		tokens:     tokens,
		location:   location,
		identity:   identity,
		httpClient: httpClient,
		clock:      clock,
	}
}

// StartLoginRedirect persists a new pending authorization and navigates the
// tab to the authorization endpoint. Any earlier pending authorization is
// replaced.
func (c *Controller) StartLoginRedirect(ctx context.Context) error {
	if c.cfg.ClientID == "" {
		return &ConfigurationError{Field: "client_id"}
	}
	if c.cfg.RedirectURI == "" {
		return &ConfigurationError{Field: "redirect_uri"}
	}

	authURL, err := c.prepare(ctx)
	if err != nil {
		return err
	}

	logging.Info("Flow", "Redirecting tab %s to authorization endpoint", c.tokens.tab)
	if err := c.location.Assign(ctx, authURL); err != nil {
		return fmt.Errorf("failed to navigate to authorization endpoint: %w", err)
	}
	return nil
}

// prepare persists a fresh pending authorization and returns the matching
// authorization URL.
func (c *Controller) prepare(ctx context.Context) (string, error) {
	pkce, err := oauth.GeneratePKCE()
	if err != nil {
		return "", fmt.Errorf("failed to generate PKCE challenge: %w", err)
	}
	state, err := oauth.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	pending := PendingAuthorization{
		CodeVerifier: pkce.CodeVerifier,
		State:        state,
		CreatedAt:    c.clock.Now(),
	}
	if err := c.tokens.SavePending(ctx, pending); err != nil {
		return "", err
	}

	return c.cfg.oauth2Config().AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", pkce.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.CodeChallengeMethod),
	), nil
}

// HasReturnParams reports whether the tab's current URL is an authorization
// response.
func (c *Controller) HasReturnParams() bool {
	q := c.location.Current().Query()
	return q.Get("code") != "" || q.Get("error") != ""
}

// HandleReturn completes the flow from the tab's current URL and removes the
// authorization response parameters from the address bar.
//
// An error response is honoured only when it carries the state of the
// pending authorization; otherwise ErrUnsolicitedReturn is returned and the
// pending authorization is kept. A code response always consumes the pending
// authorization.
func (c *Controller) HandleReturn(ctx context.Context) (*SessionRecord, *oauth.Identity, error) {
	current := c.location.Current()
	q := current.Query()
	code := q.Get("code")
	returnedState := q.Get("state")
	defer c.location.Replace(stripReturnParams(current))

	if errCode := q.Get("error"); errCode != "" {
		return nil, nil, c.handleErrorReturn(ctx, errCode, q.Get("error_description"), returnedState)
	}

	pending, err := c.tokens.TakePending(ctx)
	if err != nil {
		return nil, nil, &IntegrityError{Reason: "pending authorization unreadable", Err: err}
	}
	if pending == nil {
		logging.Audit(logging.AuditEvent{Action: "state_mismatch", Outcome: "failure", Tab: c.tokens.tab, Detail: "no pending authorization"})
		return nil, nil, &IntegrityError{Reason: "no pending authorization"}
	}
	if !stateMatches(pending, returnedState) {
		logging.Audit(logging.AuditEvent{Action: "state_mismatch", Outcome: "failure", Tab: c.tokens.tab, Detail: "possible CSRF"})
		return nil, nil, &IntegrityError{Reason: "state mismatch"}
	}
	if code == "" {
		return nil, nil, &IntegrityError{Reason: "authorization code missing"}
	}

	tok, err := c.exchange(ctx, code, pending.CodeVerifier)
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "code_exchange", Outcome: "failure", Tab: c.tokens.tab, Detail: err.Error()})
		return nil, nil, &ExchangeError{Err: err}
	}

	rec, err := c.tokens.Write(ctx, tok.AccessToken, c.lifetime(tok))
	if err != nil {
		return nil, nil, err
	}

	identity, err := c.identity.FetchIdentity(ctx, rec.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	return rec, identity, nil
}

func (c *Controller) handleErrorReturn(ctx context.Context, errCode, description, returnedState string) error {
	pending, err := c.tokens.PeekPending(ctx)
	if err != nil || !stateMatches(pending, returnedState) {
		logging.Audit(logging.AuditEvent{Action: "unsolicited_return", Outcome: "discarded", Tab: c.tokens.tab, Detail: errCode})
		return ErrUnsolicitedReturn
	}
	if _, err := c.tokens.TakePending(ctx); err != nil {
		logging.Warn("Flow", "Failed to consume pending authorization for tab %s: %v", c.tokens.tab, err)
	}
	logging.Audit(logging.AuditEvent{Action: "authorization_denied", Outcome: "failure", Tab: c.tokens.tab, Detail: errCode})
	return &AuthorizationError{Code: errCode, Description: description}
}

// stateMatches compares in constant time. An empty state never matches.
func stateMatches(pending *PendingAuthorization, returnedState string) bool {
	if pending == nil || returnedState == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(returnedState), []byte(pending.State)) == 1
}

func (c *Controller) exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	return c.cfg.oauth2Config().Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

func (c *Controller) lifetime(tok *oauth2.Token) time.Duration {
	if tok.ExpiresIn > 0 {
		return time.Duration(tok.ExpiresIn) * time.Second
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry.Sub(c.clock.Now())
	}
	logging.Warn("Flow", "Token response carried no expires_in, assuming %s", DefaultTokenLifetime)
	return DefaultTokenLifetime
}
