package session

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"sessionkeeper/pkg/logging"
	"sessionkeeper/pkg/oauth"
)

// Status is the outcome of a boot.
type Status string

const (
	// StatusAuthenticated means the tab holds a token the identity endpoint
	// accepted.
	StatusAuthenticated Status = "authenticated"
	// StatusRedirecting means the tab is navigating to the authorization
	// endpoint. Callers must not continue the boot.
	StatusRedirecting Status = "redirecting"
)

// BootResult is returned by EnsureAuthenticatedWithMe.
type BootResult struct {
	Status      Status
	AccessToken string
	Identity    *oauth.Identity
	BootID      string
}

// Bootstrapper decides, on every page load, whether the tab is authenticated
// or must log in.
type Bootstrapper struct {
	tokens   *TokenStore
	mailbox  *Mailbox
	flow     *Controller
	identity IdentityChecker
}

// NewBootstrapper wires the boot sequence. mailbox may be nil, in which case
// no handoff is attempted.
func NewBootstrapper(tokens *TokenStore, mailbox *Mailbox, flow *Controller, identity IdentityChecker) *Bootstrapper {
	return &Bootstrapper{tokens: tokens, mailbox: mailbox, flow: flow, identity: identity}
}

// EnsureAuthenticatedWithMe runs the boot sequence:
//
//  1. without a valid token, adopt a fresh handoff record if one is waiting
//  2. with an authorization response in the URL, complete the flow; an
//     error response without this tab's state is dropped
//  3. otherwise confirm a stored token against the identity endpoint
//  4. failing all of the above, start a login redirect
//
// Only configuration errors and provider refusals are returned as errors;
// every other failure clears the tab and ends in StatusRedirecting.
func (b *Bootstrapper) EnsureAuthenticatedWithMe(ctx context.Context) (*BootResult, error) {
	bootID := uuid.NewString()
	tab := b.tokens.tab
	logging.Debug("Bootstrap", "Boot %s started for tab %s", bootID, tab)

	if !b.tokens.IsValid(ctx) && b.mailbox != nil {
		b.adoptHandoff(ctx, bootID)
	}

	if b.flow.HasReturnParams() {
		rec, identity, err := b.flow.HandleReturn(ctx)
		switch {
		case err == nil:
			logging.Audit(logging.AuditEvent{Action: "login", Outcome: "success", Tab: tab, BootID: bootID})
			return &BootResult{Status: StatusAuthenticated, AccessToken: rec.AccessToken, Identity: identity, BootID: bootID}, nil
		case errors.Is(err, ErrUnsolicitedReturn):
			logging.Warn("Bootstrap", "Boot %s: ignoring authorization response without a matching login", bootID)
		case IsFatal(err):
			b.clear(ctx, bootID)
			return nil, err
		default:
			logging.Warn("Bootstrap", "Boot %s: authorization return failed, restarting login: %v", bootID, err)
			b.clear(ctx, bootID)
			return b.redirect(ctx, bootID)
		}
	}

	if token, ok := b.tokens.ValidAccessToken(ctx); ok {
		identity, err := b.identity.FetchIdentity(ctx, token)
		if err == nil {
			logging.Debug("Bootstrap", "Boot %s: stored token accepted", bootID)
			return &BootResult{Status: StatusAuthenticated, AccessToken: token, Identity: identity, BootID: bootID}, nil
		}
		logging.Warn("Bootstrap", "Boot %s: stored token rejected, restarting login: %v", bootID, err)
		b.clear(ctx, bootID)
	}

	return b.redirect(ctx, bootID)
}

func (b *Bootstrapper) adoptHandoff(ctx context.Context, bootID string) {
	h, err := b.mailbox.Consume(ctx)
	if err != nil {
		logging.Warn("Bootstrap", "Boot %s: handoff unavailable: %v", bootID, err)
		return
	}
	if h == nil {
		return
	}
	if err := b.tokens.Adopt(ctx, h.Session()); err != nil {
		logging.Warn("Bootstrap", "Boot %s: failed to adopt handoff: %v", bootID, err)
		return
	}
	logging.Audit(logging.AuditEvent{Action: "handoff_adopted", Outcome: "success", Tab: b.tokens.tab, BootID: bootID})
}

func (b *Bootstrapper) clear(ctx context.Context, bootID string) {
	if err := b.tokens.Clear(ctx); err != nil {
		logging.Warn("Bootstrap", "Boot %s: %v", bootID, err)
	}
}

func (b *Bootstrapper) redirect(ctx context.Context, bootID string) (*BootResult, error) {
	if err := b.flow.StartLoginRedirect(ctx); err != nil {
		return nil, err
	}
	return &BootResult{Status: StatusRedirecting, BootID: bootID}, nil
}
