package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sessionkeeper/internal/storage"
	"sessionkeeper/pkg/logging"
)

// DefaultTab names the tab used when none is given.
const DefaultTab = "default"

// Options configure a Manager.
type Options struct {
	// Tab names the browsing context. Defaults to DefaultTab.
	Tab    string
	Config Config

	// TabStore is private to the tab; SharedStore is visible to every tab.
	// SharedStore may be nil, which disables handoff.
	TabStore    storage.Store
	SharedStore storage.Store

	Location   Location
	HTTPClient *http.Client
	Clock      Clock

	// Identity overrides the identity endpoint client.
	Identity IdentityChecker
}

// Manager is the session context of one tab. It owns the tab's token store,
// its login flow and at most one armed refresh schedule.
type Manager struct {
	tab      string
	tokens   *TokenStore
	mailbox  *Mailbox
	flow     *Controller
	boot     *Bootstrapper
	sched    *Scheduler
	location Location
	identity IdentityChecker
	clock    Clock

	group singleflight.Group

	mu     sync.Mutex
	cancel CancelFunc
}

// New builds a Manager from opts.
func New(opts Options) (*Manager, error) {
	if opts.TabStore == nil {
		return nil, errors.New("session: tab store is required")
	}
	if opts.Location == nil {
		return nil, errors.New("session: location is required")
	}
	if opts.Tab == "" {
		opts.Tab = DefaultTab
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Identity == nil {
		opts.Identity = NewIdentityClient(opts.Config.IdentityEndpoint, opts.HTTPClient)
	}

	m := &Manager{
		tab:      opts.Tab,
		location: opts.Location,
		identity: opts.Identity,
		clock:    opts.Clock,
	}
	m.tokens = NewTokenStore(opts.TabStore, opts.Clock, opts.Tab)
	if opts.SharedStore != nil {
		m.mailbox = NewMailbox(opts.SharedStore, opts.Clock)
	}
	m.flow = NewController(opts.Config, m.tokens, opts.Location, opts.Identity, opts.HTTPClient, opts.Clock)
	m.boot = NewBootstrapper(m.tokens, m.mailbox, m.flow, opts.Identity)
	m.sched = NewScheduler(m.tokens, opts.Clock, m.flow.StartLoginRedirect)
	return m, nil
}

// Tab returns the tab name.
func (m *Manager) Tab() string { return m.tab }

// Location returns the tab's address bar.
func (m *Manager) Location() Location { return m.location }

// Identity returns the identity endpoint client.
func (m *Manager) Identity() IdentityChecker { return m.identity }

// Mailbox returns the handoff mailbox, or nil when handoff is disabled.
func (m *Manager) Mailbox() *Mailbox { return m.mailbox }

// Record returns the stored session record, usable or not.
func (m *Manager) Record(ctx context.Context) (*SessionRecord, error) {
	return m.tokens.Record(ctx)
}

// GetValidAccessToken returns the tab's token if it is inside its usable
// window.
func (m *Manager) GetValidAccessToken(ctx context.Context) (string, bool) {
	return m.tokens.ValidAccessToken(ctx)
}

// EnsureAuthenticatedWithMe runs the boot sequence. See
// Bootstrapper.EnsureAuthenticatedWithMe.
func (m *Manager) EnsureAuthenticatedWithMe(ctx context.Context) (*BootResult, error) {
	return m.boot.EnsureAuthenticatedWithMe(ctx)
}

// ScheduleTokenRefresh arms the refresh timers for the current session,
// cancelling any earlier arm. The returned CancelFunc cancels this arm only.
func (m *Manager) ScheduleTokenRefresh(ctx context.Context, cb Callbacks) CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = m.sched.Schedule(ctx, cb)
	return m.cancel
}

// RefreshSession discards the current session and starts a new login.
// Concurrent calls share one redirect.
func (m *Manager) RefreshSession(ctx context.Context) error {
	_, err, shared := m.group.Do("refresh", func() (interface{}, error) {
		m.cancelSchedule()
		if err := m.tokens.Clear(ctx); err != nil {
			logging.Warn("Session", "%v", err)
		}
		return nil, m.flow.StartLoginRedirect(ctx)
	})
	if shared {
		logging.Debug("Session", "Refresh for tab %s joined an in-flight refresh", m.tab)
	}
	return err
}

// PublishHandoff offers the tab's usable session to the next tab that boots.
func (m *Manager) PublishHandoff(ctx context.Context) error {
	if m.mailbox == nil {
		return errors.New("session: handoff is disabled")
	}
	rec, err := m.tokens.Record(ctx)
	if err != nil {
		return err
	}
	if !rec.UsableAt(m.clock.Now()) {
		return ErrNoSession
	}
	return m.mailbox.Publish(ctx, *rec)
}

// AwaitHandoff waits up to timeout for another tab to publish its session
// and adopts it. It reports whether a session was adopted.
func (m *Manager) AwaitHandoff(ctx context.Context, timeout time.Duration) (bool, error) {
	if m.mailbox == nil {
		return false, errors.New("session: handoff is disabled")
	}
	h, err := m.mailbox.Await(ctx, timeout)
	if err != nil || h == nil {
		return false, err
	}
	if err := m.tokens.Adopt(ctx, h.Session()); err != nil {
		return false, err
	}
	logging.Audit(logging.AuditEvent{Action: "handoff_adopted", Outcome: "success", Tab: m.tab})
	return true, nil
}

// Logout cancels the refresh schedule and forgets the session.
func (m *Manager) Logout(ctx context.Context) error {
	m.cancelSchedule()
	return m.tokens.Clear(ctx)
}

// Teardown releases timers. The stored session is kept.
func (m *Manager) Teardown() {
	m.cancelSchedule()
}

func (m *Manager) cancelSchedule() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
