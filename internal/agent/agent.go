package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"

	"sessionkeeper/internal/callback"
	"sessionkeeper/internal/session"
	"sessionkeeper/pkg/logging"
	"sessionkeeper/pkg/oauth"
)

// Session is the part of session.Manager the agent drives.
type Session interface {
	Tab() string
	Record(ctx context.Context) (*session.SessionRecord, error)
	GetValidAccessToken(ctx context.Context) (string, bool)
	EnsureAuthenticatedWithMe(ctx context.Context) (*session.BootResult, error)
	ScheduleTokenRefresh(ctx context.Context, cb session.Callbacks) session.CancelFunc
	RefreshSession(ctx context.Context) error
	PublishHandoff(ctx context.Context) error
	Teardown()
}

// Returns is the source of authorization responses.
type Returns interface {
	Wait(ctx context.Context) (*callback.Result, error)
}

// Loader loads a return URL into the tab.
type Loader interface {
	Load(u *url.URL)
}

// Options configure an Agent.
type Options struct {
	Session       Session
	Location      Loader
	Returns       Returns
	ListenAddress string
	Notifier      Notifier
}

// State is the agent's view of the session.
type State string

const (
	StateStarting      State = "starting"
	StateAuthenticated State = "authenticated"
	StateExpiring      State = "expiring"
	StateRedirecting   State = "redirecting"
	StateFailed        State = "failed"
)

// Agent keeps a tab authenticated.
type Agent struct {
	id       string
	session  Session
	location Loader
	returns  Returns
	addr     string
	notifier Notifier

	mu       sync.RWMutex
	state    State
	identity *oauth.Identity
	lastErr  error
	started  time.Time
}

// New returns an Agent.
func New(opts Options) *Agent {
	if opts.Notifier == nil {
		opts.Notifier = SystemdNotifier{}
	}
	return &Agent{
		id:       uuid.NewString(),
		session:  opts.Session,
		location: opts.Location,
		returns:  opts.Returns,
		addr:     opts.ListenAddress,
		notifier: opts.Notifier,
		state:    StateStarting,
	}
}

// ID identifies this agent process.
func (a *Agent) ID() string { return a.id }

// Run serves the API, boots the tab and processes authorization responses
// until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.addr, err)
	}
	return a.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (a *Agent) Serve(ctx context.Context, listener net.Listener) error {
	a.mu.Lock()
	a.started = time.Now()
	a.mu.Unlock()

	server := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	logging.Info("Agent", "Agent %s serving tab %s on %s", a.id, a.session.Tab(), listener.Addr())

	defer func() {
		a.session.Teardown()
		_ = a.notifier.Notify(daemon.SdNotifyStopping)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := a.boot(ctx); err != nil {
		return err
	}
	if err := a.notifier.Notify(daemon.SdNotifyReady); err != nil {
		logging.Warn("Agent", "sd_notify failed: %v", err)
	}

	returns := make(chan *callback.Result)
	go func() {
		for {
			res, err := a.returns.Wait(ctx)
			if err != nil {
				return
			}
			select {
			case returns <- res:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logging.Info("Agent", "Agent %s stopping", a.id)
			return nil
		case err, ok := <-serveErr:
			if !ok {
				serveErr = nil
				continue
			}
			return fmt.Errorf("agent API failed: %w", err)
		case res := <-returns:
			a.location.Load(res.URL)
			if err := a.boot(ctx); err != nil {
				// A refusal at the provider leaves the agent waiting for the
				// next manual login rather than exiting.
				logging.Error("Agent", err, "Login for tab %s failed", a.session.Tab())
			}
		}
	}
}

// boot runs the boot sequence and arms the scheduler on success. Only
// configuration errors are returned.
func (a *Agent) boot(ctx context.Context) error {
	res, err := a.session.EnsureAuthenticatedWithMe(ctx)
	if err != nil {
		a.setState(StateFailed, nil, err)
		if errors.Is(err, &session.ConfigurationError{}) {
			return err
		}
		return nil
	}

	if res.Status != session.StatusAuthenticated {
		a.setState(StateRedirecting, nil, nil)
		return nil
	}

	a.setState(StateAuthenticated, res.Identity, nil)
	a.session.ScheduleTokenRefresh(ctx, session.Callbacks{
		OnExpiringSoon: func(secondsLeft int) {
			a.setState(StateExpiring, nil, nil)
			logging.Info("Agent", "Session for tab %s expires in %ds", a.session.Tab(), secondsLeft)
		},
		OnSessionExpired: func() {
			a.setState(StateRedirecting, nil, nil)
		},
	})
	return nil
}

func (a *Agent) setState(state State, identity *oauth.Identity, err error) {
	a.mu.Lock()
	a.state = state
	if identity != nil {
		a.identity = identity
	}
	if state == StateRedirecting || state == StateFailed {
		a.identity = nil
	}
	a.lastErr = err
	a.mu.Unlock()

	msg := string(state)
	if identity != nil {
		msg += " as " + identity.Name()
	}
	if err := a.notifier.Notify(statusLine(msg)); err != nil {
		logging.Debug("Agent", "sd_notify failed: %v", err)
	}
}

// Snapshot is the agent's current state.
type Snapshot struct {
	State    State
	Identity *oauth.Identity
	Err      error
	Started  time.Time
}

// Snapshot returns the current state.
func (a *Agent) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{State: a.state, Identity: a.identity, Err: a.lastErr, Started: a.started}
}
