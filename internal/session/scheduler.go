package session

import (
	"context"
	"math"
	"sync"

	"sessionkeeper/pkg/logging"
)

// Callbacks receive scheduler notifications. Either may be nil.
type Callbacks struct {
	// OnExpiringSoon is called once, WarningWindow before expiry, with the
	// whole seconds left.
	OnExpiringSoon func(secondsLeft int)
	// OnSessionExpired is called once the token leaves its usable window,
	// before the tab is cleared and a new login started.
	OnSessionExpired func()
}

// CancelFunc stops an armed schedule. It is safe to call more than once.
type CancelFunc func()

// Scheduler arms the expiry timers of the tab's session.
type Scheduler struct {
	tokens  *TokenStore
	clock   Clock
	restart func(ctx context.Context) error
}

// NewScheduler returns a Scheduler. restart is run after expiry to start a
// new login.
func NewScheduler(tokens *TokenStore, clock Clock, restart func(ctx context.Context) error) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{tokens: tokens, clock: clock, restart: restart}
}

type arm struct {
	mu       sync.Mutex
	stopped  bool
	timers   []Timer
	stopOnce sync.Once
	release  func() bool
}

func (a *arm) cancel() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.stopped = true
		timers, release := a.timers, a.release
		a.timers, a.release = nil, nil
		a.mu.Unlock()
		for _, t := range timers {
			t.Stop()
		}
		if release != nil {
			release()
		}
	})
}

// live reports whether the arm has not been cancelled.
func (a *arm) live() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.stopped
}

// Schedule arms a warning timer at expiresAt-WarningWindow, when that is
// still ahead, and an expiry timer at expiresAt-Skew, immediately if already
// past. Without a stored record nothing is armed. The schedule is cancelled
// when ctx is done.
func (s *Scheduler) Schedule(ctx context.Context, cb Callbacks) CancelFunc {
	rec, err := s.tokens.Record(ctx)
	if err != nil {
		logging.Warn("Scheduler", "Not arming refresh timers: %v", err)
		return func() {}
	}
	if rec == nil {
		return func() {}
	}

	a := &arm{}
	now := s.clock.Now()
	expiresAt := rec.ExpiresAt

	a.mu.Lock()
	if warnAt := expiresAt.Add(-WarningWindow); warnAt.After(now) {
		a.timers = append(a.timers, s.clock.AfterFunc(warnAt.Sub(now), func() {
			if !a.live() {
				return
			}
			left := expiresAt.Sub(s.clock.Now()).Seconds()
			secondsLeft := int(math.Max(0, math.Round(left)))
			logging.Info("Scheduler", "Session for tab %s expires in %ds", s.tokens.tab, secondsLeft)
			if cb.OnExpiringSoon != nil {
				cb.OnExpiringSoon(secondsLeft)
			}
		}))
	}

	expireIn := expiresAt.Add(-Skew).Sub(now)
	if expireIn < 0 {
		expireIn = 0
	}
	a.timers = append(a.timers, s.clock.AfterFunc(expireIn, func() {
		if !a.live() {
			return
		}
		a.cancel()
		s.expire(ctx, cb)
	}))
	a.mu.Unlock()

	release := context.AfterFunc(ctx, a.cancel)
	a.mu.Lock()
	stopped := a.stopped
	if !stopped {
		a.release = release
	}
	a.mu.Unlock()
	if stopped {
		release()
	}

	logging.Debug("Scheduler", "Armed refresh timers for tab %s, expiry in %s", s.tokens.tab, expireIn)
	return a.cancel
}

func (s *Scheduler) expire(ctx context.Context, cb Callbacks) {
	logging.Info("Scheduler", "Session for tab %s expired", s.tokens.tab)
	if cb.OnSessionExpired != nil {
		cb.OnSessionExpired()
	}
	if err := s.tokens.Clear(ctx); err != nil {
		logging.Warn("Scheduler", "%v", err)
	}
	if s.restart == nil {
		return
	}
	if err := s.restart(ctx); err != nil {
		logging.Error("Scheduler", err, "Failed to restart login for tab %s", s.tokens.tab)
	}
}
