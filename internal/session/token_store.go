package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"sessionkeeper/internal/storage"
	"sessionkeeper/pkg/logging"
)

// TokenStore owns the tab's session record and pending authorization.
//
// SECURITY: token values are never logged; only the tab name and expiry are.
type TokenStore struct {
	mu    sync.Mutex
	store storage.Store
	clock Clock
	tab   string
}

// NewTokenStore returns a TokenStore over the tab-scoped store.
func NewTokenStore(store storage.Store, clock Clock, tab string) *TokenStore {
	if clock == nil {
		clock = SystemClock
	}
	return &TokenStore{store: store, clock: clock, tab: tab}
}

// Record returns the stored session record, usable or not, or nil when
// there is none. A record that cannot be decoded is dropped.
func (s *TokenStore) Record(ctx context.Context) (*SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(ctx)
}

func (s *TokenStore) recordLocked(ctx context.Context) (*SessionRecord, error) {
	data, err := s.store.Get(ctx, SessionKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}

	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		logging.Warn("TokenStore", "Dropping unreadable session record for tab %s: %v", s.tab, err)
		_ = s.store.Delete(ctx, SessionKey)
		return nil, nil
	}
	return &rec, nil
}

// IsValid reports whether the tab holds a token usable right now.
func (s *TokenStore) IsValid(ctx context.Context) bool {
	_, ok := s.ValidAccessToken(ctx)
	return ok
}

// ValidAccessToken returns the stored token if now < expiresAt - Skew.
func (s *TokenStore) ValidAccessToken(ctx context.Context) (string, bool) {
	rec, err := s.Record(ctx)
	if err != nil {
		logging.Warn("TokenStore", "Failed to read session record for tab %s: %v", s.tab, err)
		return "", false
	}
	if !rec.UsableAt(s.clock.Now()) {
		return "", false
	}
	return rec.AccessToken, true
}

// Write stores a freshly issued token expiring expiresIn from now.
func (s *TokenStore) Write(ctx context.Context, accessToken string, expiresIn time.Duration) (*SessionRecord, error) {
	rec := SessionRecord{
		AccessToken: accessToken,
		ExpiresAt:   s.clock.Now().Add(expiresIn),
	}
	if err := s.put(ctx, rec, "token_stored"); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Adopt stores a record taken over from another tab verbatim.
func (s *TokenStore) Adopt(ctx context.Context, rec SessionRecord) error {
	return s.put(ctx, rec, "token_adopted")
}

func (s *TokenStore) put(ctx context.Context, rec SessionRecord, action string) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(ctx, SessionKey, data); err != nil {
		logging.Audit(logging.AuditEvent{Action: action, Outcome: "failure", Tab: s.tab, Detail: err.Error()})
		return fmt.Errorf("failed to persist session record: %w", err)
	}
	logging.Audit(logging.AuditEvent{
		Action:  action,
		Outcome: "success",
		Tab:     s.tab,
		Detail:  "expires_at=" + rec.ExpiresAt.Format(time.RFC3339),
	})
	return nil
}

// Clear removes the session record and any pending authorization.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := errors.Join(
		s.store.Delete(ctx, SessionKey),
		s.store.Delete(ctx, PendingKey),
	)
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "token_cleared", Outcome: "failure", Tab: s.tab, Detail: err.Error()})
		return fmt.Errorf("failed to clear session: %w", err)
	}
	logging.Audit(logging.AuditEvent{Action: "token_cleared", Outcome: "success", Tab: s.tab})
	return nil
}

// SavePending stores the pending authorization of a login about to start,
// replacing any earlier one.
func (s *TokenStore) SavePending(ctx context.Context, p PendingAuthorization) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pending authorization: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(ctx, PendingKey, data); err != nil {
		return fmt.Errorf("failed to persist pending authorization: %w", err)
	}
	return nil
}

// PeekPending returns the pending authorization without consuming it, or
// nil if none exists.
func (s *TokenStore) PeekPending(ctx context.Context) (*PendingAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Get(ctx, PendingKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending authorization: %w", err)
	}

	var p PendingAuthorization
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode pending authorization: %w", err)
	}
	return &p, nil
}

// TakePending returns and deletes the pending authorization, or nil if none
// exists. A pending authorization is never returned twice.
func (s *TokenStore) TakePending(ctx context.Context) (*PendingAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Take(ctx, PendingKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending authorization: %w", err)
	}

	var p PendingAuthorization
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode pending authorization: %w", err)
	}
	return &p, nil
}
