package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sessionkeeper/internal/storage"
	"sessionkeeper/pkg/logging"
)

// awaitPollInterval is used when the shared store cannot report writes.
const awaitPollInterval = 250 * time.Millisecond

// Mailbox is the single-slot, at-most-once handoff channel in the
// origin-shared store. Any tab may publish; the first consumer drains it.
type Mailbox struct {
	store storage.Store
	clock Clock
}

// NewMailbox returns a Mailbox over the origin-shared store.
func NewMailbox(store storage.Store, clock Clock) *Mailbox {
	if clock == nil {
		clock = SystemClock
	}
	return &Mailbox{store: store, clock: clock}
}

// Publish writes a handoff record derived from rec, stamped now. It replaces
// any unread record.
func (m *Mailbox) Publish(ctx context.Context, rec SessionRecord) error {
	if rec.AccessToken == "" {
		return ErrNoSession
	}
	h := HandoffRecord{
		AccessToken: rec.AccessToken,
		ExpiresAt:   rec.ExpiresAt,
		CreatedAt:   m.clock.Now(),
	}
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal handoff record: %w", err)
	}
	if err := m.store.Set(ctx, HandoffKey, data); err != nil {
		return fmt.Errorf("failed to publish handoff record: %w", err)
	}
	logging.Audit(logging.AuditEvent{Action: "handoff_published", Outcome: "success"})
	return nil
}

// Consume takes the slot and returns its record if it is fresh. The slot is
// emptied whether or not the record is returned. A nil record with a nil
// error means there was nothing to adopt.
func (m *Mailbox) Consume(ctx context.Context) (*HandoffRecord, error) {
	data, err := m.store.Take(ctx, HandoffKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read handoff record: %w", err)
	}

	var h HandoffRecord
	if err := json.Unmarshal(data, &h); err != nil {
		logging.Audit(logging.AuditEvent{Action: "handoff_discarded", Outcome: "discarded", Detail: "unreadable"})
		return nil, nil
	}

	now := m.clock.Now()
	if !h.FreshAt(now) {
		logging.Audit(logging.AuditEvent{
			Action:  "handoff_discarded",
			Outcome: "discarded",
			Detail:  fmt.Sprintf("age=%s", now.Sub(h.CreatedAt).Round(time.Millisecond)),
		})
		return nil, nil
	}
	return &h, nil
}

// Await waits up to timeout for a fresh record to be published and consumes
// it. It returns nil, nil on timeout. Stores implementing storage.Watcher are
// watched; others are polled.
func (m *Mailbox) Await(ctx context.Context, timeout time.Duration) (*HandoffRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var notify <-chan struct{}
	if w, ok := m.store.(storage.Watcher); ok {
		ch, err := w.Watch(ctx, HandoffKey)
		if err != nil {
			logging.Debug("Handoff", "Watch unavailable, falling back to polling: %v", err)
		} else {
			notify = ch
		}
	}

	var ticker *time.Ticker
	var tick <-chan time.Time
	if notify == nil {
		ticker = time.NewTicker(awaitPollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		h, err := m.Consume(ctx)
		if err != nil && ctx.Err() != nil {
			return nil, nil
		}
		if err != nil || h != nil {
			return h, err
		}

		select {
		case <-ctx.Done():
			return nil, nil
		case _, ok := <-notify:
			if !ok {
				return nil, nil
			}
		case <-tick:
		}
	}
}
