package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionkeeper/internal/storage"
)

func TestMailboxFreshness(t *testing.T) {
	tests := []struct {
		name    string
		age     time.Duration
		adopted bool
	}{
		{"5s old", 5 * time.Second, true},
		{"exactly 30s old", 30 * time.Second, true},
		{"31s old", 31 * time.Second, false},
		{"stamped 31s in the future", -31 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			shared := storage.NewMemoryStore()
			publisher := NewMailbox(shared, newFakeClock(base))
			mb := NewMailbox(shared, newFakeClock(base.Add(tt.age)))

			rec := SessionRecord{AccessToken: "tok", ExpiresAt: base.Add(time.Hour)}
			require.NoError(t, publisher.Publish(ctx, rec))

			h, err := mb.Consume(ctx)
			require.NoError(t, err)
			if tt.adopted {
				require.NotNil(t, h)
				assert.Equal(t, rec, h.Session())
			} else {
				assert.Nil(t, h)
			}

			_, err = shared.Get(ctx, HandoffKey)
			assert.ErrorIs(t, err, storage.ErrNotFound, "the slot is emptied on read either way")
		})
	}
}

func TestMailboxConsumedOnce(t *testing.T) {
	ctx := t.Context()
	clock := newFakeClock(time.Now())
	mb := NewMailbox(storage.NewMemoryStore(), clock)

	require.NoError(t, mb.Publish(ctx, SessionRecord{AccessToken: "tok", ExpiresAt: clock.Now().Add(time.Hour)}))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		adopted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := mb.Consume(ctx)
			assert.NoError(t, err)
			if h != nil {
				mu.Lock()
				adopted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, adopted)
}

func TestMailboxEmpty(t *testing.T) {
	mb := NewMailbox(storage.NewMemoryStore(), newFakeClock(time.Now()))
	h, err := mb.Consume(t.Context())
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestMailboxPublishRequiresToken(t *testing.T) {
	mb := NewMailbox(storage.NewMemoryStore(), newFakeClock(time.Now()))
	assert.ErrorIs(t, mb.Publish(t.Context(), SessionRecord{}), ErrNoSession)
}

func TestMailboxDiscardsGarbage(t *testing.T) {
	ctx := t.Context()
	shared := storage.NewMemoryStore()
	require.NoError(t, shared.Set(ctx, HandoffKey, []byte("garbage")))

	h, err := NewMailbox(shared, newFakeClock(time.Now())).Consume(ctx)
	require.NoError(t, err)
	assert.Nil(t, h)
	_, err = shared.Get(ctx, HandoffKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMailboxAwait(t *testing.T) {
	ctx := t.Context()
	shared := storage.NewMemoryStore()
	mb := NewMailbox(shared, SystemClock)
	rec := SessionRecord{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}

	go func() {
		time.Sleep(50 * time.Millisecond)
		assert.NoError(t, NewMailbox(shared, SystemClock).Publish(ctx, rec))
	}()

	h, err := mb.Await(ctx, 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "tok", h.AccessToken)
}

func TestMailboxAwaitTimesOut(t *testing.T) {
	mb := NewMailbox(storage.NewMemoryStore(), SystemClock)

	start := time.Now()
	h, err := mb.Await(t.Context(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.Less(t, time.Since(start), 5*time.Second)
}
