package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionkeeper/internal/storage"
)

func TestSessionRecordUsableAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		rec    *SessionRecord
		usable bool
	}{
		{"nil record", nil, false},
		{"empty token", &SessionRecord{ExpiresAt: now.Add(time.Hour)}, false},
		{"well inside window", &SessionRecord{AccessToken: "x", ExpiresAt: now.Add(time.Hour)}, true},
		{"61s left", &SessionRecord{AccessToken: "x", ExpiresAt: now.Add(61 * time.Second)}, true},
		{"exactly skew left", &SessionRecord{AccessToken: "x", ExpiresAt: now.Add(Skew)}, false},
		{"59s left", &SessionRecord{AccessToken: "x", ExpiresAt: now.Add(59 * time.Second)}, false},
		{"expired", &SessionRecord{AccessToken: "x", ExpiresAt: now.Add(-time.Second)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.usable, tt.rec.UsableAt(now))
		})
	}
}

func TestTokenStoreSkewBoundary(t *testing.T) {
	ctx := t.Context()
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ts := NewTokenStore(storage.NewMemoryStore(), clock, "t1")

	_, err := ts.Write(ctx, "tok", 61*time.Second)
	require.NoError(t, err)

	token, ok := ts.ValidAccessToken(ctx)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)

	clock.Advance(time.Second)
	assert.False(t, ts.IsValid(ctx), "token must be unusable once only 60s remain")

	rec, err := ts.Record(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec, "an unusable record is kept until cleared")
}

func TestTokenStoreWriteComputesAbsoluteExpiry(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := NewTokenStore(storage.NewMemoryStore(), newFakeClock(now), "t1")

	rec, err := ts.Write(ctx, "tok", time.Hour)
	require.NoError(t, err)
	assert.True(t, rec.ExpiresAt.Equal(now.Add(time.Hour)))

	stored, err := ts.Record(ctx)
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.Equal(rec.ExpiresAt))
}

func TestTokenStoreClear(t *testing.T) {
	ctx := t.Context()
	ts := NewTokenStore(storage.NewMemoryStore(), newFakeClock(time.Now()), "t1")

	_, err := ts.Write(ctx, "tok", time.Hour)
	require.NoError(t, err)
	require.NoError(t, ts.SavePending(ctx, PendingAuthorization{CodeVerifier: "v", State: "s"}))

	require.NoError(t, ts.Clear(ctx))
	require.NoError(t, ts.Clear(ctx), "clearing twice is not an error")

	rec, err := ts.Record(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	p, err := ts.TakePending(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestTokenStorePendingIsTakenOnce(t *testing.T) {
	ctx := t.Context()
	ts := NewTokenStore(storage.NewMemoryStore(), newFakeClock(time.Now()), "t1")

	require.NoError(t, ts.SavePending(ctx, PendingAuthorization{CodeVerifier: "v1", State: "s1"}))
	require.NoError(t, ts.SavePending(ctx, PendingAuthorization{CodeVerifier: "v2", State: "s2"}))

	p, err := ts.TakePending(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "s2", p.State, "a new login replaces the earlier pending authorization")

	p, err = ts.TakePending(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestTokenStoreDropsUnreadableRecord(t *testing.T) {
	ctx := t.Context()
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, SessionKey, []byte("{not json")))

	ts := NewTokenStore(mem, newFakeClock(time.Now()), "t1")
	rec, err := ts.Record(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = mem.Get(ctx, SessionKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
