package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestStore(ttl time.Duration, max int) (*SessionStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewSessionStore(ttl, max, nil, nil)
	store.now = clock.Now
	return store, clock
}

func TestSessionStore_PutGet(t *testing.T) {
	store, _ := newTestStore(time.Hour, 0)
	ctx := context.Background()

	snap := &Snapshot{Source: "mine.csv"}
	id := store.Put(ctx, "mine.csv", "abc123", snap)

	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, "upload:"+id+":abc123", snap.Key)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Same(t, snap, got)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_Expiry(t *testing.T) {
	store, clock := newTestStore(time.Hour, 0)
	ctx := context.Background()

	id := store.Put(ctx, "a.csv", "x", &Snapshot{})

	clock.now = clock.now.Add(50 * time.Minute)
	_, err := store.Get(ctx, id)
	require.NoError(t, err, "access extends the session")

	clock.now = clock.now.Add(50 * time.Minute)
	_, err = store.Get(ctx, id)
	require.NoError(t, err)

	clock.now = clock.now.Add(61 * time.Minute)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_Sweep(t *testing.T) {
	store, clock := newTestStore(time.Minute, 0)
	ctx := context.Background()

	store.Put(ctx, "a.csv", "x", &Snapshot{})
	store.Put(ctx, "b.csv", "y", &Snapshot{})
	clock.now = clock.now.Add(2 * time.Minute)

	assert.Equal(t, 2, store.Sweep(ctx))
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_EvictsOldestAtCapacity(t *testing.T) {
	store, clock := newTestStore(time.Hour, 2)
	ctx := context.Background()

	first := store.Put(ctx, "a.csv", "x", &Snapshot{})
	clock.now = clock.now.Add(time.Second)
	second := store.Put(ctx, "b.csv", "y", &Snapshot{})
	clock.now = clock.now.Add(time.Second)
	third := store.Put(ctx, "c.csv", "z", &Snapshot{})

	assert.Equal(t, 2, store.Len())
	_, err := store.Get(ctx, first)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	for _, id := range []string{second, third} {
		_, err := store.Get(ctx, id)
		assert.NoError(t, err)
	}
}
