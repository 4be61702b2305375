package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func TestStore_CacheAside(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			calls++
			*dest = payload{Name: "ana", Count: calls}
			return nil
		}
	}

	var first payload
	hit, err := store.CacheAside(ctx, ReputationKey("u1"), &first, ReputationTTL, fetch(&first))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, first.Count)
	assert.True(t, mr.Exists("reputation:u1"))

	var second payload
	hit, err = store.CacheAside(ctx, ReputationKey("u1"), &second, ReputationTTL, fetch(&second))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	mr.FastForward(ReputationTTL + time.Second)
	var third payload
	hit, err = store.CacheAside(ctx, ReputationKey("u1"), &third, ReputationTTL, fetch(&third))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, third.Count)
}

func TestStore_CacheAsideFetchError(t *testing.T) {
	store, mr := newTestStore(t)
	boom := errors.New("db down")

	var dest payload
	_, err := store.CacheAside(context.Background(), "k", &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestStore_InvalidateReputation(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, ReputationKey("a"), payload{Name: "a"}, time.Minute))
	require.NoError(t, store.SetJSON(ctx, ReputationKey("b"), payload{Name: "b"}, time.Minute))
	require.NoError(t, store.SetJSON(ctx, LeaderboardKey, []payload{{Name: "a"}}, time.Minute))

	require.NoError(t, store.InvalidateReputation(ctx, "a"))
	assert.False(t, mr.Exists(ReputationKey("a")))
	assert.False(t, mr.Exists(LeaderboardKey))
	assert.True(t, mr.Exists(ReputationKey("b")))
}

func TestStore_Disabled(t *testing.T) {
	var nilStore *Store
	ctx := context.Background()

	assert.False(t, nilStore.Enabled())
	assert.NoError(t, nilStore.Invalidate(ctx, "k"))
	assert.NoError(t, nilStore.SetJSON(ctx, "k", 1, time.Minute))

	var dest payload
	calls := 0
	hit, err := NewStore(nil).CacheAside(ctx, "k", &dest, time.Minute, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, calls)
}

func TestStore_RedisDownFallsThrough(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	var dest payload
	hit, err := store.CacheAside(context.Background(), "k", &dest, time.Minute, func() error {
		dest = payload{Name: "fresh"}
		return nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", dest.Name)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	_, err := Connect(ctx, "")
	assert.ErrorIs(t, err, ErrDisabled)

	mr := miniredis.RunT(t)
	for _, addr := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		rdb, err := Connect(ctx, addr)
		require.NoError(t, err, addr)
		require.NoError(t, rdb.Set(ctx, "k", "v", 0).Err())
		_ = rdb.Close()
	}

	addr := mr.Addr()
	mr.Close()
	_, err = Connect(ctx, addr)
	assert.Error(t, err)
}
