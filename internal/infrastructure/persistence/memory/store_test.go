package memory

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Strings(t *testing.T) {
	store := NewStore(time.Minute)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	val, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", val)

	require.NoError(t, store.Set(ctx, "short", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, found, _ = store.Get(ctx, "short")
	assert.False(t, found)

	require.NoError(t, store.Delete(ctx, "k"))
	_, found, _ = store.Get(ctx, "k")
	assert.False(t, found)
}

func TestStore_SortedSetsWithExpiry(t *testing.T) {
	store := NewStore(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.ZAdd(ctx, "z", 10, "a"))
	require.NoError(t, store.ZAdd(ctx, "z", 20, "b"))
	require.NoError(t, store.ZAdd(ctx, "z", 20, "b"))
	require.NoError(t, store.ZAdd(ctx, "z", 30, "c"))

	n, err := store.ZCard(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, store.ZRemRangeByScore(ctx, "z", math.Inf(-1), 20))
	n, _ = store.ZCard(ctx, "z")
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.Expire(ctx, "z", time.Second))
	now = now.Add(999 * time.Millisecond)
	n, _ = store.ZCard(ctx, "z")
	assert.Equal(t, int64(1), n)

	now = now.Add(time.Millisecond)
	n, _ = store.ZCard(ctx, "z")
	assert.Zero(t, n)
}

func TestStore_ScanAndDeleteCoverBothKinds(t *testing.T) {
	store := NewStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "auth:permission:check:u1:a", "true", time.Minute))
	require.NoError(t, store.Set(ctx, "auth:permission:check:u1:b", "false", time.Minute))
	require.NoError(t, store.Set(ctx, "auth:permission:check:u2:a", "true", time.Minute))
	require.NoError(t, store.ZAdd(ctx, "auth:permission:check:u1:z", 1, "m"))

	keys, err := store.ScanKeysByPrefix(ctx, "auth:permission:check:u1:")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"auth:permission:check:u1:a",
		"auth:permission:check:u1:b",
		"auth:permission:check:u1:z",
	}, keys)

	require.NoError(t, store.Delete(ctx, keys...))
	keys, err = store.ScanKeysByPrefix(ctx, "auth:permission:check:u1:")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
