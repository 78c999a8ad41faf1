package redis_test

import (
	"context"
	"fmt"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/authcore/internal/infrastructure/persistence/redis"
	"github.com/turtacn/authcore/pkg/errors"
)

func newTestStore(t *testing.T) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewStore(client), s
}

func TestStore_GetSetDelete(t *testing.T) {
	store, s := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "k1", "v1", time.Minute))
	require.NoError(t, store.Set(ctx, "k2", "v2", 0))

	val, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", val)
	assert.Equal(t, time.Minute, s.TTL("k1"))
	assert.Equal(t, time.Duration(0), s.TTL("k2"))

	s.FastForward(61 * time.Second)
	_, found, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Delete(ctx, "k2", "never-existed"))
	assert.False(t, s.Exists("k2"))
	require.NoError(t, store.Delete(ctx))
}

func TestStore_ScanKeysByPrefix(t *testing.T) {
	store, s := newTestStore(t)
	ctx := context.Background()

	var want []string
	for i := 0; i < 600; i++ {
		key := fmt.Sprintf("auth:permission:check:u1:res%d:read", i)
		require.NoError(t, s.Set(key, "true"))
		want = append(want, key)
	}
	require.NoError(t, s.Set("auth:permission:check:u10:res:read", "true"))
	require.NoError(t, s.Set("auth:user:permissions:u1", "[]"))

	got, err := store.ScanKeysByPrefix(ctx, "auth:permission:check:u1:")
	require.NoError(t, err)
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestStore_SortedSetOperations(t *testing.T) {
	store, s := newTestStore(t)
	ctx := context.Background()
	key := "auth:ratelimit:BY_IP:10.0.0.1"

	require.NoError(t, store.ZAdd(ctx, key, 1000, "a"))
	require.NoError(t, store.ZAdd(ctx, key, 2000, "b"))
	require.NoError(t, store.ZAdd(ctx, key, 3000, "c"))

	n, err := store.ZCard(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// Bounds are inclusive.
	require.NoError(t, store.ZRemRangeByScore(ctx, key, math.Inf(-1), 2000))
	n, err = store.ZCard(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.Expire(ctx, key, 1500*time.Millisecond))
	assert.Equal(t, 1500*time.Millisecond, s.TTL(key))

	n, err = store.ZCard(ctx, "auth:ratelimit:BY_IP:unknown")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_FailuresAreInfrastructureErrors(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := redis.NewStore(client)
	s.Close()

	ctx := context.Background()
	_, _, err := store.Get(ctx, "k")
	assert.Equal(t, errors.KindInfrastructure, errors.KindOf(err))
	assert.True(t, errors.HasCode(err, errors.CodeInfrastructure))

	_, err = store.ScanKeysByPrefix(ctx, "p:")
	assert.True(t, errors.HasCode(err, errors.CodeInfrastructure))

	err = store.Set(ctx, "k", "v", time.Second)
	assert.True(t, errors.HasCode(err, errors.CodeInfrastructure))
}

func TestConnection_FromClient(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	conn := redis.NewConnectionFromClient(client, nil)

	require.NoError(t, conn.Ping(context.Background()))
	assert.NotNil(t, conn.Client())
	require.NoError(t, conn.Close())
	assert.Error(t, conn.Ping(context.Background()))
}

func TestConnection_ConnectStandalone(t *testing.T) {
	s := miniredis.RunT(t)
	conn := redis.NewConnection(redis.Config{Addr: s.Addr()}, nil)

	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Close()
	require.NoError(t, conn.Ping(context.Background()))
}

func TestConnection_RejectsUnknownMode(t *testing.T) {
	conn := redis.NewConnection(redis.Config{Mode: "mesh"}, nil)
	assert.Error(t, conn.Connect(context.Background()))
	assert.Nil(t, conn.Client())
}
