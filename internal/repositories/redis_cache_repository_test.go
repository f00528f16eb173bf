package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (CacheRepositoryInterface, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheRepository(client), mr
}

func TestRedisCache_GetSetMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	_, err := cache.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
	val, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	mr.FastForward(2 * time.Minute)
	_, err = cache.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_DelByPrefix(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 450; i++ {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("records:list:u1:projects:%d", i), "x", 0))
	}
	require.NoError(t, cache.Set(ctx, "records:list:u1:tasks:1", "x", 0))
	require.NoError(t, cache.Set(ctx, "records:list:u2:projects:1", "x", 0))

	n, err := cache.DelByPrefix(ctx, "records:list:u1:projects:")
	require.NoError(t, err)
	assert.Equal(t, 450, n)
	assert.True(t, mr.Exists("records:list:u1:tasks:1"))
	assert.True(t, mr.Exists("records:list:u2:projects:1"))

	require.NoError(t, cache.Del(ctx))
}

func TestRedisCache_Incr(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	n, err := cache.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = cache.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
