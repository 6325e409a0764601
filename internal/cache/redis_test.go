// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, newRedisCache(client, "", zerolog.Nop())
}

func TestRedisCache_SetGet(t *testing.T) {
	mr, c := setupMiniRedis(t)

	c.Set("link_code", "ABCD1234", 5*time.Minute)

	val, ok := c.Get("link_code")
	require.True(t, ok)
	assert.Equal(t, "ABCD1234", val)
	assert.True(t, mr.Exists(DefaultKeyPrefix+"link_code"), "key is namespaced")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestRedisCache_GetMissing(t *testing.T) {
	_, c := setupMiniRedis(t)

	val, ok := c.Get("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRedisCache_TTL(t *testing.T) {
	mr, c := setupMiniRedis(t)

	c.Set("ttl", "v", 100*time.Millisecond)
	_, ok := c.Get("ttl")
	require.True(t, ok)

	mr.FastForward(200 * time.Millisecond)
	_, ok = c.Get("ttl")
	assert.False(t, ok)
}

func TestRedisCache_DefaultTTL(t *testing.T) {
	mr, c := setupMiniRedis(t)

	c.Set("k", "v", 0)
	assert.Equal(t, DefaultTTL, mr.TTL(DefaultKeyPrefix+"k"))
}

func TestRedisCache_Delete(t *testing.T) {
	_, c := setupMiniRedis(t)

	c.Set("k", "v", time.Minute)
	c.Delete("k")
	assert.False(t, Has(c, "k"))
}

func TestRedisCache_ClearLeavesForeignKeys(t *testing.T) {
	mr, c := setupMiniRedis(t)
	require.NoError(t, mr.Set("other:key", "keep"))

	c.Set("a", "1", time.Minute)
	c.Set("b", "2", time.Minute)
	assert.Equal(t, 2, c.Stats().CurrentSize)

	c.Clear()
	assert.Equal(t, 0, c.Stats().CurrentSize)
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisCache_ComplexData(t *testing.T) {
	_, c := setupMiniRedis(t)

	c.Set("complex", map[string]any{"name": "test", "count": 42, "items": []string{"a", "b"}}, time.Minute)

	val, ok := c.Get("complex")
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"name":  "test",
		"count": float64(42),
		"items": []any{"a", "b"},
	}, val)
}

func TestRedisCache_JSONHelpersMatchMemory(t *testing.T) {
	_, c := setupMiniRedis(t)
	type payload struct {
		Value string `json:"value"`
	}

	require.NoError(t, SetJSON(c, "p", payload{Value: "12345678"}, time.Minute))
	var out payload
	ok, err := GetJSON(c, "p", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "12345678", out.Value)
}

func TestRedisCache_HealthCheck(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, c.HealthCheck(ctx))
	mr.Close()
	assert.Error(t, c.HealthCheck(ctx))
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: mr.Addr(), KeyPrefix: "test:"}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	c.Set("k", "v", time.Minute)
	assert.True(t, mr.Exists("test:k"))

	_, err = NewRedisCache(context.Background(), RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	assert.ErrorContains(t, err, "redis connection failed")
}

func TestNew_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), Config{Backend: BackendRedis, Redis: RedisConfig{Addr: mr.Addr()}}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &RedisCache{}, c)
}

func TestRedisCache_ConcurrentAccess(t *testing.T) {
	_, c := setupMiniRedis(t)

	const workers, ops = 8, 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				c.Set("shared", id, time.Minute)
				c.Get("shared")
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(workers*ops), c.Stats().Sets)
}
