package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	first, err := MarkOnce(ctx, rdb, "dedup:test:e1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := MarkOnce(ctx, rdb, "dedup:test:e1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	// after expiry the key is claimable again
	mr.FastForward(2 * time.Minute)
	later, err := MarkOnce(ctx, rdb, "dedup:test:e1", time.Minute)
	require.NoError(t, err)
	assert.True(t, later)
}

func TestExists(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	ok, err := Exists(ctx, rdb, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rdb.Set(ctx, "present", "1", 0).Err())
	ok, err = Exists(ctx, rdb, "present")
	require.NoError(t, err)
	assert.True(t, ok)
}
