package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), NewRedisCacheConfig{Address: s.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, s
}

func TestRedisCache_GetSetDelete(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := NewRedisCache(context.Background(), NewRedisCacheConfig{Address: addr}, nil)
	assert.Error(t, err)
}

func TestFieldCache_RoundTrip(t *testing.T) {
	c, s := newTestRedisCache(t)
	fc := NewFieldCache(c, "trip_test", time.Hour, nil)
	ctx := context.Background()

	_, _, ok := fc.GetField(ctx, "members")
	assert.False(t, ok)

	members := []interface{}{map[string]interface{}{"id": "m1", "name": "Aino", "avatar": ""}}
	fc.PutField(ctx, "members", members, true)

	value, exists, ok := fc.GetField(ctx, "members")
	require.True(t, ok)
	assert.True(t, exists)
	assert.Equal(t, members, value)

	assert.True(t, s.Exists("nordictrip:trip_test:field:members"))
	assert.Equal(t, time.Hour, s.TTL("nordictrip:trip_test:field:members"))
}

func TestFieldCache_RemembersAbsentField(t *testing.T) {
	c, _ := newTestRedisCache(t)
	fc := NewFieldCache(c, "trip_test", 0, nil)
	ctx := context.Background()

	fc.PutField(ctx, "driveUrl", nil, false)
	value, exists, ok := fc.GetField(ctx, "driveUrl")
	assert.True(t, ok)
	assert.False(t, exists)
	assert.Nil(t, value)
}

func TestFieldCache_SwallowsErrors(t *testing.T) {
	c, s := newTestRedisCache(t)
	fc := NewFieldCache(c, "trip_test", time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, s.Set("nordictrip:trip_test:field:schedule", "{not json"))
	_, _, ok := fc.GetField(ctx, "schedule")
	assert.False(t, ok)

	s.Close()
	assert.NotPanics(t, func() { fc.PutField(ctx, "schedule", map[string]interface{}{}, true) })
	_, _, ok = fc.GetField(ctx, "schedule")
	assert.False(t, ok)
}
