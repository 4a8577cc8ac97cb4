package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestMemoryEvictsInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2, time.Minute)

	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "b", []byte("2"), 0)

	// Reading "a" must not protect it from eviction.
	_, ok := c.Get(ctx, "a")
	require.True(t, ok)

	c.Set(ctx, "c", []byte("3"), 0)

	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), v)
	assert.Equal(t, 2, c.Len())
}

func TestMemoryExpiresEntries(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemory(10, 30*time.Minute)
	c.now = clock.now

	c.Set(ctx, "default", []byte("x"), 0)
	c.Set(ctx, "short", []byte("y"), time.Minute)

	clock.advance(2 * time.Minute)
	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "default")
	assert.True(t, ok)

	clock.advance(30 * time.Minute)
	_, ok = c.Get(ctx, "default")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryOverwriteAndPurge(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2, time.Minute)

	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "a", []byte("2"), 0)
	assert.Equal(t, 1, c.Len())

	v, _ := c.Get(ctx, "a")
	assert.Equal(t, []byte("2"), v)

	c.Delete(ctx, "a")
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Set(ctx, "b", []byte("3"), 0)
	c.Purge(ctx)
	assert.Equal(t, 0, c.Len())
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(4, time.Minute)

	SetJSON(ctx, c, "vec", []float32{0.5, 0.25}, 0)

	var got []float32
	require.True(t, GetJSON(ctx, c, "vec", &got))
	assert.Equal(t, []float32{0.5, 0.25}, got)

	assert.False(t, GetJSON(ctx, nil, "vec", &got))
	assert.False(t, GetJSON(ctx, c, "missing", &got))
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("rerank", "lexical", "q"), Key("rerank", "lexical", "q"))
	assert.NotEqual(t, Key("rerank", "lexical", "q"), Key("rerank", "cross-encoder", "q"))
	assert.NotEqual(t, Key("rerank", "ab", "c"), Key("rerank", "a", "bc"))
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	opts, err := redis.ParseURL("redis://" + mr.Addr())
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedis(client, "juriscite:", time.Minute, nil)
}

func TestRedisGetSetDelete(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)

	c.Set(ctx, "k", []byte("v"), 0)
	assert.True(t, mr.Exists("juriscite:k"))

	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	c.Delete(ctx, "k")
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisTTL(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)

	c.Set(ctx, "k", []byte("v"), 10*time.Second)
	mr.FastForward(11 * time.Second)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisPurgeOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)

	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "b", []byte("2"), 0)
	require.NoError(t, mr.Set("other:key", "x"))

	c.Purge(ctx)

	assert.False(t, mr.Exists("juriscite:a"))
	assert.False(t, mr.Exists("juriscite:b"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisUnavailableIsAMiss(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)
	mr.Close()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	c.Set(ctx, "k", []byte("v"), 0)
}
