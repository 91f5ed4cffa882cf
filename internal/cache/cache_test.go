package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	t.Run("should return a miss for unknown keys", func(t *testing.T) {
		_, err := m.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("should expire entries", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
		v, err := m.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", v)

		now = now.Add(2 * time.Minute)
		_, err = m.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("should count within a window", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			n, err := m.Incr(ctx, "counter", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}
		now = now.Add(time.Hour)
		n, err := m.Incr(ctx, "counter", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("should delete keys", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "gone", "v", 0))
		require.NoError(t, m.Delete(ctx, "gone"))
		require.NoError(t, m.Delete(ctx, "never-set"))
		_, err := m.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrMiss)
	})
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	t.Run("should drop expired counters that are never read again", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			_, err := m.Incr(ctx, "rate_limit:"+uuid.NewString(), time.Hour)
			require.NoError(t, err)
		}
		require.NoError(t, m.Set(ctx, "forever", "v", 0))
		assert.Equal(t, 101, m.Len())

		now = now.Add(2 * time.Hour)
		_, err := m.Incr(ctx, "rate_limit:fresh", time.Hour)
		require.NoError(t, err)

		assert.Equal(t, 2, m.Len())
		v, err := m.Get(ctx, "forever")
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	})

	t.Run("should not scan again within the sweep interval", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "short", "v", time.Second))
		now = now.Add(2 * time.Second)
		require.NoError(t, m.Set(ctx, "other", "v", 0))
		assert.Equal(t, 4, m.Len())

		now = now.Add(sweepInterval)
		require.NoError(t, m.Set(ctx, "other", "v", 0))
		assert.Equal(t, 3, m.Len())
	})
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type token struct {
		Value string `json:"value"`
	}
	require.NoError(t, SetJSON(ctx, m, "token", token{Value: "abc"}, 0))

	var got token
	require.NoError(t, GetJSON(ctx, m, "token", &got))
	assert.Equal(t, "abc", got.Value)

	require.NoError(t, m.Set(ctx, "broken", "{", 0))
	assert.Error(t, GetJSON(ctx, m, "broken", &got))
	assert.ErrorIs(t, GetJSON(ctx, m, "absent", &got), ErrMiss)
}

func TestRedisStore(t *testing.T) {
	if os.Getenv("REDIS_HOST") == "" {
		t.Skip("Skipping Redis-dependent test - REDIS_HOST not set")
	}

	client := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_HOST") + ":6379"})
	defer client.Close()

	ctx := context.Background()
	s := NewRedisStore(client, "test:"+uuid.NewString())

	_, err := s.Get(ctx, "nothing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	n, err := s.Incr(ctx, "hits", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStoreKeys(t *testing.T) {
	t.Run("should join the prefix with a single colon", func(t *testing.T) {
		assert.Equal(t, "pantryscout:kroger:token", NewRedisStore(nil, "pantryscout").key("kroger:token"))
		assert.Equal(t, "kroger:token", NewRedisStore(nil, "").key("kroger:token"))
	})
}
