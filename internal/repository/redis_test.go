package repository

import (
	"context"
	"testing"
	"time"

	"futmap/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKV(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	repo := NewRedisKV(client, time.Hour)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "futmap_user", `{"id":"user-1"}`))

		got, ok, err := repo.Get(ctx, "futmap_user")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"id":"user-1"}`, got)
		assert.Equal(t, time.Hour, s.TTL("futmap_user"))
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, ok, err := repo.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "futmap_auth", "true"))
		require.NoError(t, repo.Delete(ctx, "futmap_auth", "futmap_user"))
		assert.False(t, s.Exists("futmap_auth"))
		assert.False(t, s.Exists("futmap_user"))
		assert.NoError(t, repo.Delete(ctx))
	})

	t.Run("NoTTL", func(t *testing.T) {
		forever := NewRedisKV(client, 0)
		require.NoError(t, forever.Set(ctx, "k", "v"))
		assert.Equal(t, time.Duration(0), s.TTL("k"))
	})

	t.Run("ServerDown", func(t *testing.T) {
		down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
		defer down.Close()
		_, _, err := NewRedisKV(down, 0).Get(ctx, "k")
		assert.Error(t, err)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisKV(nil, 0)
		_, _, err := repo.Get(ctx, "k")
		assert.Error(t, err)
		assert.Error(t, repo.Set(ctx, "k", "v"))
		assert.Error(t, repo.Delete(ctx, "k"))
	})
}
