package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStore(t *testing.T) {
	kv := setupTestDB(t).KV()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "futmap_auth")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "futmap_auth", "true"))
	require.NoError(t, kv.Set(ctx, "futmap_user", `{"id":"user-1"}`))
	require.NoError(t, kv.Set(ctx, "futmap_user", `{"id":"user-2"}`))

	val, ok, err := kv.Get(ctx, "futmap_user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"user-2"}`, val)

	require.NoError(t, kv.Delete(ctx, "futmap_auth", "futmap_user"))
	_, ok, _ = kv.Get(ctx, "futmap_auth")
	assert.False(t, ok)
	_, ok, _ = kv.Get(ctx, "futmap_user")
	assert.False(t, ok)

	assert.NoError(t, kv.Delete(ctx))
}
