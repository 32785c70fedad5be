package database

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"futmap/internal/domain"
	"futmap/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupFileDB(t *testing.T, path string) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(path, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	db := setupFileDB(t, dbPath)

	assert.FileExists(t, dbPath)
	assert.Equal(t, dbPath, db.Path())
}

func TestNewDB_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "futmap.db")
	logger := zerolog.New(io.Discard)

	first, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	require.NoError(t, first.KV().Set(context.Background(), "k", "v"))
	require.NoError(t, first.Close())

	second := setupFileDB(t, dbPath)
	val, ok, err := second.KV().Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)
}

func TestDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	db.Close()

	ctx := context.Background()

	t.Run("LoadFields", func(t *testing.T) {
		_, err := db.LoadFields(ctx)
		assert.Error(t, err)
	})

	t.Run("InsertBooking", func(t *testing.T) {
		assert.Error(t, db.InsertBooking(ctx, &models.Booking{ID: "b"}))
	})

	t.Run("KVSet", func(t *testing.T) {
		assert.Error(t, db.KV().Set(ctx, "k", "v"))
	})
}

func TestDB_CancelledContext(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := db.KV().Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	assert.Nil(t, classify("noop", nil))
}
