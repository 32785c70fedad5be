package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// KV exposes the kv table as a domain.KVStore.
func (db *DB) KV() *KVStore {
	return &KVStore{db: db}
}

// KVStore keeps session keys in SQLite so they survive restarts.
type KVStore struct {
	db *DB
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := psql.Select("value").From("kv").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", false, err
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("kv get", err)
	}
	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.exec(ctx, "kv set", psql.Insert("kv").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UTC()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at"))
	return err
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.exec(ctx, "kv delete", psql.Delete("kv").Where(sq.Eq{"key": keys}))
	return err
}
