package repository

import (
	"context"
	"sync"
)

// MemoryKV is a process-local key-value store.
type MemoryKV struct {
	values sync.Map
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{}
}

func (r *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, ok := r.values.Load(key)
	if !ok {
		return "", false, nil
	}
	return val.(string), true, nil
}

func (r *MemoryKV) Set(ctx context.Context, key, value string) error {
	r.values.Store(key, value)
	return nil
}

func (r *MemoryKV) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		r.values.Delete(k)
	}
	return nil
}
