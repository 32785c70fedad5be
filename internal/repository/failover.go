package repository

import (
	"context"
	"sync/atomic"
	"time"

	"futmap/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverKV routes calls to primary until it fails, then to fallback,
// probing primary again once per recoveryInterval.
type FailoverKV struct {
	primary   domain.KVStore
	fallback  domain.KVStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverKV(primary, fallback domain.KVStore, logger *zerolog.Logger) *FailoverKV {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverKV{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverKV) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	return r.now().Sub(last) > recoveryInterval
}

func (r *FailoverKV) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary kv store failed, falling back")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverKV) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary kv store recovered")
	}
}

func (r *FailoverKV) Get(ctx context.Context, key string) (string, bool, error) {
	if r.usePrimary() {
		val, ok, err := r.primary.Get(ctx, key)
		if err == nil {
			r.markUp()
			return val, ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.Get(ctx, key)
}

func (r *FailoverKV) Set(ctx context.Context, key, value string) error {
	if r.usePrimary() {
		err := r.primary.Set(ctx, key, value)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Set(ctx, key, value)
}

func (r *FailoverKV) Delete(ctx context.Context, keys ...string) error {
	if r.usePrimary() {
		err := r.primary.Delete(ctx, keys...)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Delete(ctx, keys...)
}
