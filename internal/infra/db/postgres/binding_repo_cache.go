package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/repository"
	"lingua-telegram/internal/infra/metrics"
	red "lingua-telegram/internal/infra/redis"
)

var _ repository.BindingRepository = (*bindingRepoCacheDecorator)(nil)

// bindingRepoCacheDecorator caches the chat -> binding lookup that every
// incoming update performs. Only non-transactional reads are served from
// the cache; locking reads always go to the database.
type bindingRepoCacheDecorator struct {
	inner repository.BindingRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewBindingRepoCacheDecorator(inner repository.BindingRepository, cache red.RedisClient, ttl time.Duration) repository.BindingRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &bindingRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func tgKey(tgID int64) string { return fmt.Sprintf("binding:tgid:%d", tgID) }

func (d *bindingRepoCacheDecorator) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Binding, error) {
	if tx != repository.NoTX {
		metrics.IncCacheRequest("binding", "bypass")
		return d.inner.FindByTelegramID(ctx, tx, tgID)
	}

	key := tgKey(tgID)
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		var b model.Binding
		if json.Unmarshal([]byte(val), &b) == nil {
			metrics.IncCacheRequest("binding", "hit")
			return &b, nil
		}
	case !errors.Is(err, redis.Nil):
		metrics.IncCacheRequest("binding", "error")
	}

	metrics.IncCacheRequest("binding", "miss")
	b, err := d.inner.FindByTelegramID(ctx, tx, tgID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(b); err == nil {
		_ = d.cache.Set(ctx, key, raw, d.ttl)
	}
	return b, nil
}

func (d *bindingRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, b *model.Binding) error {
	_ = d.cache.Del(ctx, tgKey(b.TelegramID))
	return d.inner.Create(ctx, tx, b)
}

func (d *bindingRepoCacheDecorator) Update(ctx context.Context, tx repository.Tx, b *model.Binding) error {
	if err := d.inner.Update(ctx, tx, b); err != nil {
		return err
	}
	_ = d.cache.Del(ctx, tgKey(b.TelegramID))
	return nil
}

func (d *bindingRepoCacheDecorator) DeleteByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (bool, error) {
	ok, err := d.inner.DeleteByTelegramID(ctx, tx, tgID)
	_ = d.cache.Del(ctx, tgKey(tgID))
	return ok, err
}

// DeleteByUserID needs the chat id to find the cache key.
func (d *bindingRepoCacheDecorator) DeleteByUserID(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	b, err := d.inner.FindByUserID(ctx, tx, userID)
	if err == nil {
		defer func() { _ = d.cache.Del(ctx, tgKey(b.TelegramID)) }()
	}
	return d.inner.DeleteByUserID(ctx, tx, userID)
}

func (d *bindingRepoCacheDecorator) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Binding, error) {
	return d.inner.FindByUserID(ctx, tx, userID)
}

func (d *bindingRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Binding, error) {
	return d.inner.ListActive(ctx, tx)
}
