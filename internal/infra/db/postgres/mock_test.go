//go:build !integration

package postgres

import (
	"context"
	"time"

	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/repository"
	red "lingua-telegram/internal/infra/redis"
)

// --- Mocks for cache decorator tests ---

// mockInnerBindingRepo embeds the interface; unset methods panic.
type mockInnerBindingRepo struct {
	repository.BindingRepository

	FindByTelegramIDFunc func(ctx context.Context, tx repository.Tx, tgID int64) (*model.Binding, error)
	FindByUserIDFunc     func(ctx context.Context, tx repository.Tx, userID string) (*model.Binding, error)
	UpdateFunc           func(ctx context.Context, tx repository.Tx, b *model.Binding) error
	DeleteByUserIDFunc   func(ctx context.Context, tx repository.Tx, userID string) (bool, error)
}

func (m *mockInnerBindingRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Binding, error) {
	return m.FindByTelegramIDFunc(ctx, tx, tgID)
}
func (m *mockInnerBindingRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Binding, error) {
	return m.FindByUserIDFunc(ctx, tx, userID)
}
func (m *mockInnerBindingRepo) Update(ctx context.Context, tx repository.Tx, b *model.Binding) error {
	return m.UpdateFunc(ctx, tx, b)
}
func (m *mockInnerBindingRepo) DeleteByUserID(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	return m.DeleteByUserIDFunc(ctx, tx, userID)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return 0, nil
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) Close() error { return nil }
