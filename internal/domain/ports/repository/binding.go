package repository

import (
	"context"

	"lingua-telegram/internal/domain/model"
)

// BindingRepository persists user <-> Telegram chat links. Finders lock the
// row (FOR UPDATE) when called with a transaction.
type BindingRepository interface {
	// Create maps a unique violation on telegram_id to ErrTelegramAlreadyBound
	// and on user_id to ErrAlreadyLinked.
	Create(ctx context.Context, tx Tx, b *model.Binding) error
	Update(ctx context.Context, tx Tx, b *model.Binding) error
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Binding, error)
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.Binding, error)
	DeleteByUserID(ctx context.Context, tx Tx, userID string) (bool, error)
	DeleteByTelegramID(ctx context.Context, tx Tx, tgID int64) (bool, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Binding, error)
}
