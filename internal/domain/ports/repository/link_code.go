package repository

import (
	"context"
	"time"

	"lingua-telegram/internal/domain/model"
)

// LinkCodeRepository is the port for one-time Telegram link codes.
type LinkCodeRepository interface {
	// Save fails with ErrAlreadyExists when the code collides with a live one.
	Save(ctx context.Context, tx Tx, c *model.LinkCode) error
	// FindLive returns ErrNotFound for unknown or expired codes.
	FindLive(ctx context.Context, tx Tx, code string, now time.Time) (*model.LinkCode, error)
	DeleteByUser(ctx context.Context, tx Tx, userID string) (int64, error)
	DeleteExpired(ctx context.Context, tx Tx, now time.Time) (int64, error)
}
