package repository

import (
	"context"

	"lingua-telegram/internal/domain/model"
)

// PlatformUserRepository is the read-only view of the platform's user table.
type PlatformUserRepository interface {
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.PlatformUser, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.PlatformUser, error)
}
