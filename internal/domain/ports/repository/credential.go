package repository

import (
	"context"
	"time"

	"lingua-telegram/internal/domain/model"
)

// CredentialRepository persists bot API credentials.
type CredentialRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Credential) error
	FindByToken(ctx context.Context, tx Tx, token string) (*model.Credential, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Credential, error)
	// Revoke stamps revoked_at only if it is still NULL and reports whether a row changed.
	Revoke(ctx context.Context, tx Tx, id, userID string, at time.Time) (bool, error)
	TouchLastUsed(ctx context.Context, tx Tx, id string, at time.Time) error
	// PurgeExpired deletes credentials expired before `before` that are revoked
	// or have not been used since before-unused.
	PurgeExpired(ctx context.Context, tx Tx, before time.Time, unused time.Duration) (int64, error)
}
