package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/repository"
)

var _ repository.CredentialRepository = (*credentialRepo)(nil)

type credentialRepo struct{ pool *pgxpool.Pool }

func NewCredentialRepo(pool *pgxpool.Pool) *credentialRepo {
	return &credentialRepo{pool: pool}
}

const credentialColumns = `id, user_id, token, scope, created_at, expires_at, last_used_at, revoked_at, device_label, user_agent`

func (r *credentialRepo) Save(ctx context.Context, tx repository.Tx, c *model.Credential) error {
	const q = `
INSERT INTO telegram_credentials (` + credentialColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.UserID, c.Token, c.Scopes.String(), c.CreatedAt, c.ExpiresAt, c.LastUsedAt, c.RevokedAt, c.DeviceLabel, c.UserAgent)
	if err != nil {
		if isExecContextErr(err) {
			return err
		}
		if uniqueViolation(err) != "" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (r *credentialRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.Credential, error) {
	q := `SELECT ` + credentialColumns + ` FROM telegram_credentials WHERE token=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, token)
	if err != nil {
		return nil, err
	}
	return scanCredential(row)
}

func (r *credentialRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Credential, error) {
	q := `SELECT ` + credentialColumns + ` FROM telegram_credentials WHERE user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *credentialRepo) Revoke(ctx context.Context, tx repository.Tx, id, userID string, at time.Time) (bool, error) {
	const q = `UPDATE telegram_credentials SET revoked_at=$3 WHERE id=$1 AND user_id=$2 AND revoked_at IS NULL;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, userID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *credentialRepo) TouchLastUsed(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE telegram_credentials SET last_used_at=$2 WHERE id=$1 AND (last_used_at IS NULL OR last_used_at < $2);`
	_, err := execSQL(ctx, r.pool, tx, q, id, at)
	return err
}

func (r *credentialRepo) PurgeExpired(ctx context.Context, tx repository.Tx, before time.Time, unused time.Duration) (int64, error) {
	const q = `
DELETE FROM telegram_credentials
 WHERE expires_at < $1
   AND (revoked_at IS NOT NULL OR COALESCE(last_used_at, created_at) < $2);`
	tag, err := execSQL(ctx, r.pool, tx, q, before, before.Add(-unused))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanCredential(row pgx.Row) (*model.Credential, error) {
	var (
		c     model.Credential
		scope string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Token, &scope, &c.CreatedAt, &c.ExpiresAt, &c.LastUsedAt, &c.RevokedAt, &c.DeviceLabel, &c.UserAgent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	scopes, err := model.ParseScopes(scope)
	if err != nil {
		return nil, fmt.Errorf("credential %s: %w", c.ID, err)
	}
	c.Scopes = scopes
	return &c, nil
}
