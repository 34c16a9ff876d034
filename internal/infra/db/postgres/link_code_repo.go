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

var _ repository.LinkCodeRepository = (*linkCodeRepo)(nil)

type linkCodeRepo struct{ pool *pgxpool.Pool }

func NewLinkCodeRepo(pool *pgxpool.Pool) *linkCodeRepo {
	return &linkCodeRepo{pool: pool}
}

func (r *linkCodeRepo) Save(ctx context.Context, tx repository.Tx, c *model.LinkCode) error {
	const q = `INSERT INTO telegram_link_codes (id, user_id, code, expires_at, created_at) VALUES ($1,$2,$3,$4,$5);`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.UserID, c.Code, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		if isExecContextErr(err) {
			return err
		}
		if uniqueViolation(err) != "" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save link code: %w", err)
	}
	return nil
}

func (r *linkCodeRepo) FindLive(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.LinkCode, error) {
	q := forUpdate(`SELECT id, user_id, code, expires_at, created_at FROM telegram_link_codes WHERE code=$1 AND expires_at > $2`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, code, now)
	if err != nil {
		return nil, err
	}
	var c model.LinkCode
	if err := row.Scan(&c.ID, &c.UserID, &c.Code, &c.ExpiresAt, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &c, nil
}

func (r *linkCodeRepo) DeleteByUser(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM telegram_link_codes WHERE user_id=$1;`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *linkCodeRepo) DeleteExpired(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM telegram_link_codes WHERE expires_at <= $1;`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
