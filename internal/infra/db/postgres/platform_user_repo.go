package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/repository"
)

var _ repository.PlatformUserRepository = (*platformUserRepo)(nil)

// platformUserRepo reads the platform's users table; it never writes.
type platformUserRepo struct{ pool *pgxpool.Pool }

func NewPlatformUserRepo(pool *pgxpool.Pool) *platformUserRepo {
	return &platformUserRepo{pool: pool}
}

const platformUserSelect = `SELECT id, username, display_name, password_hash, level FROM users`

func (r *platformUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.PlatformUser, error) {
	row, err := pickRow(ctx, r.pool, tx, platformUserSelect+` WHERE lower(username)=lower($1);`, username)
	if err != nil {
		return nil, err
	}
	return scanPlatformUser(row)
}

func (r *platformUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PlatformUser, error) {
	row, err := pickRow(ctx, r.pool, tx, platformUserSelect+` WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanPlatformUser(row)
}

func scanPlatformUser(row pgx.Row) (*model.PlatformUser, error) {
	var u model.PlatformUser
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Level); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &u, nil
}
