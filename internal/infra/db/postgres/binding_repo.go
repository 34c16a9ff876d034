package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/repository"
)

var _ repository.BindingRepository = (*bindingRepo)(nil)

type bindingRepo struct{ pool *pgxpool.Pool }

func NewBindingRepo(pool *pgxpool.Pool) *bindingRepo {
	return &bindingRepo{pool: pool}
}

const bindingColumns = `id, user_id, telegram_id, telegram_username, timezone, linked_at, is_active,
  morning_enabled, midday_enabled, evening_enabled, streak_enabled,
  morning_hour, midday_hour, evening_hour, streak_hour,
  last_reflection, last_reflection_at`

func (r *bindingRepo) Create(ctx context.Context, tx repository.Tx, b *model.Binding) error {
	const q = `
INSERT INTO telegram_bindings (` + bindingColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17);`
	_, err := execSQL(ctx, r.pool, tx, q,
		b.ID, b.UserID, b.TelegramID, b.TelegramUsername, b.Timezone, b.LinkedAt, b.IsActive,
		b.MorningEnabled, b.MiddayEnabled, b.EveningEnabled, b.StreakEnabled,
		b.MorningHour, b.MiddayHour, b.EveningHour, b.StreakHour,
		reflectionArg(b.LastReflection), b.LastReflectionAt)
	if err != nil {
		if isExecContextErr(err) {
			return err
		}
		switch uniqueViolation(err) {
		case "":
			return fmt.Errorf("create binding: %w", err)
		case "telegram_bindings_user_key":
			return domain.ErrAlreadyLinked
		default:
			return domain.ErrTelegramAlreadyBound
		}
	}
	return nil
}

func (r *bindingRepo) Update(ctx context.Context, tx repository.Tx, b *model.Binding) error {
	const q = `
UPDATE telegram_bindings SET
  telegram_username=$2, timezone=$3, is_active=$4,
  morning_enabled=$5, midday_enabled=$6, evening_enabled=$7, streak_enabled=$8,
  morning_hour=$9, midday_hour=$10, evening_hour=$11, streak_hour=$12,
  last_reflection=$13, last_reflection_at=$14
WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		b.ID, b.TelegramUsername, b.Timezone, b.IsActive,
		b.MorningEnabled, b.MiddayEnabled, b.EveningEnabled, b.StreakEnabled,
		b.MorningHour, b.MiddayHour, b.EveningHour, b.StreakHour,
		reflectionArg(b.LastReflection), b.LastReflectionAt)
	if err != nil {
		if isExecContextErr(err) {
			return err
		}
		return fmt.Errorf("update binding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *bindingRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Binding, error) {
	q := forUpdate(`SELECT `+bindingColumns+` FROM telegram_bindings WHERE user_id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanBinding(row)
}

func (r *bindingRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Binding, error) {
	q := forUpdate(`SELECT `+bindingColumns+` FROM telegram_bindings WHERE telegram_id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, tgID)
	if err != nil {
		return nil, err
	}
	return scanBinding(row)
}

func (r *bindingRepo) DeleteByUserID(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM telegram_bindings WHERE user_id=$1;`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *bindingRepo) DeleteByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM telegram_bindings WHERE telegram_id=$1;`, tgID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *bindingRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Binding, error) {
	q := `SELECT ` + bindingColumns + ` FROM telegram_bindings WHERE is_active ORDER BY linked_at;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBinding(row pgx.Row) (*model.Binding, error) {
	var (
		b          model.Binding
		reflection *string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.TelegramID, &b.TelegramUsername, &b.Timezone, &b.LinkedAt, &b.IsActive,
		&b.MorningEnabled, &b.MiddayEnabled, &b.EveningEnabled, &b.StreakEnabled,
		&b.MorningHour, &b.MiddayHour, &b.EveningHour, &b.StreakHour,
		&reflection, &b.LastReflectionAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if reflection != nil {
		if v, ok := model.ParseReflection(*reflection); ok {
			b.LastReflection = &v
		}
	}
	return &b, nil
}

func reflectionArg(r *model.Reflection) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}
