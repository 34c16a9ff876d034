package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/repository"
	"lingua-telegram/internal/infra/logging"
)

// Compile-time check
var _ SettingsUseCase = (*settingsUC)(nil)

// SettingsUseCase mutates notification preferences. Every call is one
// transaction holding the binding row lock.
type SettingsUseCase interface {
	Get(ctx context.Context, tgID int64) (*model.Binding, error)
	Toggle(ctx context.Context, tgID int64, slot model.Slot) (*model.Binding, error)
	SetHour(ctx context.Context, tgID int64, slot model.Slot, hour int) (*model.Binding, error)
	SetTimezone(ctx context.Context, tgID int64, zone string) (*model.Binding, error)
	Reflect(ctx context.Context, tgID int64, r model.Reflection) (*model.Binding, error)
}

type settingsUC struct {
	bindings repository.BindingRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
	now      func() time.Time
}

func NewSettingsUseCase(bindings repository.BindingRepository, tm repository.TransactionManager, logger *zerolog.Logger) *settingsUC {
	return &settingsUC{bindings: bindings, tm: tm, log: logger, now: time.Now}
}

func (u *settingsUC) Get(ctx context.Context, tgID int64) (*model.Binding, error) {
	return u.bindings.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *settingsUC) Toggle(ctx context.Context, tgID int64, slot model.Slot) (*model.Binding, error) {
	defer logging.TraceDuration(u.log, "SettingsUC.Toggle")()
	return u.mutate(ctx, tgID, func(b *model.Binding) error {
		b.Toggle(slot)
		return nil
	})
}

func (u *settingsUC) SetHour(ctx context.Context, tgID int64, slot model.Slot, hour int) (*model.Binding, error) {
	defer logging.TraceDuration(u.log, "SettingsUC.SetHour")()
	return u.mutate(ctx, tgID, func(b *model.Binding) error {
		return b.SetHour(slot, hour)
	})
}

func (u *settingsUC) SetTimezone(ctx context.Context, tgID int64, zone string) (*model.Binding, error) {
	defer logging.TraceDuration(u.log, "SettingsUC.SetTimezone")()
	return u.mutate(ctx, tgID, func(b *model.Binding) error {
		return b.SetTimezone(zone)
	})
}

func (u *settingsUC) Reflect(ctx context.Context, tgID int64, r model.Reflection) (*model.Binding, error) {
	defer logging.TraceDuration(u.log, "SettingsUC.Reflect")()
	return u.mutate(ctx, tgID, func(b *model.Binding) error {
		b.Reflect(r, u.now().UTC())
		return nil
	})
}

func (u *settingsUC) mutate(ctx context.Context, tgID int64, fn func(b *model.Binding) error) (*model.Binding, error) {
	var out *model.Binding
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		b, err := u.bindings.FindByTelegramID(ctx, tx, tgID)
		if err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
		if err := u.bindings.Update(ctx, tx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}
