package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/repository"
	"lingua-telegram/internal/infra/logging"
)

// Compile-time check
var _ LinkUseCase = (*linkUC)(nil)

const maxCodeAttempts = 5

// LinkStatus is what the web tier shows on the account page.
type LinkStatus struct {
	Linked   bool       `json:"linked"`
	Username string     `json:"username,omitempty"`
	LinkedAt *time.Time `json:"linked_at,omitempty"`
}

// LinkUseCase binds platform users to Telegram chats through one-time codes.
type LinkUseCase interface {
	GenerateCode(ctx context.Context, userID string) (*model.LinkCode, error)
	VerifyCode(ctx context.Context, code string) (string, error)
	Bind(ctx context.Context, userID string, tgID int64, username string) (*model.Binding, error)
	// LinkWithCode verifies, binds and consumes the code in one transaction.
	LinkWithCode(ctx context.Context, code string, tgID int64, username string) (*model.Binding, error)
	Unbind(ctx context.Context, userID string) error
	UnbindTelegram(ctx context.Context, tgID int64) error
	Status(ctx context.Context, userID string) (LinkStatus, error)
	FindByTelegramID(ctx context.Context, tgID int64) (*model.Binding, error)
	FindByUserID(ctx context.Context, userID string) (*model.Binding, error)
	ListActive(ctx context.Context) ([]*model.Binding, error)
	PurgeExpiredCodes(ctx context.Context, now time.Time) (int64, error)
}

type linkUC struct {
	bindings repository.BindingRepository
	codes    repository.LinkCodeRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
	now      func() time.Time
}

func NewLinkUseCase(bindings repository.BindingRepository, codes repository.LinkCodeRepository, tm repository.TransactionManager, logger *zerolog.Logger) *linkUC {
	return &linkUC{
		bindings: bindings,
		codes:    codes,
		tm:       tm,
		log:      logger,
		now:      time.Now,
	}
}

func (u *linkUC) GenerateCode(ctx context.Context, userID string) (*model.LinkCode, error) {
	defer logging.TraceDuration(u.log, "LinkUC.GenerateCode")()
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}

	var code *model.LinkCode
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			existing, err := u.bindings.FindByUserID(ctx, tx, userID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if existing != nil && existing.IsActive {
				return domain.ErrAlreadyLinked
			}

			now := u.now().UTC()
			if _, err := u.codes.DeleteByUser(ctx, tx, userID); err != nil {
				return fmt.Errorf("evict codes: %w", err)
			}
			if _, err := u.codes.DeleteExpired(ctx, tx, now); err != nil {
				return fmt.Errorf("purge expired codes: %w", err)
			}

			c, err := model.NewLinkCode(userID, now)
			if err != nil {
				return err
			}
			if err := u.codes.Save(ctx, tx, c); err != nil {
				return err
			}
			code = c
			return nil
		})
		if err == nil {
			logging.With(ctx, u.log).Info().Str("user_id", userID).Time("expires_at", code.ExpiresAt).Msg("link code generated")
			return code, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		u.log.Debug().Int("attempt", attempt).Msg("link code collision, retrying")
	}
	return nil, fmt.Errorf("generate link code: %w", domain.ErrAlreadyExists)
}

func (u *linkUC) VerifyCode(ctx context.Context, code string) (string, error) {
	if !model.IsLinkCodeFormat(code) {
		return "", domain.ErrInvalidCode
	}
	c, err := u.codes.FindLive(ctx, repository.NoTX, code, u.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidCode
		}
		return "", err
	}
	return c.UserID, nil
}

func (u *linkUC) Bind(ctx context.Context, userID string, tgID int64, username string) (*model.Binding, error) {
	defer logging.TraceDuration(u.log, "LinkUC.Bind")()

	var out *model.Binding
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		b, err := u.bind(ctx, tx, userID, tgID, username)
		out = b
		return err
	})
	return out, err
}

func (u *linkUC) LinkWithCode(ctx context.Context, code string, tgID int64, username string) (*model.Binding, error) {
	defer logging.TraceDuration(u.log, "LinkUC.LinkWithCode")()
	if !model.IsLinkCodeFormat(code) {
		return nil, domain.ErrInvalidCode
	}

	var out *model.Binding
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.codes.FindLive(ctx, tx, code, u.now().UTC())
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInvalidCode
			}
			return err
		}
		b, err := u.bind(ctx, tx, c.UserID, tgID, username)
		out = b
		return err
	})
	if err != nil {
		return nil, err
	}
	logging.With(logging.WithTgID(ctx, tgID), u.log).Info().Str("user_id", out.UserID).Msg("telegram linked")
	return out, nil
}

// bind creates the binding and consumes the user's codes. The unique
// constraints decide races; the pre-check only gives a precise error.
func (u *linkUC) bind(ctx context.Context, tx repository.Tx, userID string, tgID int64, username string) (*model.Binding, error) {
	owner, err := u.bindings.FindByTelegramID(ctx, tx, tgID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if owner != nil {
		if owner.UserID == userID {
			return nil, domain.ErrAlreadyLinked
		}
		return nil, domain.ErrTelegramAlreadyBound
	}

	b, err := model.NewBinding(userID, tgID, username, u.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := u.bindings.Create(ctx, tx, b); err != nil {
		return nil, err
	}
	if _, err := u.codes.DeleteByUser(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("consume link code: %w", err)
	}
	return b, nil
}

func (u *linkUC) Unbind(ctx context.Context, userID string) error {
	defer logging.TraceDuration(u.log, "LinkUC.Unbind")()
	removed, err := u.bindings.DeleteByUserID(ctx, repository.NoTX, userID)
	if err != nil {
		return err
	}
	if removed {
		logging.With(ctx, u.log).Info().Str("user_id", userID).Msg("telegram unlinked")
	}
	return nil
}

func (u *linkUC) UnbindTelegram(ctx context.Context, tgID int64) error {
	defer logging.TraceDuration(u.log, "LinkUC.UnbindTelegram")()
	removed, err := u.bindings.DeleteByTelegramID(ctx, repository.NoTX, tgID)
	if err != nil {
		return err
	}
	if removed {
		logging.With(logging.WithTgID(ctx, tgID), u.log).Info().Msg("telegram unlinked from bot")
	}
	return nil
}

func (u *linkUC) Status(ctx context.Context, userID string) (LinkStatus, error) {
	b, err := u.bindings.FindByUserID(ctx, repository.NoTX, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return LinkStatus{}, nil
		}
		return LinkStatus{}, err
	}
	linkedAt := b.LinkedAt
	return LinkStatus{Linked: b.IsActive, Username: b.TelegramUsername, LinkedAt: &linkedAt}, nil
}

func (u *linkUC) FindByTelegramID(ctx context.Context, tgID int64) (*model.Binding, error) {
	return u.bindings.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *linkUC) FindByUserID(ctx context.Context, userID string) (*model.Binding, error) {
	return u.bindings.FindByUserID(ctx, repository.NoTX, userID)
}

func (u *linkUC) ListActive(ctx context.Context) ([]*model.Binding, error) {
	return u.bindings.ListActive(ctx, repository.NoTX)
}

// PurgeExpiredCodes drops codes nobody redeemed. GenerateCode already evicts
// them lazily; this catches users who never come back.
func (u *linkUC) PurgeExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	defer logging.TraceDuration(u.log, "LinkUC.PurgeExpiredCodes")()
	n, err := u.codes.DeleteExpired(ctx, repository.NoTX, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired codes: %w", err)
	}
	return n, nil
}
