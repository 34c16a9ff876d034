package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/adapter"
	"lingua-telegram/internal/usecase"
)

var _ BotFacadeIface = (*BotFacade)(nil)

// BotFacade composes usecases into bot commands and settings callbacks.
// It never talks to Telegram; the dispatcher forwards the returned Reply.
type BotFacade struct {
	LinkUC     usecase.LinkUseCase
	SettingsUC usecase.SettingsUseCase
	ActivityUC usecase.ActivityUseCase
	Fmt        *Formatter

	now func() time.Time
}

func NewBotFacade(
	linkUC usecase.LinkUseCase,
	settingsUC usecase.SettingsUseCase,
	activityUC usecase.ActivityUseCase,
	f *Formatter,
) *BotFacade {
	return &BotFacade{
		LinkUC:     linkUC,
		SettingsUC: settingsUC,
		ActivityUC: activityUC,
		Fmt:        f,
		now:        time.Now,
	}
}

func (b *BotFacade) text(key string, args ...interface{}) Reply {
	return Reply{Text: b.Fmt.T(key, args...)}
}

// binding resolves the caller. A nil binding comes with a ready reply for an
// unlinked chat or a failed lookup.
func (b *BotFacade) binding(ctx context.Context, tgID int64) (*model.Binding, Reply, error) {
	bnd, err := b.LinkUC.FindByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, b.text("not_linked"), nil
		}
		return nil, b.text("error.generic"), fmt.Errorf("find binding: %w", err)
	}
	return bnd, Reply{}, nil
}

func (b *BotFacade) Start(ctx context.Context, tgID int64) (Reply, error) {
	bnd, err := b.LinkUC.FindByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			text, kb := b.Fmt.Welcome()
			return Reply{Text: text, Keyboard: kb}, nil
		}
		return b.text("error.generic"), err
	}
	learner, err := b.ActivityUC.Learner(ctx, bnd.UserID)
	if err != nil {
		return b.text("error.generic"), fmt.Errorf("learner: %w", err)
	}
	return Reply{Text: b.Fmt.WelcomeBack(learner.DisplayName)}, nil
}

func (b *BotFacade) Help(ctx context.Context) (Reply, error) {
	return b.text("help.text"), nil
}

func (b *BotFacade) UnknownCommand(ctx context.Context) (Reply, error) {
	return b.text("unknown_command"), nil
}

func (b *BotFacade) RateLimited(ctx context.Context) Reply {
	return b.text("rate_limited")
}

func (b *BotFacade) Commands() []adapter.BotCommand { return b.Fmt.Commands() }

// Link handles "/link <code>".
func (b *BotFacade) Link(ctx context.Context, tgID int64, username, args string) (Reply, error) {
	code := strings.TrimSpace(args)
	if code == "" {
		return b.text("link.usage"), nil
	}
	bnd, err := b.LinkUC.LinkWithCode(ctx, code, tgID, username)
	switch {
	case err == nil:
		return Reply{Text: b.Fmt.LinkSuccess(bnd)}, nil
	case errors.Is(err, domain.ErrInvalidCode):
		return b.text("link.invalid_code"), nil
	case errors.Is(err, domain.ErrTelegramAlreadyBound):
		return b.text("link.telegram_taken"), nil
	case errors.Is(err, domain.ErrAlreadyLinked):
		return b.text("link.already_linked"), nil
	case errors.Is(err, domain.ErrNotFound):
		return b.text("link.account_not_found"), nil
	}
	return b.text("error.generic"), err
}

func (b *BotFacade) Unlink(ctx context.Context, tgID int64) (Reply, error) {
	if _, reply, err := b.binding(ctx, tgID); !reply.Empty() {
		return reply, err
	}
	if err := b.LinkUC.UnbindTelegram(ctx, tgID); err != nil {
		return b.text("error.generic"), err
	}
	return b.text("unlink.done"), nil
}

func (b *BotFacade) Settings(ctx context.Context, tgID int64) (Reply, error) {
	bnd, reply, err := b.binding(ctx, tgID)
	if bnd == nil {
		return reply, err
	}
	text, kb := b.Fmt.Settings(bnd)
	return Reply{Text: text, Keyboard: kb}, nil
}

func (b *BotFacade) Stats(ctx context.Context, tgID int64) (Reply, error) {
	bnd, reply, err := b.binding(ctx, tgID)
	if bnd == nil {
		return reply, err
	}
	st, err := b.ActivityUC.Stats(ctx, bnd.UserID, b.now().In(bnd.Location()))
	if err != nil {
		return b.text("error.generic"), fmt.Errorf("stats: %w", err)
	}
	return Reply{Text: b.Fmt.Stats(st)}, nil
}

// Callback applies one inline-button action. Settings actions edit the
// settings message in place; reflections only answer with a toast.
func (b *BotFacade) Callback(ctx context.Context, tgID int64, data string) (Reply, error) {
	action, ok := model.ParseCallback(data)
	if !ok {
		return Reply{Toast: b.Fmt.T("error.generic")}, fmt.Errorf("callback %q: %w", data, domain.ErrInvalidArgument)
	}

	var (
		bnd *model.Binding
		err error
	)
	switch action.Kind {
	case model.CallbackReflect:
		if _, err = b.SettingsUC.Reflect(ctx, tgID, action.Reflection); err != nil {
			return b.callbackError(err)
		}
		return Reply{Toast: b.Fmt.T("reflect.thanks")}, nil

	case model.CallbackPickTime:
		if bnd, err = b.SettingsUC.Get(ctx, tgID); err != nil {
			return b.callbackError(err)
		}
		text, kb := b.Fmt.TimePicker(bnd, action.Slot)
		return Reply{Text: text, Keyboard: kb, Edit: true}, nil

	case model.CallbackPickTz:
		if bnd, err = b.SettingsUC.Get(ctx, tgID); err != nil {
			return b.callbackError(err)
		}
		text, kb := b.Fmt.TzPicker(bnd)
		return Reply{Text: text, Keyboard: kb, Edit: true}, nil

	case model.CallbackBack:
		bnd, err = b.SettingsUC.Get(ctx, tgID)
	case model.CallbackToggle:
		bnd, err = b.SettingsUC.Toggle(ctx, tgID, action.Slot)
	case model.CallbackSetTime:
		bnd, err = b.SettingsUC.SetHour(ctx, tgID, action.Slot, action.Hour)
	case model.CallbackSetTz:
		bnd, err = b.SettingsUC.SetTimezone(ctx, tgID, action.Zone)
	default:
		return Reply{Toast: b.Fmt.T("error.generic")}, domain.ErrInvalidArgument
	}
	if err != nil {
		return b.callbackError(err)
	}

	text, kb := b.Fmt.Settings(bnd)
	reply := Reply{Text: text, Keyboard: kb, Edit: true}
	if action.Kind != model.CallbackBack {
		reply.Toast = b.Fmt.T("settings.saved")
	}
	return reply, nil
}

func (b *BotFacade) callbackError(err error) (Reply, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return Reply{Toast: b.Fmt.T("not_linked")}, nil
	}
	return Reply{Toast: b.Fmt.T("error.generic")}, err
}
