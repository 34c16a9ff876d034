package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lingua-telegram/internal/application"
	"lingua-telegram/internal/domain/ports/adapter"
	"lingua-telegram/internal/infra/logging"
	"lingua-telegram/internal/infra/ratelimit"
)

// UpdateHandler consumes one incoming update. Both ingestors feed one.
type UpdateHandler interface {
	Handle(ctx context.Context, u tgbotapi.Update) error
}

// Dispatcher routes updates to the bot facade and delivers its replies.
// It keeps no per-chat state; everything lives on the binding row.
type Dispatcher struct {
	facade    application.BotFacadeIface
	bot       adapter.TelegramBotAdapter
	commands  ratelimit.Limiter
	callbacks ratelimit.Limiter
	log       *zerolog.Logger
}

var _ UpdateHandler = (*Dispatcher)(nil)

func NewDispatcher(
	facade application.BotFacadeIface,
	bot adapter.TelegramBotAdapter,
	commands ratelimit.Limiter,
	callbacks ratelimit.Limiter,
	logger *zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		facade:    facade,
		bot:       bot,
		commands:  commands,
		callbacks: callbacks,
		log:       logging.Component(logger, "telegram.dispatcher"),
	}
}

// Handle routes a callback query first, then a message. Other update kinds
// are ignored.
func (d *Dispatcher) Handle(ctx context.Context, u tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	switch {
	case u.CallbackQuery != nil:
		return d.handleQuery(ctx, u.CallbackQuery)
	case u.Message != nil:
		return d.handleMessage(ctx, u.Message)
	}
	return nil
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return nil
	}
	ctx = logging.WithTgID(ctx, msg.From.ID)

	handler, name, ok := d.route(msg)
	if !ok {
		return nil
	}

	if !d.commands.Allow(ctx, subject(msg.From.ID)) {
		return d.send(ctx, msg.Chat.ID, d.facade.RateLimited(ctx))
	}

	reply, err := handler(ctx, msg)
	if err != nil {
		logging.With(ctx, d.log).Error().Err(err).Str("command", name).Msg("command failed")
	}
	if reply.Empty() {
		return nil
	}
	return d.send(ctx, msg.Chat.ID, reply)
}

func (d *Dispatcher) handleQuery(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.From == nil {
		return nil
	}
	ctx = logging.WithTgID(ctx, q.From.ID)

	chatID := q.From.ID
	if q.Message != nil && q.Message.Chat != nil {
		if !q.Message.Chat.IsPrivate() {
			return d.bot.AnswerCallback(ctx, q.ID, "")
		}
		chatID = q.Message.Chat.ID
	}

	if !d.callbacks.Allow(ctx, subject(q.From.ID)) {
		return d.bot.AnswerCallback(ctx, q.ID, d.facade.RateLimited(ctx).Text)
	}

	fn := d.callbackRoute(q.Data)
	if fn == nil {
		// unknown data: dismiss the spinner, nothing else
		return d.bot.AnswerCallback(ctx, q.ID, "")
	}

	reply, err := fn(ctx, q)
	if err != nil {
		logging.With(ctx, d.log).Error().Err(err).Str("data", q.Data).Msg("callback failed")
	}

	if err := d.bot.AnswerCallback(ctx, q.ID, reply.Toast); err != nil {
		logging.With(ctx, d.log).Warn().Err(err).Msg("answer callback")
	}
	if reply.Empty() {
		return nil
	}
	if reply.Edit && q.Message != nil {
		return d.bot.EditMessage(ctx, chatID, q.Message.MessageID, reply.Text, reply.Keyboard)
	}
	return d.send(ctx, chatID, reply)
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, r application.Reply) error {
	return d.bot.SendMessage(ctx, chatID, r.Text, r.Keyboard)
}

func subject(tgID int64) string { return strconv.FormatInt(tgID, 10) }
