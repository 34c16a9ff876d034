package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"lingua-telegram/internal/domain/ports/adapter"
	"lingua-telegram/internal/infra/logging"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements adapter.TelegramBotAdapter for dry runs.
// It logs messages instead of sending real Telegram messages.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	return &NoopBotAdapter{log: logging.Component(logger, "telegram.noop")}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, chatID int64, text string, kb adapter.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("chat_id", chatID).Str("text", text).Int("keyboard_rows", len(kb)).Msg("send message")
	return nil
}

func (b *NoopBotAdapter) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb adapter.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("chat_id", chatID).Int("message_id", messageID).Str("text", text).Int("keyboard_rows", len(kb)).Msg("edit message")
	return nil
}

func (b *NoopBotAdapter) AnswerCallback(ctx context.Context, callbackID, toast string) error {
	b.log.Debug().Str("callback_id", callbackID).Str("toast", toast).Msg("answer callback")
	return nil
}

func (b *NoopBotAdapter) SetCommands(ctx context.Context, cmds []adapter.BotCommand) error {
	b.log.Info().Int("count", len(cmds)).Msg("set commands")
	return nil
}

func (b *NoopBotAdapter) InstallWebhook(ctx context.Context, url, secret string) error {
	b.log.Info().Str("url", url).Bool("secret", secret != "").Msg("install webhook")
	return nil
}

func (b *NoopBotAdapter) DeleteWebhook(ctx context.Context) error {
	b.log.Info().Msg("delete webhook")
	return nil
}
