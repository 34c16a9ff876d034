// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

// InlineButton carries either callback Data or a URL.
type InlineButton struct {
	Text string
	Data string
	URL  string
}

// Keyboard is an inline keyboard, row by row. A nil Keyboard sends no markup.
type Keyboard [][]InlineButton

type BotCommand struct {
	Command     string
	Description string
}

// TelegramBotAdapter is the outbound Bot API port. Text is HTML parse-mode.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, toast string) error
	SetCommands(ctx context.Context, cmds []BotCommand) error
	InstallWebhook(ctx context.Context, url, secret string) error
	DeleteWebhook(ctx context.Context) error
}
