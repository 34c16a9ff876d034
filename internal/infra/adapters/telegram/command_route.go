package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lingua-telegram/internal/application"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, msg *tgbotapi.Message) (application.Reply, error)

// commandRoutes defines all available bot commands and their handlers.
func (d *Dispatcher) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":    d.handleStart,
		"help":     d.handleHelp,
		"link":     d.handleLink,
		"unlink":   d.handleUnlink,
		"settings": d.handleSettings,
		"stats":    d.handleStats,
	}
}

// route picks the handler for a message. A bare six-digit code counts as
// "/link <code>"; any other plain text is ignored.
func (d *Dispatcher) route(msg *tgbotapi.Message) (commandHandler, string, bool) {
	if !msg.IsCommand() {
		if model.IsLinkCodeFormat(strings.TrimSpace(msg.Text)) {
			metrics.IncTelegramCommand("link")
			return d.handleBareCode, "link", true
		}
		return nil, "", false
	}

	name := strings.ToLower(msg.Command())
	if h, ok := d.commandRoutes()[name]; ok {
		metrics.IncTelegramCommand(name)
		return h, name, true
	}
	metrics.IncTelegramCommand("unknown")
	return func(ctx context.Context, _ *tgbotapi.Message) (application.Reply, error) {
		return d.facade.UnknownCommand(ctx)
	}, "unknown", true
}

func (d *Dispatcher) handleStart(ctx context.Context, msg *tgbotapi.Message) (application.Reply, error) {
	return d.facade.Start(ctx, msg.From.ID)
}

func (d *Dispatcher) handleHelp(ctx context.Context, _ *tgbotapi.Message) (application.Reply, error) {
	return d.facade.Help(ctx)
}

func (d *Dispatcher) handleLink(ctx context.Context, msg *tgbotapi.Message) (application.Reply, error) {
	return d.facade.Link(ctx, msg.From.ID, msg.From.UserName, msg.CommandArguments())
}

func (d *Dispatcher) handleBareCode(ctx context.Context, msg *tgbotapi.Message) (application.Reply, error) {
	return d.facade.Link(ctx, msg.From.ID, msg.From.UserName, msg.Text)
}

func (d *Dispatcher) handleUnlink(ctx context.Context, msg *tgbotapi.Message) (application.Reply, error) {
	return d.facade.Unlink(ctx, msg.From.ID)
}

func (d *Dispatcher) handleSettings(ctx context.Context, msg *tgbotapi.Message) (application.Reply, error) {
	return d.facade.Settings(ctx, msg.From.ID)
}

func (d *Dispatcher) handleStats(ctx context.Context, msg *tgbotapi.Message) (application.Reply, error) {
	return d.facade.Stats(ctx, msg.From.ID)
}
