package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lingua-telegram/internal/application"
	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/infra/metrics"
)

type cbHandler func(ctx context.Context, q *tgbotapi.CallbackQuery) (application.Reply, error)

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Prefix-match callbacks
func (d *Dispatcher) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: "set:", Fn: d.facadeCBRoute},
		{Prefix: "reflect:", Fn: d.facadeCBRoute},
	}
}

func (d *Dispatcher) callbackRoute(data string) cbHandler {
	data = strings.TrimSpace(data)
	for _, pr := range d.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			metrics.IncTelegramCallback(callbackAction(data))
			return pr.Fn
		}
	}
	metrics.IncTelegramCallback("unknown")
	return nil
}

// facadeCBRoute hands settings and reflection callbacks to the facade, which
// parses the data. Malformed data is dropped silently, like unknown prefixes.
func (d *Dispatcher) facadeCBRoute(ctx context.Context, q *tgbotapi.CallbackQuery) (application.Reply, error) {
	reply, err := d.facade.Callback(ctx, q.From.ID, strings.TrimSpace(q.Data))
	if errors.Is(err, domain.ErrInvalidArgument) {
		return application.Reply{}, nil
	}
	return reply, err
}

// callbackAction is the metrics label: "reflect" or the settings verb.
func callbackAction(data string) string {
	parts := strings.SplitN(data, ":", 3)
	if parts[0] == "set" && len(parts) > 1 {
		return parts[1]
	}
	return parts[0]
}
