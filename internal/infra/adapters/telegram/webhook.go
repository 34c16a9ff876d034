package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"lingua-telegram/internal/infra/logging"
	"lingua-telegram/internal/infra/metrics"
	"lingua-telegram/internal/infra/worker"
)

const (
	SecretHeader   = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes = 1 << 20
)

// Submitter queues work without blocking. worker.Pool implements it.
type Submitter interface {
	Submit(task worker.Task) error
}

// WebhookHandler ACKs Telegram as soon as the update is queued. A saturated
// queue answers 503 and Telegram redelivers later.
type WebhookHandler struct {
	secret  string
	handler UpdateHandler
	pool    Submitter
	log     *zerolog.Logger
}

func NewWebhookHandler(secret string, handler UpdateHandler, pool Submitter, logger *zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:  secret,
		handler: handler,
		pool:    pool,
		log:     logging.Component(logger, "telegram.webhook"),
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.secret)) != 1 {
		metrics.IncUpdate("webhook", "rejected")
		h.log.Warn().Str("remote", r.RemoteAddr).Msg("webhook secret mismatch")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var u tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&u); err != nil {
		metrics.IncUpdate("webhook", "rejected")
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}

	err := h.pool.Submit(func(ctx context.Context) error {
		if err := h.handler.Handle(ctx, u); err != nil {
			metrics.IncUpdate("webhook", "failed")
			return err
		}
		return nil
	})
	switch {
	case err == nil:
		metrics.IncUpdate("webhook", "dispatched")
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrStopped):
		metrics.IncUpdate("webhook", "dropped")
		h.log.Warn().Err(err).Int("update_id", u.UpdateID).Msg("webhook update not queued")
		w.Header().Set("Retry-After", "5")
		http.Error(w, "busy", http.StatusServiceUnavailable)
	default:
		h.log.Error().Err(err).Msg("queue webhook update")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
