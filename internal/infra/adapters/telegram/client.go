// File: internal/infra/adapters/telegram/client.go
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"lingua-telegram/internal/config"
	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/ports/adapter"
	"lingua-telegram/internal/infra/logging"
	"lingua-telegram/internal/infra/metrics"
)

const (
	requestTimeout = 10 * time.Second
	maxAttempts    = 3
	maxLoggedBody  = 512
	parseModeHTML  = "HTML"
)

var _ adapter.TelegramBotAdapter = (*Client)(nil)

// APIError is a non-2xx or ok=false answer from the Bot API. It is never
// retried.
type APIError struct {
	Method      string
	Status      int
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

func (e *APIError) Unwrap() error { return domain.ErrTransport }

// Client talks to the Bot API with JSON bodies. The bot token lives only in
// the request URL, which is never logged.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	log      *zerolog.Logger
	backoff  time.Duration
}

func NewClient(cfg config.BotConfig, logger *zerolog.Logger) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.APIEndpoint, "/"),
		token:    cfg.Token,
		// per-call deadlines come from the request context
		http:    &http.Client{},
		log:     logging.Component(logger, "telegram.client"),
		backoff: 500 * time.Millisecond,
	}
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb adapter.Keyboard) error {
	params := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               parseModeHTML,
		"disable_web_page_preview": true,
	}
	if markup := toMarkup(kb); markup != nil {
		params["reply_markup"] = markup
	}
	return c.call(ctx, "sendMessage", params, requestTimeout, nil)
}

func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb adapter.Keyboard) error {
	params := map[string]interface{}{
		"chat_id":                  chatID,
		"message_id":               messageID,
		"text":                     text,
		"parse_mode":               parseModeHTML,
		"disable_web_page_preview": true,
	}
	if markup := toMarkup(kb); markup != nil {
		params["reply_markup"] = markup
	}
	err := c.call(ctx, "editMessageText", params, requestTimeout, nil)
	// pressing the already-selected button re-renders identical content
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified") {
		return nil
	}
	return err
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, toast string) error {
	params := map[string]interface{}{"callback_query_id": callbackID}
	if toast != "" {
		params["text"] = toast
	}
	return c.call(ctx, "answerCallbackQuery", params, requestTimeout, nil)
}

func (c *Client) SetCommands(ctx context.Context, cmds []adapter.BotCommand) error {
	list := make([]tgbotapi.BotCommand, 0, len(cmds))
	for _, cmd := range cmds {
		list = append(list, tgbotapi.BotCommand{Command: cmd.Command, Description: cmd.Description})
	}
	return c.call(ctx, "setMyCommands", map[string]interface{}{"commands": list}, requestTimeout, nil)
}

func (c *Client) InstallWebhook(ctx context.Context, hookURL, secret string) error {
	params := map[string]interface{}{
		"url":             hookURL,
		"allowed_updates": []string{"message", "callback_query"},
	}
	if secret != "" {
		params["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", params, requestTimeout, nil)
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]interface{}{"drop_pending_updates": false}, requestTimeout, nil)
}

// GetUpdates long-polls for up to timeout. The HTTP deadline is the poll
// timeout plus the regular request budget.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]tgbotapi.Update, error) {
	params := map[string]interface{}{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []tgbotapi.Update
	if err := c.call(ctx, "getUpdates", params, timeout+requestTimeout, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) call(ctx context.Context, method string, params interface{}, timeout time.Duration, out interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		resp, err := c.do(ctx, method, body, timeout)
		elapsed := time.Since(start).Milliseconds()

		if err != nil {
			metrics.ObserveTelegramAPI(method, "network_error", elapsed)
			lastErr = fmt.Errorf("telegram %s: %w: %v", method, domain.ErrTransport, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn().Err(err).Str("method", method).Int("attempt", attempt).Msg("bot api network error")
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.backoff * time.Duration(attempt)):
				}
			}
			continue
		}

		if err := c.decode(method, resp, out); err != nil {
			metrics.ObserveTelegramAPI(method, "http_error", elapsed)
			return err
		}
		metrics.ObserveTelegramAPI(method, "ok", elapsed)
		return nil
	}
	return lastErr
}

type rawResponse struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, method string, body []byte, timeout time.Duration) (*rawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := fmt.Sprintf("%s/bot%s/%s", c.endpoint, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// strip the URL, it carries the token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, uerr.Err
		}
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &rawResponse{status: resp.StatusCode, body: b}, nil
}

func (c *Client) decode(method string, resp *rawResponse, out interface{}) error {
	var api tgbotapi.APIResponse
	jsonErr := json.Unmarshal(resp.body, &api)

	if resp.status < 200 || resp.status > 299 || jsonErr != nil || !api.Ok {
		e := &APIError{Method: method, Status: resp.status, Code: api.ErrorCode, Description: api.Description}
		if e.Code == 0 {
			e.Code = resp.status
		}
		if api.Parameters != nil {
			e.RetryAfter = api.Parameters.RetryAfter
		}
		c.log.Error().
			Str("method", method).
			Int("status", resp.status).
			Str("body", truncate(string(resp.body), maxLoggedBody)).
			Msg("bot api request failed")
		return e
	}

	if out != nil && len(api.Result) > 0 {
		if err := json.Unmarshal(api.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// toMarkup converts port buttons into Bot API markup. URL wins over Data; a
// button with neither falls back to its label as callback data.
func toMarkup(kb adapter.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
