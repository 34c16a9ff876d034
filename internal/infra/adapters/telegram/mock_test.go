//go:build !integration

package telegram

import (
	"context"
	"fmt"
	"io"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"lingua-telegram/internal/application"
	"lingua-telegram/internal/domain/ports/adapter"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// mockFacade records calls as "method:arg" and answers with canned replies.
type mockFacade struct {
	mu    sync.Mutex
	Calls []string

	CallbackFunc func(ctx context.Context, tgID int64, data string) (application.Reply, error)
}

func (m *mockFacade) record(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, fmt.Sprintf(format, args...))
}

func (m *mockFacade) Start(ctx context.Context, tgID int64) (application.Reply, error) {
	m.record("start:%d", tgID)
	return application.Reply{Text: "welcome"}, nil
}

func (m *mockFacade) Help(ctx context.Context) (application.Reply, error) {
	m.record("help")
	return application.Reply{Text: "help"}, nil
}

func (m *mockFacade) Link(ctx context.Context, tgID int64, username, args string) (application.Reply, error) {
	m.record("link:%d:%s:%s", tgID, username, args)
	return application.Reply{Text: "linked"}, nil
}

func (m *mockFacade) Unlink(ctx context.Context, tgID int64) (application.Reply, error) {
	m.record("unlink:%d", tgID)
	return application.Reply{Text: "unlinked"}, nil
}

func (m *mockFacade) Settings(ctx context.Context, tgID int64) (application.Reply, error) {
	m.record("settings:%d", tgID)
	return application.Reply{Text: "settings", Keyboard: adapter.Keyboard{{{Text: "x", Data: "set:tz"}}}}, nil
}

func (m *mockFacade) Stats(ctx context.Context, tgID int64) (application.Reply, error) {
	m.record("stats:%d", tgID)
	return application.Reply{Text: "stats"}, nil
}

func (m *mockFacade) Callback(ctx context.Context, tgID int64, data string) (application.Reply, error) {
	m.record("callback:%d:%s", tgID, data)
	if m.CallbackFunc != nil {
		return m.CallbackFunc(ctx, tgID, data)
	}
	return application.Reply{Text: "settings", Edit: true, Toast: "saved"}, nil
}

func (m *mockFacade) UnknownCommand(ctx context.Context) (application.Reply, error) {
	m.record("unknown")
	return application.Reply{Text: "unknown"}, nil
}

func (m *mockFacade) RateLimited(ctx context.Context) application.Reply {
	return application.Reply{Text: "slow down"}
}

func (m *mockFacade) Commands() []adapter.BotCommand { return nil }

func (m *mockFacade) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

// mockBot records every outbound call in order.
type mockBot struct {
	mu     sync.Mutex
	Events []string
}

var _ adapter.TelegramBotAdapter = (*mockBot)(nil)

func (b *mockBot) record(format string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Events = append(b.Events, fmt.Sprintf(format, args...))
}

func (b *mockBot) SendMessage(ctx context.Context, chatID int64, text string, kb adapter.Keyboard) error {
	b.record("send:%d:%s", chatID, text)
	return nil
}

func (b *mockBot) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb adapter.Keyboard) error {
	b.record("edit:%d:%d:%s", chatID, messageID, text)
	return nil
}

func (b *mockBot) AnswerCallback(ctx context.Context, callbackID, toast string) error {
	b.record("answer:%s:%s", callbackID, toast)
	return nil
}

func (b *mockBot) SetCommands(ctx context.Context, cmds []adapter.BotCommand) error { return nil }

func (b *mockBot) InstallWebhook(ctx context.Context, url, secret string) error { return nil }

func (b *mockBot) DeleteWebhook(ctx context.Context) error { return nil }

func (b *mockBot) events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.Events...)
}

// stubLimiter allows everything unless Deny is set.
type stubLimiter struct{ Deny bool }

func (s *stubLimiter) Allow(ctx context.Context, subject string) bool { return !s.Deny }

// recordingHandler collects handled update ids.
type recordingHandler struct {
	mu  sync.Mutex
	IDs []int
	Err error
}

func (h *recordingHandler) Handle(ctx context.Context, u tgbotapi.Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.IDs = append(h.IDs, u.UpdateID)
	return h.Err
}

func (h *recordingHandler) ids() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.IDs...)
}

func privateMessage(tgID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: tgID, UserName: "anna"},
		Chat:      &tgbotapi.Chat{ID: tgID, Type: "private"},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		n := len(text)
		for i, r := range text {
			if r == ' ' {
				n = i
				break
			}
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return msg
}
