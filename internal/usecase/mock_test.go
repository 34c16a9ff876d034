//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/adapter"
	"lingua-telegram/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// =============================
// Transactions
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

type SentMessage struct {
	ChatID int64
	Text   string
	KB     adapter.Keyboard
}

type MockTelegramBot struct {
	mu   sync.Mutex
	Sent []SentMessage

	SendMessageFunc func(ctx context.Context, chatID int64, text string, kb adapter.Keyboard) error
}

var _ adapter.TelegramBotAdapter = (*MockTelegramBot)(nil)

func (m *MockTelegramBot) SendMessage(ctx context.Context, chatID int64, text string, kb adapter.Keyboard) error {
	if m.SendMessageFunc != nil {
		if err := m.SendMessageFunc(ctx, chatID, text, kb); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{ChatID: chatID, Text: text, KB: kb})
	return nil
}

func (m *MockTelegramBot) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb adapter.Keyboard) error {
	return nil
}
func (m *MockTelegramBot) AnswerCallback(ctx context.Context, callbackID, toast string) error {
	return nil
}
func (m *MockTelegramBot) SetCommands(ctx context.Context, cmds []adapter.BotCommand) error {
	return nil
}
func (m *MockTelegramBot) InstallWebhook(ctx context.Context, url, secret string) error { return nil }
func (m *MockTelegramBot) DeleteWebhook(ctx context.Context) error                      { return nil }

func (m *MockTelegramBot) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Sent))
	copy(out, m.Sent)
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out
}

// MockRenderer renders "<kind>:<name>" so tests can assert which message went out.
type MockRenderer struct{}

func (MockRenderer) FormatMorning(name string, streak int, plan *model.Plan) (string, adapter.Keyboard) {
	return fmt.Sprintf("morning:%s:%d:%d", name, streak, len(plan.Items)), nil
}
func (MockRenderer) FormatNudge(name string, action *model.QuickAction) (string, adapter.Keyboard) {
	return "midday_nudge:" + name, nil
}
func (MockRenderer) FormatEvening(name string, summary *model.Summary, tomorrow *model.Lesson) (string, adapter.Keyboard) {
	return "evening_summary:" + name, nil
}
func (MockRenderer) FormatStreakRescue(name string, streak int, action *model.QuickAction) (string, adapter.Keyboard) {
	return fmt.Sprintf("streak_rescue:%s:%d", name, streak), nil
}
func (MockRenderer) FormatWeeklyReport(name string, report *model.WeeklyReport) (string, adapter.Keyboard) {
	return "weekly_report:" + name, nil
}

// =============================
// Repositories
// =============================

// ---- Bindings ----

type MockBindingRepo struct {
	mu     sync.Mutex
	byUser map[string]*model.Binding

	CreateFunc func(ctx context.Context, tx repository.Tx, b *model.Binding) error
	UpdateFunc func(ctx context.Context, tx repository.Tx, b *model.Binding) error
}

var _ repository.BindingRepository = (*MockBindingRepo)(nil)

func NewMockBindingRepo() *MockBindingRepo {
	return &MockBindingRepo{byUser: map[string]*model.Binding{}}
}

func cloneBinding(b *model.Binding) *model.Binding {
	cp := *b
	return &cp
}

func (m *MockBindingRepo) Create(ctx context.Context, tx repository.Tx, b *model.Binding) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUser[b.UserID]; ok {
		return domain.ErrAlreadyLinked
	}
	for _, v := range m.byUser {
		if v.TelegramID == b.TelegramID {
			return domain.ErrTelegramAlreadyBound
		}
	}
	m.byUser[b.UserID] = cloneBinding(b)
	return nil
}

func (m *MockBindingRepo) Update(ctx context.Context, tx repository.Tx, b *model.Binding) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUser[b.UserID]; !ok {
		return domain.ErrNotFound
	}
	m.byUser[b.UserID] = cloneBinding(b)
	return nil
}

func (m *MockBindingRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.byUser[userID]; ok {
		return cloneBinding(b), nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockBindingRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.byUser {
		if b.TelegramID == tgID {
			return cloneBinding(b), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockBindingRepo) DeleteByUserID(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byUser[userID]
	delete(m.byUser, userID)
	return ok, nil
}

func (m *MockBindingRepo) DeleteByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, b := range m.byUser {
		if b.TelegramID == tgID {
			delete(m.byUser, k)
			return true, nil
		}
	}
	return false, nil
}

func (m *MockBindingRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Binding
	for _, b := range m.byUser {
		if b.IsActive {
			out = append(out, cloneBinding(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

// ---- Link codes ----

type MockLinkCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.LinkCode

	SaveFunc func(ctx context.Context, tx repository.Tx, c *model.LinkCode) error
}

var _ repository.LinkCodeRepository = (*MockLinkCodeRepo)(nil)

func NewMockLinkCodeRepo() *MockLinkCodeRepo {
	return &MockLinkCodeRepo{codes: map[string]*model.LinkCode{}}
}

func (m *MockLinkCodeRepo) Save(ctx context.Context, tx repository.Tx, c *model.LinkCode) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, tx, c); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[c.Code]; ok {
		return domain.ErrAlreadyExists
	}
	for _, v := range m.codes {
		if v.UserID == c.UserID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *c
	m.codes[c.Code] = &cp
	return nil
}

func (m *MockLinkCodeRepo) FindLive(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.LinkCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok || !c.IsLive(now) {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockLinkCodeRepo) DeleteByUser(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, c := range m.codes {
		if c.UserID == userID {
			delete(m.codes, k)
			n++
		}
	}
	return n, nil
}

func (m *MockLinkCodeRepo) DeleteExpired(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, c := range m.codes {
		if !c.IsLive(now) {
			delete(m.codes, k)
			n++
		}
	}
	return n, nil
}

func (m *MockLinkCodeRepo) Put(c *model.LinkCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[c.Code] = c
}

func (m *MockLinkCodeRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes)
}

// ---- Credentials ----

type MockCredentialRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Credential

	TouchFunc func(ctx context.Context, tx repository.Tx, id string, at time.Time) error
	Purged    []time.Time
}

var _ repository.CredentialRepository = (*MockCredentialRepo)(nil)

func NewMockCredentialRepo() *MockCredentialRepo {
	return &MockCredentialRepo{byID: map[string]*model.Credential{}}
}

func (m *MockCredentialRepo) Save(ctx context.Context, tx repository.Tx, c *model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.byID {
		if v.Token == c.Token {
			return domain.ErrAlreadyExists
		}
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *MockCredentialRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.byID {
		if v.Token == token {
			cp := *v
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCredentialRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Credential
	for _, v := range m.byID {
		if v.UserID == userID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockCredentialRepo) Revoke(ctx context.Context, tx repository.Tx, id, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.UserID != userID || c.RevokedAt != nil {
		return false, nil
	}
	c.RevokedAt = &at
	return true, nil
}

func (m *MockCredentialRepo) TouchLastUsed(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, tx, id, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byID[id]; ok {
		c.LastUsedAt = &at
	}
	return nil
}

func (m *MockCredentialRepo) PurgeExpired(ctx context.Context, tx repository.Tx, before time.Time, unused time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Purged = append(m.Purged, before)
	var n int64
	for id, c := range m.byID {
		last := c.CreatedAt
		if c.LastUsedAt != nil {
			last = *c.LastUsedAt
		}
		if c.ExpiresAt.Before(before) && (c.RevokedAt != nil || last.Before(before.Add(-unused))) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

func (m *MockCredentialRepo) Get(id string) *model.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

// ---- Platform users ----

type MockUserRepo struct {
	Users map[string]*model.PlatformUser
}

var _ repository.PlatformUserRepository = (*MockUserRepo)(nil)

func (m *MockUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.PlatformUser, error) {
	for _, u := range m.Users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PlatformUser, error) {
	if u, ok := m.Users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

// ---- Activity ----

// MockActivityRepo serves canned data. Zero values mean "nothing there".
type MockActivityRepo struct {
	mu sync.Mutex

	Days       []model.DayKey
	Counts     func(from, to time.Time) model.ActivityCounts
	Ever       bool
	Learners   map[string]*model.Learner
	Next       *model.Lesson
	Current    *model.Lesson
	First      *model.Lesson
	Completed  int
	Total      int
	Pending    int
	Due        int
	SRS        int
	Decks      int
	Book       *model.Book
	Books      []model.Book
	LessonsDay []string
	BooksDay   []string

	ActivityDaysCalls int
	ActivityDaysErr   error
}

var _ repository.ActivityRepository = (*MockActivityRepo)(nil)

func (m *MockActivityRepo) ActivityDays(ctx context.Context, tx repository.Tx, userID, tz string, since time.Time) ([]model.DayKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ActivityDaysCalls++
	if m.ActivityDaysErr != nil {
		return nil, m.ActivityDaysErr
	}
	return m.Days, nil
}

func (m *MockActivityRepo) CountActivity(ctx context.Context, tx repository.Tx, userID string, from, to time.Time) (model.ActivityCounts, error) {
	if m.Counts != nil {
		return m.Counts(from, to), nil
	}
	return model.ActivityCounts{}, nil
}

func (m *MockActivityRepo) EverActive(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	return m.Ever, nil
}

func (m *MockActivityRepo) CompletedLessonsBetween(ctx context.Context, tx repository.Tx, userID string, from, to time.Time) ([]string, error) {
	return m.LessonsDay, nil
}

func (m *MockActivityRepo) BooksReadBetween(ctx context.Context, tx repository.Tx, userID string, from, to time.Time) ([]string, error) {
	return m.BooksDay, nil
}

func (m *MockActivityRepo) LearnerProfile(ctx context.Context, tx repository.Tx, userID string) (*model.Learner, error) {
	if l, ok := m.Learners[userID]; ok {
		return l, nil
	}
	return &model.Learner{UserID: userID, DisplayName: userID, Level: "A1"}, nil
}

func lessonOrNotFound(l *model.Lesson) (*model.Lesson, error) {
	if l == nil {
		return nil, domain.ErrNotFound
	}
	return l, nil
}

func (m *MockActivityRepo) NextLesson(ctx context.Context, tx repository.Tx, userID string) (*model.Lesson, error) {
	return lessonOrNotFound(m.Next)
}

func (m *MockActivityRepo) CurrentLesson(ctx context.Context, tx repository.Tx, userID string) (*model.Lesson, error) {
	return lessonOrNotFound(m.Current)
}

func (m *MockActivityRepo) FirstLesson(ctx context.Context, tx repository.Tx, level string) (*model.Lesson, error) {
	return lessonOrNotFound(m.First)
}

func (m *MockActivityRepo) LessonProgress(ctx context.Context, tx repository.Tx, userID string) (int, int, error) {
	return m.Completed, m.Total, nil
}

func (m *MockActivityRepo) PendingExercises(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	return m.Pending, nil
}

func (m *MockActivityRepo) DueWords(ctx context.Context, tx repository.Tx, userID string, at time.Time) (int, error) {
	return m.Due, nil
}

func (m *MockActivityRepo) SRSSize(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	return m.SRS, nil
}

func (m *MockActivityRepo) DeckCount(ctx context.Context, tx repository.Tx) (int, error) {
	return m.Decks, nil
}

func (m *MockActivityRepo) ContinueBook(ctx context.Context, tx repository.Tx, userID string) (*model.Book, error) {
	if m.Book == nil {
		return nil, domain.ErrNotFound
	}
	return m.Book, nil
}

func (m *MockActivityRepo) AvailableBooks(ctx context.Context, tx repository.Tx, level string, limit int) ([]model.Book, error) {
	if len(m.Books) > limit {
		return m.Books[:limit], nil
	}
	return m.Books, nil
}

// days builds DayKeys for the given offsets back from ref's civil date.
func days(ref time.Time, offsets ...int) []model.DayKey {
	out := make([]model.DayKey, 0, len(offsets))
	for _, off := range offsets {
		y, mo, d := ref.Date()
		out = append(out, model.DayOf(time.Date(y, mo, d-off, 12, 0, 0, 0, ref.Location())))
	}
	return out
}
