//go:build !integration

package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/usecase"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type fakeLink struct {
	usecase.LinkUseCase

	GenerateErr error
	Generated   int
	Unbound     []string
	Binding     *model.Binding
	now         time.Time
}

func (f *fakeLink) GenerateCode(ctx context.Context, userID string) (*model.LinkCode, error) {
	if f.GenerateErr != nil {
		return nil, f.GenerateErr
	}
	f.Generated++
	return &model.LinkCode{Code: "413902", UserID: userID, CreatedAt: f.now, ExpiresAt: f.now.Add(15 * time.Minute)}, nil
}

func (f *fakeLink) Unbind(ctx context.Context, userID string) error {
	f.Unbound = append(f.Unbound, userID)
	return nil
}

func (f *fakeLink) Status(ctx context.Context, userID string) (usecase.LinkStatus, error) {
	if f.Binding == nil {
		return usecase.LinkStatus{}, nil
	}
	at := f.Binding.LinkedAt
	return usecase.LinkStatus{Linked: true, Username: f.Binding.TelegramUsername, LinkedAt: &at}, nil
}

func (f *fakeLink) FindByUserID(ctx context.Context, userID string) (*model.Binding, error) {
	if f.Binding == nil {
		return nil, domain.ErrNotFound
	}
	return f.Binding, nil
}

func (f *fakeLink) PurgeExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	return 4, nil
}

// fakeTokens knows a fixed set of raw tokens.
type fakeTokens struct {
	usecase.TokenUseCase

	Creds   map[string]*model.Credential
	Revoked []string
}

func newFakeTokens() *fakeTokens {
	mk := func(id, scope string) *model.Credential {
		set, _ := model.ParseScopes(scope)
		return &model.Credential{ID: id, UserID: "u1", Token: "tok-" + id, Scopes: set}
	}
	f := &fakeTokens{Creds: map[string]*model.Credential{}}
	for _, c := range []*model.Credential{mk("r", "read"), mk("rw", "read,write"), mk("adm", "admin")} {
		f.Creds[c.Token] = c
	}
	return f
}

func (f *fakeTokens) Validate(ctx context.Context, raw string, required model.Scope) (*model.Credential, error) {
	switch raw {
	case "":
		return nil, domain.ErrMissingToken
	case "tok-expired":
		return nil, domain.ErrTokenExpired
	}
	c, ok := f.Creds[raw]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return c, nil
}

func (f *fakeTokens) IssueWithPassword(ctx context.Context, username, password, scope, device, ua string) (*model.Credential, string, error) {
	if username != "anna" || password != "s3cret" {
		return nil, "", domain.ErrInvalidCredentials
	}
	set, err := model.ParseScopes(scope)
	if err != nil {
		return nil, "", err
	}
	return &model.Credential{ID: "new", UserID: "u1", Scopes: set, DeviceLabel: device}, "raw-token", nil
}

func (f *fakeTokens) ListForUser(ctx context.Context, userID string) ([]usecase.CredentialView, error) {
	return []usecase.CredentialView{{ID: "r", Scope: "read", IsValid: true}}, nil
}

func (f *fakeTokens) Revoke(ctx context.Context, id, userID string) (bool, error) {
	f.Revoked = append(f.Revoked, id)
	return len(f.Revoked) == 1, nil
}

func (f *fakeTokens) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	return 2, nil
}

type fakeActivity struct {
	usecase.ActivityUseCase
	LastNow time.Time
}

func (f *fakeActivity) Stats(ctx context.Context, userID string, localNow time.Time) (*model.Stats, error) {
	f.LastNow = localNow
	return &model.Stats{Streak: 3, LessonsCompleted: 12, ExercisesDone: 40, SRSSize: 150}, nil
}

func (f *fakeActivity) WeeklyReport(ctx context.Context, userID string, localNow time.Time) (*model.WeeklyReport, error) {
	f.LastNow = localNow
	return &model.WeeklyReport{Current: model.WeekStats{ActiveDays: 4, Lessons: 3, Exercises: 20}, Streak: 2}, nil
}

func (f *fakeActivity) DailyPlan(ctx context.Context, userID string, localNow time.Time) (*model.Plan, error) {
	f.LastNow = localNow
	return &model.Plan{Items: []model.PlanItem{
		{Type: model.PlanLesson, Title: "Past Simple", Minutes: 12},
		{Type: model.PlanWords, Count: 20, Minutes: 3},
	}}, nil
}

func (f *fakeActivity) DailySummary(ctx context.Context, userID string, localNow time.Time) (*model.Summary, error) {
	f.LastNow = localNow
	return &model.Summary{ExercisesDone: 5}, nil
}

type stubLimiter struct{ left int }

func (s *stubLimiter) Allow(ctx context.Context, subject string) bool {
	if s.left <= 0 {
		return false
	}
	s.left--
	return true
}

type webhookStub struct{ hits int }

func (h *webhookStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.hits++
	w.WriteHeader(http.StatusOK)
}
