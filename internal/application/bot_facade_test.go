//go:build !integration

package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"lingua-telegram/internal/application"
	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/usecase"
)

func testNow() time.Time { return time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC) }

// mockLinkUC implements the methods the facade uses; the rest are inert.
type mockLinkUC struct {
	usecase.LinkUseCase

	bindings map[int64]*model.Binding
	linkErr  error
	findErr  error
	unbound  []int64
}

func (m *mockLinkUC) FindByTelegramID(ctx context.Context, tgID int64) (*model.Binding, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if b, ok := m.bindings[tgID]; ok {
		return b, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockLinkUC) LinkWithCode(ctx context.Context, code string, tgID int64, username string) (*model.Binding, error) {
	if m.linkErr != nil {
		return nil, m.linkErr
	}
	b, _ := model.NewBinding("u1", tgID, username, testNow())
	m.bindings[tgID] = b
	return b, nil
}

func (m *mockLinkUC) UnbindTelegram(ctx context.Context, tgID int64) error {
	m.unbound = append(m.unbound, tgID)
	delete(m.bindings, tgID)
	return nil
}

type mockSettingsUC struct {
	usecase.SettingsUseCase
	link *mockLinkUC

	reflected []model.Reflection
}

func (m *mockSettingsUC) get(tgID int64) (*model.Binding, error) {
	b, ok := m.link.bindings[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (m *mockSettingsUC) Get(ctx context.Context, tgID int64) (*model.Binding, error) {
	return m.get(tgID)
}

func (m *mockSettingsUC) Toggle(ctx context.Context, tgID int64, slot model.Slot) (*model.Binding, error) {
	b, err := m.get(tgID)
	if err != nil {
		return nil, err
	}
	b.Toggle(slot)
	return b, nil
}

func (m *mockSettingsUC) SetHour(ctx context.Context, tgID int64, slot model.Slot, hour int) (*model.Binding, error) {
	b, err := m.get(tgID)
	if err != nil {
		return nil, err
	}
	return b, b.SetHour(slot, hour)
}

func (m *mockSettingsUC) SetTimezone(ctx context.Context, tgID int64, zone string) (*model.Binding, error) {
	b, err := m.get(tgID)
	if err != nil {
		return nil, err
	}
	return b, b.SetTimezone(zone)
}

func (m *mockSettingsUC) Reflect(ctx context.Context, tgID int64, r model.Reflection) (*model.Binding, error) {
	b, err := m.get(tgID)
	if err != nil {
		return nil, err
	}
	m.reflected = append(m.reflected, r)
	return b, nil
}

type mockActivityUC struct {
	usecase.ActivityUseCase
	statsErr error
}

func (m *mockActivityUC) Learner(ctx context.Context, userID string) (*model.Learner, error) {
	return &model.Learner{UserID: userID, DisplayName: "Анна"}, nil
}

func (m *mockActivityUC) Stats(ctx context.Context, userID string, localNow time.Time) (*model.Stats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return &model.Stats{Streak: 4, LessonsCompleted: 10, ExercisesDone: 33, SRSSize: 80}, nil
}

func newFacade(t *testing.T) (*application.BotFacade, *mockLinkUC, *mockSettingsUC, *mockActivityUC) {
	t.Helper()
	link := &mockLinkUC{bindings: map[int64]*model.Binding{}}
	settings := &mockSettingsUC{link: link}
	activity := &mockActivityUC{}
	return application.NewBotFacade(link, settings, activity, newTestFormatter(t)), link, settings, activity
}

func TestBotFacade_Commands(t *testing.T) {
	ctx := context.Background()

	t.Run("start differs for linked and unlinked chats", func(t *testing.T) {
		f, link, _, _ := newFacade(t)
		r, _ := f.Start(ctx, 777)
		if !strings.Contains(r.Text, "/link") || !strings.Contains(r.Text, "https://lingua.example") {
			t.Errorf("unexpected welcome: %s", r.Text)
		}
		link.bindings[777], _ = model.NewBinding("u1", 777, "", testNow())
		r, _ = f.Start(ctx, 777)
		if !strings.Contains(r.Text, "С возвращением, Анна") {
			t.Errorf("unexpected welcome back: %s", r.Text)
		}
	})

	t.Run("link maps errors to messages", func(t *testing.T) {
		cases := []struct {
			err  error
			want string
		}{
			{nil, "Аккаунт привязан"},
			{domain.ErrInvalidCode, "Код неверный или истёк"},
			{domain.ErrTelegramAlreadyBound, "этот Telegram уже привязан к другому аккаунту"},
			{domain.ErrAlreadyLinked, "уже привязан к Telegram"},
		}
		for _, tc := range cases {
			f, link, _, _ := newFacade(t)
			link.linkErr = tc.err
			r, err := f.Link(ctx, 777, "anna", " 123456 ")
			if err != nil {
				t.Errorf("%v: expected handled error, got %v", tc.err, err)
			}
			if !strings.Contains(r.Text, tc.want) {
				t.Errorf("%v: expected %q, got %s", tc.err, tc.want, r.Text)
			}
		}
	})

	t.Run("link success shows the schedule", func(t *testing.T) {
		f, _, _, _ := newFacade(t)
		r, _ := f.Link(ctx, 777, "anna", "123456")
		for _, want := range []string{"Europe/Moscow", "09:00", "14:00", "21:00", "22:00"} {
			if !strings.Contains(r.Text, want) {
				t.Errorf("expected %q in %s", want, r.Text)
			}
		}
	})

	t.Run("link without code shows usage", func(t *testing.T) {
		f, _, _, _ := newFacade(t)
		r, _ := f.Link(ctx, 777, "", "  ")
		if !strings.Contains(r.Text, "/link 123456") {
			t.Errorf("unexpected usage: %s", r.Text)
		}
	})

	t.Run("unexpected link failure is reported", func(t *testing.T) {
		f, link, _, _ := newFacade(t)
		link.linkErr = errors.New("db down")
		r, err := f.Link(ctx, 777, "", "123456")
		if err == nil || !strings.Contains(r.Text, "Что-то пошло не так") {
			t.Errorf("expected generic error, got %q %v", r.Text, err)
		}
	})

	t.Run("commands requiring a link reply not_linked", func(t *testing.T) {
		f, _, _, _ := newFacade(t)
		for name, call := range map[string]func() (application.Reply, error){
			"unlink":   func() (application.Reply, error) { return f.Unlink(ctx, 1) },
			"settings": func() (application.Reply, error) { return f.Settings(ctx, 1) },
			"stats":    func() (application.Reply, error) { return f.Stats(ctx, 1) },
		} {
			r, err := call()
			if err != nil || !strings.Contains(r.Text, "Сначала привяжите") {
				t.Errorf("%s: got %q %v", name, r.Text, err)
			}
		}
	})

	t.Run("unlink and stats for a linked chat", func(t *testing.T) {
		f, link, _, _ := newFacade(t)
		link.bindings[777], _ = model.NewBinding("u1", 777, "", testNow())

		r, _ := f.Stats(ctx, 777)
		if !strings.Contains(r.Text, "Серия: 4 дн.") || !strings.Contains(r.Text, "33") {
			t.Errorf("unexpected stats: %s", r.Text)
		}
		r, _ = f.Unlink(ctx, 777)
		if !strings.Contains(r.Text, "Аккаунт отвязан") || len(link.unbound) != 1 {
			t.Errorf("unexpected unlink: %s %v", r.Text, link.unbound)
		}
	})
}

func TestBotFacade_Callback(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*application.BotFacade, *mockLinkUC, *mockSettingsUC) {
		f, link, settings, _ := newFacade(t)
		link.bindings[777], _ = model.NewBinding("u1", 777, "", testNow())
		return f, link, settings
	}

	t.Run("toggle edits settings and confirms", func(t *testing.T) {
		f, link, _ := setup(t)
		r, err := f.Callback(ctx, 777, "set:toggle:morning")
		if err != nil {
			t.Fatalf("Callback failed: %v", err)
		}
		if !r.Edit || r.Toast != "Сохранено" || link.bindings[777].MorningEnabled {
			t.Errorf("unexpected reply %+v", r)
		}
	})

	t.Run("time picker then set hour", func(t *testing.T) {
		f, link, _ := setup(t)
		r, _ := f.Callback(ctx, 777, "set:time:evening")
		if !r.Edit || !strings.Contains(r.Text, "Итоги дня") {
			t.Errorf("unexpected picker: %+v", r)
		}
		if _, err := f.Callback(ctx, 777, "set:hour:evening:20"); err != nil {
			t.Fatalf("set hour: %v", err)
		}
		if link.bindings[777].EveningHour != 20 {
			t.Errorf("expected evening hour 20, got %d", link.bindings[777].EveningHour)
		}
	})

	t.Run("timezone picker then set zone", func(t *testing.T) {
		f, link, _ := setup(t)
		if r, _ := f.Callback(ctx, 777, "set:tz"); !r.Edit {
			t.Errorf("expected tz picker edit")
		}
		r, _ := f.Callback(ctx, 777, "set:zone:Asia/Omsk")
		if link.bindings[777].Timezone != "Asia/Omsk" || !strings.Contains(r.Text, "Asia/Omsk") {
			t.Errorf("timezone not applied: %+v", r)
		}
	})

	t.Run("back renders settings without toast", func(t *testing.T) {
		f, _, _ := setup(t)
		r, _ := f.Callback(ctx, 777, "set:back")
		if !r.Edit || r.Toast != "" || len(r.Keyboard) != 5 {
			t.Errorf("unexpected back reply: %+v", r)
		}
	})

	t.Run("reflection answers with a toast only", func(t *testing.T) {
		f, _, settings := setup(t)
		r, _ := f.Callback(ctx, 777, "reflect:ok")
		if r.Edit || r.Text != "" || r.Toast != "Спасибо, учтём!" {
			t.Errorf("unexpected reflection reply: %+v", r)
		}
		if len(settings.reflected) != 1 || settings.reflected[0] != model.ReflectionOK {
			t.Errorf("reflection not stored: %v", settings.reflected)
		}
	})

	t.Run("garbage and unlinked chats", func(t *testing.T) {
		f, _, _ := setup(t)
		if _, err := f.Callback(ctx, 777, "set:hour:evening:99"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		r, err := f.Callback(ctx, 1, "set:toggle:morning")
		if err != nil || !strings.Contains(r.Toast, "Сначала привяжите") {
			t.Errorf("expected not_linked toast, got %+v %v", r, err)
		}
	})
}
