//go:build !integration

package sched

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lingua-telegram/internal/config"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/usecase"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type fakeLeader struct {
	held     bool
	taken    bool
	released int
	err      error
}

func (f *fakeLeader) TryAcquire(ctx context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.taken {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLeader) Refresh(ctx context.Context) error {
	if !f.held {
		return errors.New("not held")
	}
	return nil
}

func (f *fakeLeader) Release(ctx context.Context) error {
	f.held = false
	f.released++
	return nil
}

type fakeNotifications struct {
	usecase.NotificationUseCase
	ticks []time.Time
	res   usecase.TickResult
	err   error
}

func (f *fakeNotifications) RunTick(ctx context.Context, now time.Time) (usecase.TickResult, error) {
	f.ticks = append(f.ticks, now)
	return f.res, f.err
}

type fakeTokens struct {
	usecase.TokenUseCase
	before time.Time
	err    error
}

func (f *fakeTokens) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	f.before = before
	return 2, f.err
}

type fakeLinks struct {
	usecase.LinkUseCase
	calls int
}

func (f *fakeLinks) PurgeExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	f.calls++
	return 1, nil
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{Enabled: true, TickCron: "0 * * * *", PurgeCron: "30 3 * * *"}
}

func TestLeaderElector(t *testing.T) {
	ctx := context.Background()

	t.Run("holder is leader", func(t *testing.T) {
		e := &leaderElector{leader: &fakeLeader{}}
		if err := e.IsLeader(ctx); err != nil {
			t.Errorf("expected leader, got %v", err)
		}
	})
	t.Run("lock taken elsewhere", func(t *testing.T) {
		e := &leaderElector{leader: &fakeLeader{taken: true}}
		if err := e.IsLeader(ctx); !errors.Is(err, errNotLeader) {
			t.Errorf("expected errNotLeader, got %v", err)
		}
	})
	t.Run("lock backend error", func(t *testing.T) {
		boom := errors.New("redis down")
		e := &leaderElector{leader: &fakeLeader{err: boom}}
		if err := e.IsLeader(ctx); !errors.Is(err, boom) {
			t.Errorf("expected backend error, got %v", err)
		}
	})
}

func TestRunner_TickUsesHourBoundary(t *testing.T) {
	notif := &fakeNotifications{res: usecase.TickResult{
		Bindings: 3,
		Sent:     map[model.NotificationKind]int{model.NotifyMorning: 2},
		Failed:   map[model.NotificationKind]int{model.NotifyMiddayNudge: 1},
	}}
	r := NewRunner(testSchedulerConfig(), &fakeLeader{}, notif, &fakeTokens{}, &fakeLinks{}, testLogger())
	r.now = func() time.Time { return time.Date(2026, 1, 12, 6, 0, 2, 500, time.FixedZone("MSK", 3*3600)) }

	r.Tick(context.Background())

	if len(notif.ticks) != 1 {
		t.Fatalf("expected one tick, got %d", len(notif.ticks))
	}
	want := time.Date(2026, 1, 12, 3, 0, 0, 0, time.UTC)
	if !notif.ticks[0].Equal(want) || notif.ticks[0].Location() != time.UTC {
		t.Errorf("tick time = %v, want %v", notif.ticks[0], want)
	}
}

func TestRunner_PurgeContinuesAfterTokenError(t *testing.T) {
	tokens := &fakeTokens{err: errors.New("db down")}
	links := &fakeLinks{}
	r := NewRunner(testSchedulerConfig(), &fakeLeader{}, &fakeNotifications{}, tokens, links, testLogger())
	now := time.Date(2026, 1, 12, 3, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Purge(context.Background())

	if !tokens.before.Equal(now) {
		t.Errorf("purge cutoff = %v", tokens.before)
	}
	if links.calls != 1 {
		t.Error("link codes must be purged even when the credential purge fails")
	}
}

func TestRunner_StartStop(t *testing.T) {
	leader := &fakeLeader{}
	r := NewRunner(testSchedulerConfig(), leader, &fakeNotifications{}, &fakeTokens{}, &fakeLinks{}, testLogger())

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := len(r.s.Jobs()); got != 3 {
		t.Errorf("expected 3 jobs, got %d", got)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Errorf("second start must be a no-op, got %v", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if leader.released != 1 {
		t.Errorf("lock must be released on stop, released=%d", leader.released)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("second stop must be a no-op, got %v", err)
	}
}

func TestRunner_StartRejectsBadCron(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.TickCron = "not a cron"
	r := NewRunner(cfg, &fakeLeader{}, &fakeNotifications{}, &fakeTokens{}, &fakeLinks{}, testLogger())
	if err := r.Start(context.Background()); err == nil {
		t.Error("expected error for invalid cron")
	}
}
