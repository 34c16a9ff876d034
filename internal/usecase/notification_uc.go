package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/adapter"
	"lingua-telegram/internal/domain/ports/repository"
	"lingua-telegram/internal/infra/logging"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationRenderer turns activity data into outbound messages.
type NotificationRenderer interface {
	FormatMorning(name string, streak int, plan *model.Plan) (string, adapter.Keyboard)
	FormatNudge(name string, action *model.QuickAction) (string, adapter.Keyboard)
	FormatEvening(name string, summary *model.Summary, tomorrow *model.Lesson) (string, adapter.Keyboard)
	FormatStreakRescue(name string, streak int, action *model.QuickAction) (string, adapter.Keyboard)
	FormatWeeklyReport(name string, report *model.WeeklyReport) (string, adapter.Keyboard)
}

// TickResult summarises one hourly run.
type TickResult struct {
	Bindings int
	Sent     map[model.NotificationKind]int
	Failed   map[model.NotificationKind]int
}

func (r TickResult) TotalSent() int {
	n := 0
	for _, v := range r.Sent {
		n += v
	}
	return n
}

// NotificationUseCase runs the hourly dispatch across all active bindings.
type NotificationUseCase interface {
	RunTick(ctx context.Context, now time.Time) (TickResult, error)
	Notify(ctx context.Context, b *model.Binding, kind model.NotificationKind, localNow time.Time) error
}

type notificationUC struct {
	bindings    repository.BindingRepository
	activity    ActivityUseCase
	render      NotificationRenderer
	bot         adapter.TelegramBotAdapter
	concurrency int
	log         *zerolog.Logger
}

func NewNotificationUseCase(
	bindings repository.BindingRepository,
	activity ActivityUseCase,
	render NotificationRenderer,
	bot adapter.TelegramBotAdapter,
	concurrency int,
	logger *zerolog.Logger,
) *notificationUC {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &notificationUC{
		bindings:    bindings,
		activity:    activity,
		render:      render,
		bot:         bot,
		concurrency: concurrency,
		log:         logger,
	}
}

// RunTick evaluates every active binding once. Failures for one user are
// logged and counted; they never stop the tick. Cancellation stops
// scheduling further users.
func (u *notificationUC) RunTick(ctx context.Context, now time.Time) (TickResult, error) {
	defer logging.TraceDuration(u.log, "NotificationUC.RunTick")()

	res := TickResult{
		Sent:   map[model.NotificationKind]int{},
		Failed: map[model.NotificationKind]int{},
	}
	list, err := u.bindings.ListActive(ctx, repository.NoTX)
	if err != nil {
		return res, fmt.Errorf("list bindings: %w", err)
	}
	res.Bindings = len(list)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for _, b := range list {
		if gctx.Err() != nil {
			break
		}
		b := b
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			kind, err := u.dispatch(gctx, b, now)
			if kind == model.NotifyNone && err == nil {
				return nil
			}
			mu.Lock()
			if err != nil {
				res.Failed[kind]++
			} else {
				res.Sent[kind]++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func (u *notificationUC) dispatch(ctx context.Context, b *model.Binding, now time.Time) (model.NotificationKind, error) {
	localNow := now.In(b.Location())
	log := logging.With(logging.WithTgID(logging.WithUserID(ctx, b.UserID), b.TelegramID), u.log)

	facts := &lazyFacts{ctx: ctx, uc: u.activity, userID: b.UserID, localNow: localNow}
	kind, err := model.SelectNotification(b, localNow, facts)
	if err != nil {
		log.Error().Err(err).Msg("notification selection failed")
		return kind, err
	}
	if kind == model.NotifyNone {
		return kind, nil
	}
	if err := u.Notify(ctx, b, kind, localNow); err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("notification failed")
		return kind, err
	}
	log.Info().Str("kind", string(kind)).Msg("notification sent")
	return kind, nil
}

// Notify renders and sends one notification of the given kind.
func (u *notificationUC) Notify(ctx context.Context, b *model.Binding, kind model.NotificationKind, localNow time.Time) error {
	learner, err := u.activity.Learner(ctx, b.UserID)
	if err != nil {
		return fmt.Errorf("learner: %w", err)
	}
	name := learner.DisplayName

	var (
		text string
		kb   adapter.Keyboard
	)
	switch kind {
	case model.NotifyMorning:
		streak, err := u.activity.CurrentStreak(ctx, b.UserID, localNow)
		if err != nil {
			return err
		}
		plan, err := u.activity.DailyPlan(ctx, b.UserID, localNow)
		if err != nil {
			return err
		}
		text, kb = u.render.FormatMorning(name, streak, plan)

	case model.NotifyMiddayNudge:
		action, err := u.activity.QuickestAction(ctx, b.UserID, localNow)
		if err != nil {
			return err
		}
		text, kb = u.render.FormatNudge(name, action)

	case model.NotifyEvening:
		summary, err := u.activity.DailySummary(ctx, b.UserID, localNow)
		if err != nil {
			return err
		}
		tomorrow, err := u.activity.TomorrowPreview(ctx, b.UserID)
		if err != nil {
			return err
		}
		text, kb = u.render.FormatEvening(name, summary, tomorrow)

	case model.NotifyStreakRescue:
		streak, err := u.activity.CurrentStreak(ctx, b.UserID, localNow)
		if err != nil {
			return err
		}
		action, err := u.activity.QuickestAction(ctx, b.UserID, localNow)
		if err != nil {
			return err
		}
		text, kb = u.render.FormatStreakRescue(name, streak, action)

	case model.NotifyWeeklyReport:
		report, err := u.activity.WeeklyReport(ctx, b.UserID, localNow)
		if err != nil {
			return err
		}
		text, kb = u.render.FormatWeeklyReport(name, report)

	default:
		return fmt.Errorf("unknown notification kind %q", kind)
	}

	return u.bot.SendMessage(ctx, b.TelegramID, text, kb)
}

// lazyFacts memoises the two data-dependent answers for one binding.
type lazyFacts struct {
	ctx      context.Context
	uc       ActivityUseCase
	userID   string
	localNow time.Time

	active *bool
	streak *int
}

func (p *lazyFacts) HasActivityToday() (bool, error) {
	if p.active == nil {
		v, err := p.uc.HasActivityToday(p.ctx, p.userID, p.localNow)
		if err != nil {
			return false, err
		}
		p.active = &v
	}
	return *p.active, nil
}

func (p *lazyFacts) Streak() (int, error) {
	if p.streak == nil {
		v, err := p.uc.CurrentStreak(p.ctx, p.userID, p.localNow)
		if err != nil {
			return 0, err
		}
		p.streak = &v
	}
	return *p.streak, nil
}
