package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"lingua-telegram/internal/config"
	"lingua-telegram/internal/infra/lock"
	"lingua-telegram/internal/infra/logging"
	"lingua-telegram/internal/infra/metrics"
	"lingua-telegram/internal/usecase"
)

const (
	JobNotificationTick = "notification_tick"
	JobPurge            = "purge"
	JobHeartbeat        = "leader_heartbeat"

	heartbeatEvery = time.Minute
	stopTimeout    = 30 * time.Second
)

var errSendFailed = errors.New("send failed")

// Runner owns the time-driven work: the hourly notification tick, the daily
// purge and a leader heartbeat. Every instance registers the jobs; only the
// lock holder runs them.
type Runner struct {
	cfg    config.SchedulerConfig
	leader lock.Leader
	notif  usecase.NotificationUseCase
	tokens usecase.TokenUseCase
	links  usecase.LinkUseCase
	log    *zerolog.Logger
	now    func() time.Time

	s      gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRunner(
	cfg config.SchedulerConfig,
	leader lock.Leader,
	notif usecase.NotificationUseCase,
	tokens usecase.TokenUseCase,
	links usecase.LinkUseCase,
	logger *zerolog.Logger,
) *Runner {
	return &Runner{
		cfg:    cfg,
		leader: leader,
		notif:  notif,
		tokens: tokens,
		links:  links,
		log:    logging.Component(logger, "scheduler"),
		now:    time.Now,
	}
}

// Start registers the jobs and starts the scheduler in the background.
// Calling Start twice has no effect.
func (r *Runner) Start(parent context.Context) error {
	if r.s != nil {
		return nil
	}
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithDistributedElector(&leaderElector{leader: r.leader}),
		gocron.WithStopTimeout(stopTimeout),
	)
	if err != nil {
		return fmt.Errorf("new scheduler: %w", err)
	}
	r.ctx, r.cancel = context.WithCancel(parent)

	jobs := []struct {
		name string
		def  gocron.JobDefinition
		fn   func()
	}{
		{JobNotificationTick, gocron.CronJob(r.cfg.TickCron, false), func() { r.Tick(r.ctx) }},
		{JobPurge, gocron.CronJob(r.cfg.PurgeCron, false), func() { r.Purge(r.ctx) }},
		// the elector refreshes the lock before each run; nothing else to do
		{JobHeartbeat, gocron.DurationJob(heartbeatEvery), func() {}},
	}
	for _, j := range jobs {
		if _, err := s.NewJob(
			j.def,
			gocron.NewTask(j.fn),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			r.cancel()
			_ = s.Shutdown()
			return fmt.Errorf("register %s: %w", j.name, err)
		}
	}

	s.Start()
	r.s = s
	r.log.Info().Str("tick", r.cfg.TickCron).Str("purge", r.cfg.PurgeCron).Msg("scheduler started")
	return nil
}

// Stop cancels a running tick between users, waits for jobs and gives up
// leadership.
func (r *Runner) Stop(ctx context.Context) error {
	if r.s == nil {
		return nil
	}
	r.cancel()
	err := r.s.Shutdown()
	if rerr := r.leader.Release(ctx); rerr != nil {
		r.log.Warn().Err(rerr).Msg("release leader lock")
	}
	r.s = nil
	r.log.Info().Msg("scheduler stopped")
	return err
}

// Tick runs one notification pass for the current UTC hour.
func (r *Runner) Tick(ctx context.Context) {
	start := r.now()
	hour := start.UTC().Truncate(time.Hour)

	res, err := r.notif.RunTick(ctx, hour)
	metrics.ObserveTick(time.Since(start), res.Bindings, err)
	for kind, n := range res.Sent {
		metrics.AddNotifications(string(kind), n, nil)
	}
	for kind, n := range res.Failed {
		metrics.AddNotifications(string(kind), n, errSendFailed)
	}

	ev := r.log.Info()
	if err != nil {
		ev = r.log.Error().Err(err)
	}
	ev.Time("hour", hour).
		Int("bindings", res.Bindings).
		Int("sent", res.TotalSent()).
		Dur("took", time.Since(start)).
		Msg("notification tick")
}

// Purge deletes expired credentials and stale link codes.
func (r *Runner) Purge(ctx context.Context) {
	now := r.now().UTC()

	n, err := r.tokens.PurgeExpired(ctx, now)
	metrics.IncJob("purge_tokens", err)
	if err != nil {
		r.log.Error().Err(err).Msg("purge expired credentials")
	} else {
		metrics.AddTokensPurged(n)
		r.log.Info().Int64("deleted", n).Msg("expired credentials purged")
	}

	c, err := r.links.PurgeExpiredCodes(ctx, now)
	metrics.IncJob("purge_link_codes", err)
	if err != nil {
		r.log.Error().Err(err).Msg("purge expired link codes")
		return
	}
	r.log.Info().Int64("deleted", c).Msg("expired link codes purged")
}
