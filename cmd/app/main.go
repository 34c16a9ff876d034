// File: cmd/app/main.go
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"lingua-telegram/internal/application"
	"lingua-telegram/internal/config"
	"lingua-telegram/internal/domain/ports/adapter"
	"lingua-telegram/internal/domain/ports/repository"
	tele "lingua-telegram/internal/infra/adapters/telegram"
	"lingua-telegram/internal/infra/api"
	pg "lingua-telegram/internal/infra/db/postgres"
	"lingua-telegram/internal/infra/i18n"
	"lingua-telegram/internal/infra/lock"
	"lingua-telegram/internal/infra/logging"
	"lingua-telegram/internal/infra/metrics"
	"lingua-telegram/internal/infra/ratelimit"
	red "lingua-telegram/internal/infra/redis"
	"lingua-telegram/internal/infra/sched"
	"lingua-telegram/internal/infra/web"
	"lingua-telegram/internal/infra/worker"
	"lingua-telegram/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("service stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("commit", commit).Bool("dev", cfg.Runtime.Dev).Msg("starting")

	// ---- Postgres ----
	if cfg.Database.MigrateOnBoot {
		if err := pg.RunMigrations(cfg.Database.URL); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	// ---- Redis (optional) ----
	var (
		redisClient  *red.Client
		limitCounter ratelimit.Counter
	)
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, rate limits stay process-local")
			redisClient = nil
		} else {
			defer redisClient.Close()
			limitCounter = redisClient
		}
	}

	// ---- Repositories & use cases ----
	tm := pg.NewTxManager(pool)
	var bindings repository.BindingRepository = pg.NewBindingRepo(pool)
	if redisClient != nil {
		bindings = pg.NewBindingRepoCacheDecorator(bindings, redisClient, 5*time.Minute)
	}
	codes := pg.NewLinkCodeRepo(pool)
	creds := pg.NewCredentialRepo(pool)
	users := pg.NewPlatformUserRepo(pool)
	activityRepo := pg.NewActivityRepo(pool)

	linkUC := usecase.NewLinkUseCase(bindings, codes, tm, logger)
	settingsUC := usecase.NewSettingsUseCase(bindings, tm, logger)
	activityUC := usecase.NewActivityUseCase(activityRepo, logger)
	tokenUC := usecase.NewTokenUseCase(creds, users, logger)

	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Site.Lang)
	if err != nil {
		return err
	}
	formatter := application.NewFormatter(translator, cfg.Site.BaseURL)
	facade := application.NewBotFacade(linkUC, settingsUC, activityUC, formatter)

	// ---- Telegram ----
	var (
		bot     adapter.TelegramBotAdapter
		webhook http.Handler
		hooks   *worker.Pool
	)
	if err := cfg.Bot.Validate(); err != nil {
		logger.Warn().Err(err).Msg("telegram disabled")
	} else {
		client := tele.NewClient(cfg.Bot, logger)
		bot = client
		if cfg.Bot.DryRun {
			bot = tele.NewNoopBotAdapter(logger)
			logger.Warn().Msg("bot dry-run: outgoing messages are logged, not sent")
		}

		dispatcher := tele.NewDispatcher(
			facade,
			bot,
			ratelimit.New(limitCounter, "tg_command", cfg.Limits.CommandsPerMinute, logger),
			ratelimit.New(limitCounter, "tg_callback", cfg.Limits.CallbacksPerMinute, logger),
			logger,
		)

		if err := bot.SetCommands(ctx, facade.Commands()); err != nil {
			logger.Warn().Err(err).Msg("setMyCommands failed")
		}

		switch cfg.Bot.Mode {
		case config.ModeWebhook:
			hooks = worker.NewPool(cfg.Bot.Workers, cfg.Bot.QueueSize, logging.Component(logger, "telegram.webhook.pool"))
			// not tied to ctx: Stop drains accepted updates after the listener closes
			hooks.Start(context.Background())
			webhook = tele.NewWebhookHandler(cfg.Bot.WebhookSecret, dispatcher, hooks, logger)
			if err := client.InstallWebhook(ctx, cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret); err != nil {
				logger.Error().Err(err).Msg("setWebhook failed")
			} else {
				logger.Info().Msg("telegram webhook installed")
			}
		default:
			pollLock, err := newLeader(cfg, redisClient, ".poll", "lingua:telegram:poller:leader", time.Minute)
			if err != nil {
				return err
			}
			poller := tele.NewPoller(client, dispatcher, logger)
			go func() {
				if err := poller.RunAsLeader(ctx, pollLock, 15*time.Second); err != nil {
					logger.Error().Err(err).Msg("telegram polling stopped")
				}
			}()
			logger.Info().Msg("telegram polling enabled, waiting for the poll lock")
		}
	}

	// ---- Scheduler ----
	var runner *sched.Runner
	switch {
	case !cfg.Scheduler.Enabled:
		logger.Info().Msg("scheduler disabled by config")
	case bot == nil:
		logger.Warn().Msg("scheduler not started: telegram is disabled")
	default:
		leader, err := newLeader(cfg, redisClient, "", "lingua:telegram:scheduler:leader", 3*time.Minute)
		if err != nil {
			return err
		}
		notifUC := usecase.NewNotificationUseCase(bindings, activityUC, formatter, bot, cfg.Scheduler.Concurrency, logger)
		runner = sched.NewRunner(cfg.Scheduler, leader, notifUC, tokenUC, linkUC, logger)
		if err := runner.Start(ctx); err != nil {
			return err
		}
	}

	// ---- HTTP ----
	secret := cfg.Site.SessionSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn().Msg("site.session_secret not set: site sessions will not validate")
	}
	srv := api.NewServer(api.Deps{
		Link:            linkUC,
		Tokens:          tokenUC,
		Activity:        activityUC,
		Sessions:        web.NewAuthManager(secret, cfg.Site.SessionCookie, !cfg.Runtime.Dev, "", 24*time.Hour),
		GenerateLimiter: ratelimit.New(limitCounter, "link_generate", cfg.Limits.GenerateCodePerMinute, logger),
		Webhook:         webhook,
		RequestTimeout:  cfg.HTTP.RequestTimeout,
	}, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-serveErr:
		logger.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 20*time.Second)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if hooks != nil {
		hooks.Stop()
	}
	if runner != nil {
		if err := runner.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("scheduler shutdown")
		}
	}
	logger.Info().Msg("bye")
	return nil
}

// newLeader builds the lock backend selected by scheduler.leader. File locks
// live next to scheduler.lock_path with the given suffix.
func newLeader(cfg *config.Config, redisClient *red.Client, suffix, key string, ttl time.Duration) (lock.Leader, error) {
	if cfg.Scheduler.Leader != "redis" {
		return lock.NewFileLock(cfg.Scheduler.LockPath + suffix), nil
	}
	if redisClient == nil {
		return nil, errors.New("scheduler.leader=redis requires a reachable redis")
	}
	return red.NewLeader(redisClient, key, ttl), nil
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
