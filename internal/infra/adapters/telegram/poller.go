package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"lingua-telegram/internal/infra/lock"
	"lingua-telegram/internal/infra/logging"
	"lingua-telegram/internal/infra/metrics"
)

const (
	pollTimeout = 30 * time.Second
	pollBackoff = 5 * time.Second
)

// UpdateSource is the long-poll side of the Bot API.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]tgbotapi.Update, error)
	DeleteWebhook(ctx context.Context) error
}

// Poller is the long-poll ingestor. Updates are handled one at a time, in
// update_id order.
type Poller struct {
	src     UpdateSource
	handler UpdateHandler
	timeout time.Duration
	backoff time.Duration
	log     *zerolog.Logger
}

func NewPoller(src UpdateSource, handler UpdateHandler, logger *zerolog.Logger) *Poller {
	return &Poller{
		src:     src,
		handler: handler,
		timeout: pollTimeout,
		backoff: pollBackoff,
		log:     logging.Component(logger, "telegram.poller"),
	}
}

// Run polls until ctx is cancelled. A registered webhook is removed first,
// otherwise getUpdates is refused.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.src.DeleteWebhook(ctx); err != nil {
		p.log.Warn().Err(err).Msg("delete webhook before polling")
	}
	p.log.Info().Dur("timeout", p.timeout).Msg("long polling started")

	offset := 0
	for {
		if ctx.Err() != nil {
			p.log.Info().Msg("long polling stopped")
			return nil
		}

		updates, err := p.src.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.log.Warn().Err(err).Dur("backoff", p.backoff).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
			case <-time.After(p.backoff):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if err := p.handler.Handle(ctx, u); err != nil {
				metrics.IncUpdate("poll", "failed")
				p.log.Error().Err(err).Int("update_id", u.UpdateID).Msg("handle update")
				continue
			}
			metrics.IncUpdate("poll", "dispatched")
		}
	}
}

// RunAsLeader polls only while leader is held, so that a single replica
// consumes getUpdates. Followers retry acquisition every retry interval and
// the holder refreshes the lock at the same pace; losing it stops polling
// until the lock is won again.
func (p *Poller) RunAsLeader(ctx context.Context, leader lock.Leader, retry time.Duration) error {
	defer func() {
		if err := leader.Release(context.Background()); err != nil {
			p.log.Warn().Err(err).Msg("release poll lock")
		}
	}()
	for {
		ok, err := leader.TryAcquire(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			p.log.Warn().Err(err).Msg("acquire poll lock")
		case ok:
			p.log.Info().Msg("poll lock acquired")
			p.pollWhileHeld(ctx, leader, retry)
		default:
			p.log.Debug().Msg("another instance is polling")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retry):
		}
	}
}

func (p *Poller) pollWhileHeld(ctx context.Context, leader lock.Leader, every time.Duration) {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(pollCtx)
	}()

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := leader.Refresh(ctx); err != nil {
				if ctx.Err() == nil {
					p.log.Warn().Err(err).Msg("poll lock lost")
				}
				cancel()
				<-done
				return
			}
		}
	}
}
