package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"lingua-telegram/internal/infra/metrics"
)

// Limiter answers whether subject may act once more in scope.
type Limiter interface {
	Allow(ctx context.Context, subject string) bool
}

// Local is a per-subject token bucket held in process memory. Idle buckets
// are dropped after idleTTL.
type Local struct {
	scope   string
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	sweepAt time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLocal allows perMinute events per subject with a full-minute burst.
func NewLocal(scope string, perMinute int) *Local {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Local{
		scope:   scope,
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
		buckets: map[string]*bucket{},
	}
}

func (l *Local) Allow(ctx context.Context, subject string) bool {
	now := l.now()

	l.mu.Lock()
	if now.After(l.sweepAt) {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.idleTTL {
				delete(l.buckets, k)
			}
		}
		l.sweepAt = now.Add(l.idleTTL)
	}
	b, ok := l.buckets[subject]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[subject] = b
	}
	b.seen = now
	l.mu.Unlock()

	if b.lim.AllowN(now, 1) {
		return true
	}
	metrics.IncRateLimitTriggered(l.scope)
	return false
}

// Counter is the slice of the Redis client the shared limiter needs.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
}

// Shared keeps a fixed one-minute window per subject in Redis so limits hold
// across replicas. When Redis fails it degrades to the local bucket instead
// of rejecting traffic.
type Shared struct {
	scope    string
	limit    int64
	counter  Counter
	fallback *Local
	log      *zerolog.Logger
}

func NewShared(counter Counter, scope string, perMinute int, logger *zerolog.Logger) *Shared {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Shared{
		scope:    scope,
		limit:    int64(perMinute),
		counter:  counter,
		fallback: NewLocal(scope, perMinute),
		log:      logger,
	}
}

// Key is the Redis counter for subject in scope.
func Key(scope, subject string) string {
	return "rate_limit:" + scope + ":" + subject
}

func (s *Shared) Allow(ctx context.Context, subject string) bool {
	ok, err := s.window(ctx, Key(s.scope, subject))
	if err != nil {
		s.log.Warn().Err(err).Str("scope", s.scope).Msg("redis rate limiter unavailable, using local bucket")
		return s.fallback.Allow(ctx, subject)
	}
	if !ok {
		metrics.IncRateLimitTriggered(s.scope)
	}
	return ok
}

// window counts one hit; the first hit of a window starts its expiry.
func (s *Shared) window(ctx context.Context, key string) (bool, error) {
	n, err := s.counter.Incr(ctx, key)
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := s.counter.Expire(ctx, key, time.Minute); err != nil {
			return false, err
		}
	}
	return n <= s.limit, nil
}

// New picks the shared limiter when a Redis counter is available.
func New(counter Counter, scope string, perMinute int, logger *zerolog.Logger) Limiter {
	if counter == nil {
		return NewLocal(scope, perMinute)
	}
	return NewShared(counter, scope, perMinute, logger)
}
