package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/infra/logging"
	"lingua-telegram/internal/infra/metrics"
	"lingua-telegram/internal/infra/ratelimit"
	"lingua-telegram/internal/infra/web"
	"lingua-telegram/internal/usecase"
)

// Deps is everything the HTTP surface needs. Webhook is nil unless the bot
// runs in webhook mode.
type Deps struct {
	Link            usecase.LinkUseCase
	Tokens          usecase.TokenUseCase
	Activity        usecase.ActivityUseCase
	Sessions        *web.AuthManager
	GenerateLimiter ratelimit.Limiter
	Webhook         http.Handler
	RequestTimeout  time.Duration
}

// Server serves the linking endpoints for the site, the bearer-token API,
// the Telegram webhook and the operational endpoints.
type Server struct {
	link     usecase.LinkUseCase
	tokens   usecase.TokenUseCase
	activity usecase.ActivityUseCase
	sessions *web.AuthManager
	genLimit ratelimit.Limiter
	webhook  http.Handler
	timeout  time.Duration
	log      *zerolog.Logger
	now      func() time.Time
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}
	return &Server{
		link:     d.Link,
		tokens:   d.Tokens,
		activity: d.Activity,
		sessions: d.Sessions,
		genLimit: d.GenerateLimiter,
		webhook:  d.Webhook,
		timeout:  d.RequestTimeout,
		log:      logging.Component(logger, "http"),
		now:      time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(s.log), Recover(s.log), RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/telegram", func(r chi.Router) {
		if s.webhook != nil {
			r.Method(http.MethodPost, "/webhook", s.webhook)
		}
		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.timeout), s.sessions.RequireSession(s.sessionFailed))
			r.Post("/generate-code", s.generateCode)
			r.Post("/unlink", s.unlink)
			r.Get("/status", s.status)
		})
	})

	r.Route("/api/telegram", func(r chi.Router) {
		r.Use(Timeout(s.timeout))
		r.Post("/generate-token", s.generateToken)

		r.Group(func(r chi.Router) {
			r.Use(RequireToken(s.tokens, s.log))

			r.With(RequireScope(model.ScopeRead)).Get("/tokens", s.listTokens)
			r.With(RequireScope(model.ScopeWrite)).Delete("/tokens/{id}", s.revokeToken)

			r.Route("/me", func(r chi.Router) {
				r.Use(RequireScope(model.ScopeRead))
				r.Get("/plan", s.mePlan)
				r.Get("/summary", s.meSummary)
				r.Get("/weekly", s.meWeekly)
				r.Get("/stats", s.meStats)
			})

			r.With(RequireScope(model.ScopeAdmin)).Post("/admin/purge", s.purge)
		})
	})
	return r
}

func (s *Server) sessionFailed(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, http.StatusUnauthorized, "Authentication required")
}

// fail writes the mapped error and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := httpError(err)
	if status >= http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, msg)
}
