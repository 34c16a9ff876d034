package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/infra/logging"
	"lingua-telegram/internal/infra/metrics"
	"lingua-telegram/internal/usecase"
)

type credKey struct{}

// CredentialFrom returns the credential stored by RequireToken.
func CredentialFrom(ctx context.Context) *model.Credential {
	c, _ := ctx.Value(credKey{}).(*model.Credential)
	return c
}

// RequireToken validates the bearer credential and stores it in the request
// context. Scope checks are layered on top with RequireScope.
func RequireToken(tokens usecase.TokenUseCase, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearer(r)
			cred, err := tokens.Validate(r.Context(), raw, "")
			if err != nil {
				reason := authFailureReason(err)
				metrics.IncTokenAuthFailure(reason)
				status, msg := httpError(err)
				if status >= http.StatusInternalServerError {
					logging.With(r.Context(), logger).Error().Err(err).Msg("credential validation failed")
				} else {
					logging.With(r.Context(), logger).Debug().
						Str("reason", reason).
						Str("token", logging.Redact(raw, false)).
						Msg("credential rejected")
				}
				writeError(w, status, msg)
				return
			}
			ctx := context.WithValue(r.Context(), credKey{}, cred)
			ctx = logging.WithUserID(ctx, cred.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope must run after RequireToken.
func RequireScope(scope model.Scope) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred := CredentialFrom(r.Context())
			if cred == nil {
				writeError(w, http.StatusUnauthorized, "Missing token")
				return
			}
			if !cred.Scopes.Allows(scope) {
				metrics.IncTokenAuthFailure("scope")
				writeError(w, http.StatusForbidden, "Insufficient permissions. Required scope: "+string(scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) string {
	hdr := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(hdr[7:])
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return "missing"
	case errors.Is(err, domain.ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenRevoked):
		return "revoked"
	}
	return "error"
}
