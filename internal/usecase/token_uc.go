package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/repository"
	"lingua-telegram/internal/infra/logging"
)

// Compile-time check
var _ TokenUseCase = (*tokenUC)(nil)

// PurgeUnusedAfter is how long an expired, never-revoked credential must sit
// unused before the purge job removes it.
const PurgeUnusedAfter = 30 * 24 * time.Hour

// CredentialView is a credential without its raw token.
type CredentialView struct {
	ID          string     `json:"id"`
	Scope       string     `json:"scope"`
	DeviceLabel string     `json:"device_label"`
	UserAgent   string     `json:"user_agent"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	IsValid     bool       `json:"is_valid"`
}

// TokenUseCase issues, validates and revokes scoped bot API credentials.
type TokenUseCase interface {
	// Create returns the stored credential and the raw token; the raw token is
	// never retrievable again.
	Create(ctx context.Context, userID, scope string, ttlDays int, deviceLabel, userAgent string) (*model.Credential, string, error)
	IssueWithPassword(ctx context.Context, username, password, scope, deviceLabel, userAgent string) (*model.Credential, string, error)
	Validate(ctx context.Context, rawToken string, required model.Scope) (*model.Credential, error)
	// Revoke reports true only for the call that actually revoked the credential.
	Revoke(ctx context.Context, id, userID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]CredentialView, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type tokenUC struct {
	creds repository.CredentialRepository
	users repository.PlatformUserRepository
	log   *zerolog.Logger
	now   func() time.Time
}

func NewTokenUseCase(creds repository.CredentialRepository, users repository.PlatformUserRepository, logger *zerolog.Logger) *tokenUC {
	return &tokenUC{
		creds: creds,
		users: users,
		log:   logger,
		now:   time.Now,
	}
}

func (u *tokenUC) Create(ctx context.Context, userID, scope string, ttlDays int, deviceLabel, userAgent string) (*model.Credential, string, error) {
	defer logging.TraceDuration(u.log, "TokenUC.Create")()

	scopes, err := model.ParseScopes(scope)
	if err != nil {
		return nil, "", err
	}
	c, err := model.NewCredential(userID, scopes, ttlDays, deviceLabel, userAgent, u.now().UTC())
	if err != nil {
		return nil, "", err
	}
	if err := u.creds.Save(ctx, repository.NoTX, c); err != nil {
		return nil, "", fmt.Errorf("save credential: %w", err)
	}

	logging.With(ctx, u.log).Info().
		Str("credential_id", c.ID).
		Str("user_id", userID).
		Str("scope", scopes.String()).
		Time("expires_at", c.ExpiresAt).
		Msg("bot credential issued")
	return c, c.Token, nil
}

func (u *tokenUC) IssueWithPassword(ctx context.Context, username, password, scope, deviceLabel, userAgent string) (*model.Credential, string, error) {
	defer logging.TraceDuration(u.log, "TokenUC.IssueWithPassword")()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", domain.ErrInvalidCredentials
	}
	if _, err := model.ParseScopes(scope); err != nil {
		return nil, "", err
	}

	user, err := u.users.FindByUsername(ctx, repository.NoTX, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logging.With(ctx, u.log).Warn().Str("user_id", user.ID).Msg("token issuance with wrong password")
		return nil, "", domain.ErrInvalidCredentials
	}
	return u.Create(ctx, user.ID, scope, model.DefaultCredentialTTLDays, deviceLabel, userAgent)
}

func (u *tokenUC) Validate(ctx context.Context, rawToken string, required model.Scope) (*model.Credential, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, domain.ErrMissingToken
	}

	c, err := u.creds.FindByToken(ctx, repository.NoTX, rawToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}

	now := u.now().UTC()
	if err := c.Check(now); err != nil {
		return nil, err
	}
	if required != "" && !c.Scopes.Allows(required) {
		return nil, domain.ErrInsufficientScope
	}

	// Lost touches are acceptable; a failed write must not fail the request.
	if err := u.creds.TouchLastUsed(ctx, repository.NoTX, c.ID, now); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("credential_id", c.ID).Msg("touch last_used_at failed")
	} else {
		c.LastUsedAt = &now
	}
	return c, nil
}

func (u *tokenUC) Revoke(ctx context.Context, id, userID string) (bool, error) {
	defer logging.TraceDuration(u.log, "TokenUC.Revoke")()

	changed, err := u.creds.Revoke(ctx, repository.NoTX, id, userID, u.now().UTC())
	if err != nil {
		return false, fmt.Errorf("revoke credential: %w", err)
	}
	if changed {
		logging.With(ctx, u.log).Info().Str("credential_id", id).Str("user_id", userID).Msg("bot credential revoked")
	}
	return changed, nil
}

func (u *tokenUC) ListForUser(ctx context.Context, userID string) ([]CredentialView, error) {
	defer logging.TraceDuration(u.log, "TokenUC.ListForUser")()

	list, err := u.creds.ListByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	now := u.now().UTC()
	out := make([]CredentialView, 0, len(list))
	for _, c := range list {
		out = append(out, CredentialView{
			ID:          c.ID,
			Scope:       c.Scopes.String(),
			DeviceLabel: c.DeviceLabel,
			UserAgent:   c.UserAgent,
			CreatedAt:   c.CreatedAt,
			ExpiresAt:   c.ExpiresAt,
			LastUsedAt:  c.LastUsedAt,
			RevokedAt:   c.RevokedAt,
			IsValid:     c.IsValid(now),
		})
	}
	return out, nil
}

func (u *tokenUC) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	defer logging.TraceDuration(u.log, "TokenUC.PurgeExpired")()

	n, err := u.creds.PurgeExpired(ctx, repository.NoTX, before, PurgeUnusedAfter)
	if err != nil {
		return 0, fmt.Errorf("purge credentials: %w", err)
	}
	if n > 0 {
		u.log.Info().Int64("purged", n).Time("before", before).Msg("expired bot credentials purged")
	}
	return n, nil
}
