//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/repository"
	"lingua-telegram/internal/usecase"
)

func newTokenFixture(t *testing.T) (usecase.TokenUseCase, *MockCredentialRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users := &MockUserRepo{Users: map[string]*model.PlatformUser{
		"u1": {ID: "u1", Username: "anna", DisplayName: "Anna", PasswordHash: string(hash), Level: "A2"},
	}}
	creds := NewMockCredentialRepo()
	return usecase.NewTokenUseCase(creds, users, newTestLogger()), creds
}

func TestTokenUseCase_CreateAndValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("should issue a token that validates for its scope", func(t *testing.T) {
		uc, creds := newTokenFixture(t)

		c, raw, err := uc.Create(ctx, "u1", "read", 0, "phone", "curl/8")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if len(raw) < 43 {
			t.Errorf("token too short: %d", len(raw))
		}
		if d := c.ExpiresAt.Sub(c.CreatedAt); d != 90*24*time.Hour {
			t.Errorf("expected 90 day default ttl, got %v", d)
		}

		got, err := uc.Validate(ctx, raw, model.ScopeRead)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if got.UserID != "u1" || got.LastUsedAt == nil {
			t.Errorf("unexpected credential: %+v", got)
		}
		if creds.Get(c.ID).LastUsedAt == nil {
			t.Error("expected last_used_at to be persisted")
		}
	})

	t.Run("should reject insufficient scope but let admin through", func(t *testing.T) {
		uc, _ := newTokenFixture(t)
		_, readOnly, _ := uc.Create(ctx, "u1", "read", 30, "", "")
		_, admin, _ := uc.Create(ctx, "u1", "admin", 30, "", "")

		if _, err := uc.Validate(ctx, readOnly, model.ScopeWrite); !errors.Is(err, domain.ErrInsufficientScope) {
			t.Errorf("expected ErrInsufficientScope, got %v", err)
		}
		if _, err := uc.Validate(ctx, admin, model.ScopeWrite); err != nil {
			t.Errorf("admin must satisfy write, got %v", err)
		}
	})

	t.Run("should map missing, unknown, expired and revoked tokens", func(t *testing.T) {
		uc, creds := newTokenFixture(t)
		past := time.Now().Add(-time.Hour)
		expired := &model.Credential{ID: "e", UserID: "u1", Token: "expired-token", Scopes: model.ScopeSet{model.ScopeRead: {}}, ExpiresAt: past}
		revoked := &model.Credential{ID: "r", UserID: "u1", Token: "revoked-token", Scopes: model.ScopeSet{model.ScopeRead: {}}, ExpiresAt: time.Now().Add(time.Hour), RevokedAt: &past}
		_ = creds.Save(ctx, repository.NoTX, expired)
		_ = creds.Save(ctx, repository.NoTX, revoked)

		cases := map[string]error{
			"":              domain.ErrMissingToken,
			"nope":          domain.ErrTokenNotFound,
			"expired-token": domain.ErrTokenExpired,
			"revoked-token": domain.ErrTokenRevoked,
		}
		for raw, want := range cases {
			if _, err := uc.Validate(ctx, raw, model.ScopeRead); !errors.Is(err, want) {
				t.Errorf("token %q: expected %v, got %v", raw, want, err)
			}
		}
	})

	t.Run("should tolerate a failed last-used touch", func(t *testing.T) {
		uc, creds := newTokenFixture(t)
		_, raw, _ := uc.Create(ctx, "u1", "read", 1, "", "")
		creds.TouchFunc = func(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
			return errors.New("db down")
		}
		if _, err := uc.Validate(ctx, raw, model.ScopeRead); err != nil {
			t.Fatalf("touch failure must not fail validation, got %v", err)
		}
	})

	t.Run("should reject unknown scopes", func(t *testing.T) {
		uc, _ := newTokenFixture(t)
		if _, _, err := uc.Create(ctx, "u1", "read,root", 1, "", ""); !errors.Is(err, domain.ErrInvalidScope) {
			t.Fatalf("expected ErrInvalidScope, got %v", err)
		}
	})
}

func TestTokenUseCase_IssueWithPassword(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTokenFixture(t)

	if _, _, err := uc.IssueWithPassword(ctx, "anna", "wrong", "read", "", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, _, err := uc.IssueWithPassword(ctx, "ghost", "s3cret", "read", "", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	c, raw, err := uc.IssueWithPassword(ctx, " anna ", "s3cret", "read,write", "laptop", "")
	if err != nil {
		t.Fatalf("IssueWithPassword failed: %v", err)
	}
	if c.UserID != "u1" || raw == "" || c.Scopes.String() != "read,write" {
		t.Errorf("unexpected credential: %+v", c)
	}
}

func TestTokenUseCase_Revoke(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTokenFixture(t)
	c, raw, _ := uc.Create(ctx, "u1", "read", 1, "", "")

	if changed, _ := uc.Revoke(ctx, c.ID, "someone-else"); changed {
		t.Error("foreign user must not revoke")
	}
	changed, err := uc.Revoke(ctx, c.ID, "u1")
	if err != nil || !changed {
		t.Fatalf("expected first revoke to win, got %v %v", changed, err)
	}
	if again, _ := uc.Revoke(ctx, c.ID, "u1"); again {
		t.Error("second revoke must report no change")
	}
	if _, err := uc.Validate(ctx, raw, model.ScopeRead); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Errorf("expected ErrTokenRevoked, got %v", err)
	}

	list, _ := uc.ListForUser(ctx, "u1")
	if len(list) != 1 || list[0].IsValid || list[0].RevokedAt == nil {
		t.Errorf("unexpected listing: %+v", list)
	}
}

func TestTokenUseCase_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	uc, creds := newTokenFixture(t)
	now := time.Now()
	old := now.Add(-60 * 24 * time.Hour)
	_ = creds.Save(ctx, repository.NoTX, &model.Credential{ID: "stale", UserID: "u1", Token: "a", CreatedAt: old, ExpiresAt: now.Add(-time.Hour)})
	_ = creds.Save(ctx, repository.NoTX, &model.Credential{ID: "fresh", UserID: "u1", Token: "b", CreatedAt: now, ExpiresAt: now.Add(time.Hour)})

	n, err := uc.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 1 || creds.Get("fresh") == nil || creds.Get("stale") != nil {
		t.Errorf("expected only the stale credential purged, n=%d", n)
	}
}
