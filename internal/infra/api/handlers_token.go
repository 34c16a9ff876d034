package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/infra/metrics"
	"lingua-telegram/internal/usecase"
)

const maxBodyBytes = 64 << 10

type generateTokenRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Scope      string `json:"scope"`
	DeviceName string `json:"device_name"`
}

type generateTokenResponse struct {
	Success   bool      `json:"success"`
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Scope     string    `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"`
}

type tokenListResponse struct {
	Success bool                     `json:"success"`
	Tokens  []usecase.CredentialView `json:"tokens"`
}

type revokeResponse struct {
	Success bool `json:"success"`
	Revoked bool `json:"revoked"`
}

type purgeResponse struct {
	Success       bool  `json:"success"`
	TokensDeleted int64 `json:"tokens_deleted"`
	CodesDeleted  int64 `json:"codes_deleted"`
}

// generateToken issues a credential after a password check. The raw token is
// returned exactly once.
func (s *Server) generateToken(w http.ResponseWriter, r *http.Request) {
	var req generateTokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.fail(w, r, domain.ErrInvalidArgument)
		return
	}
	if strings.TrimSpace(req.Scope) == "" {
		req.Scope = string(model.ScopeRead)
	}

	cred, raw, err := s.tokens.IssueWithPassword(r.Context(), req.Username, req.Password, req.Scope, req.DeviceName, r.UserAgent())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.IncTokenIssued(cred.Scopes.String())
	writeJSON(w, http.StatusOK, generateTokenResponse{
		Success:   true,
		ID:        cred.ID,
		Token:     raw,
		Scope:     cred.Scopes.String(),
		ExpiresAt: cred.ExpiresAt,
	})
}

func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	cred := CredentialFrom(r.Context())
	list, err := s.tokens.ListForUser(r.Context(), cred.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenListResponse{Success: true, Tokens: list})
}

// revokeToken is idempotent; revoked is true only for the call that did it.
func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	cred := CredentialFrom(r.Context())
	changed, err := s.tokens.Revoke(r.Context(), chi.URLParam(r, "id"), cred.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if changed {
		metrics.IncTokenRevoked()
	}
	writeJSON(w, http.StatusOK, revokeResponse{Success: true, Revoked: changed})
}

func (s *Server) purge(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()
	tokens, err := s.tokens.PurgeExpired(r.Context(), now)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.AddTokensPurged(tokens)

	codes, err := s.link.PurgeExpiredCodes(r.Context(), now)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, purgeResponse{Success: true, TokensDeleted: tokens, CodesDeleted: codes})
}
