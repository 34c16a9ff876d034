package api

import (
	"net/http"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/infra/logging"
	"lingua-telegram/internal/infra/metrics"
	"lingua-telegram/internal/infra/web"
)

type generateCodeResponse struct {
	Success          bool   `json:"success"`
	Code             string `json:"code"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) generateCode(w http.ResponseWriter, r *http.Request) {
	userID := web.UserID(r.Context())
	ctx := logging.WithUserID(r.Context(), userID)

	if s.genLimit != nil && !s.genLimit.Allow(ctx, userID) {
		s.fail(w, r, domain.ErrRateLimited)
		return
	}

	code, err := s.link.GenerateCode(ctx, userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.IncLinkEvent("code_generated")
	writeJSON(w, http.StatusOK, generateCodeResponse{
		Success:          true,
		Code:             code.Code,
		ExpiresInMinutes: code.RemainingMinutes(s.now()),
	})
}

func (s *Server) unlink(w http.ResponseWriter, r *http.Request) {
	userID := web.UserID(r.Context())
	if err := s.link.Unbind(logging.WithUserID(r.Context(), userID), userID); err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.IncLinkEvent("unbound")
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st, err := s.link.Status(r.Context(), web.UserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
