package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"lingua-telegram/internal/domain"
)

const msgInternal = "Internal server error"

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Success: false, Error: msg})
}

// httpError is the single place where error kinds become HTTP statuses.
// Messages never carry internal detail.
func httpError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return http.StatusUnauthorized, "Missing token"
	case errors.Is(err, domain.ErrTokenNotFound):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, domain.ErrTokenRevoked):
		return http.StatusUnauthorized, "Token revoked"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, domain.ErrInsufficientScope):
		return http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, domain.ErrInvalidScope):
		return http.StatusBadRequest, "Invalid scope"
	case errors.Is(err, domain.ErrAlreadyLinked):
		return http.StatusBadRequest, "Telegram is already linked"
	case errors.Is(err, domain.ErrTelegramAlreadyBound):
		return http.StatusBadRequest, "This Telegram account is linked to another user"
	case errors.Is(err, domain.ErrInvalidCode):
		return http.StatusBadRequest, "Code is invalid or expired"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests, try again later"
	}
	return http.StatusInternalServerError, msgInternal
}
