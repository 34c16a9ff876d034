package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrOperationFailed    = errors.New("operation failed")

	// Credential errors. Missing/NotFound/Expired/Revoked map to 401, InsufficientScope to 403.
	ErrMissingToken       = errors.New("missing token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrInsufficientScope  = errors.New("insufficient scope")
	ErrInvalidScope       = errors.New("invalid scope")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// Linking errors
	ErrAlreadyLinked        = errors.New("user already linked to telegram")
	ErrTelegramAlreadyBound = errors.New("telegram account already bound to another user")
	ErrInvalidCode          = errors.New("link code invalid or expired")

	ErrRateLimited = errors.New("rate limit exceeded")
	ErrTransport   = errors.New("telegram transport error")
	ErrConfig      = errors.New("telegram subsystem not configured")
)
