package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lingua-telegram/internal/domain"
)

// ===== Platform session primitives =====
//
// The learning site signs a short JWT for the logged-in user. The linking
// endpoints only need the user id out of it.

type AuthConfig struct {
	HMACSecret   []byte
	CookieName   string
	CookieDomain string
	SecureCookie bool
	TTL          time.Duration
}

type AuthManager struct {
	cfg AuthConfig
	now func() time.Time
}

func NewAuthManager(secret, cookieName string, secure bool, cookieDomain string, ttl time.Duration) *AuthManager {
	if cookieName == "" {
		cookieName = "session"
	}
	return &AuthManager{
		cfg: AuthConfig{
			HMACSecret:   []byte(secret),
			CookieName:   cookieName,
			CookieDomain: cookieDomain,
			SecureCookie: secure,
			TTL:          ttl,
		},
		now: time.Now,
	}
}

type SessionClaims struct {
	jwt.RegisteredClaims
}

// UserID is the platform user the session belongs to.
func (c *SessionClaims) UserID() string { return c.Subject }

func (a *AuthManager) Mint(w http.ResponseWriter, userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrInvalidArgument
	}
	now := a.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.cfg.HMACSecret)
	if err != nil {
		return "", err
	}

	if w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     a.cfg.CookieName,
			Value:    signed,
			Path:     "/",
			Domain:   a.cfg.CookieDomain,
			MaxAge:   int(a.cfg.TTL.Seconds()),
			HttpOnly: true,
			Secure:   a.cfg.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return signed, nil
}

var (
	ErrNoSession      = errors.New("missing session")
	ErrInvalidSession = errors.New("invalid session")
)

func (a *AuthManager) ParseFromRequest(r *http.Request) (*SessionClaims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
	}
	// Cookie
	if c, err := r.Cookie(a.cfg.CookieName); err == nil {
		return a.parse(c.Value)
	}
	return nil, ErrNoSession
}

func (a *AuthManager) parse(tok string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

type ctxKey struct{}

// RequireSession rejects requests without a valid session and stores the
// user id for UserID.
func (a *AuthManager) RequireSession(onFail func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := a.ParseFromRequest(r)
			if err != nil {
				onFail(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, claims.UserID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the session user set by RequireSession.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}
