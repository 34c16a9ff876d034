package model

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"sort"
	"strings"
	"time"

	"lingua-telegram/internal/domain"

	"github.com/oklog/ulid/v2"
)

// Scope is a single permission carried by a bot credential.
type Scope string

const (
	ScopeRead  Scope = "read"
	ScopeWrite Scope = "write"
	ScopeAdmin Scope = "admin"
)

const (
	DefaultCredentialTTLDays = 90
	credentialTokenBytes     = 32
)

var knownScopes = map[Scope]struct{}{
	ScopeRead:  {},
	ScopeWrite: {},
	ScopeAdmin: {},
}

// ScopeSet is an unordered set of scopes.
type ScopeSet map[Scope]struct{}

// ParseScopes parses a comma-separated scope list. Order and whitespace are irrelevant,
// duplicates collapse. Unknown or empty lists fail with domain.ErrInvalidScope.
func ParseScopes(raw string) (ScopeSet, error) {
	set := ScopeSet{}
	for _, part := range strings.Split(raw, ",") {
		s := Scope(strings.ToLower(strings.TrimSpace(part)))
		if s == "" {
			continue
		}
		if _, ok := knownScopes[s]; !ok {
			return nil, domain.ErrInvalidScope
		}
		set[s] = struct{}{}
	}
	if len(set) == 0 {
		return nil, domain.ErrInvalidScope
	}
	return set, nil
}

// Allows reports whether the set satisfies the required scope. Admin satisfies everything.
func (s ScopeSet) Allows(required Scope) bool {
	if _, ok := s[ScopeAdmin]; ok {
		return true
	}
	_, ok := s[required]
	return ok
}

// String renders the set in a stable order, e.g. "read,write".
func (s ScopeSet) String() string {
	out := make([]string, 0, len(s))
	for sc := range s {
		out = append(out, string(sc))
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// Credential is a bearer token authorizing bot API calls on behalf of one platform user.
type Credential struct {
	ID          string
	UserID      string
	Token       string
	Scopes      ScopeSet
	CreatedAt   time.Time
	ExpiresAt   time.Time
	LastUsedAt  *time.Time
	RevokedAt   *time.Time
	DeviceLabel string
	UserAgent   string
}

// NewCredential mints a credential with a fresh random token.
func NewCredential(userID string, scopes ScopeSet, ttlDays int, deviceLabel, userAgent string, now time.Time) (*Credential, error) {
	if userID == "" || len(scopes) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	if ttlDays <= 0 {
		ttlDays = DefaultCredentialTTLDays
	}
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	return &Credential{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Token:       token,
		Scopes:      scopes,
		CreatedAt:   now,
		ExpiresAt:   now.AddDate(0, 0, ttlDays),
		DeviceLabel: strings.TrimSpace(deviceLabel),
		UserAgent:   userAgent,
	}, nil
}

// GenerateToken returns 32 bytes of crypto randomness, URL-safe base64 encoded.
func GenerateToken() (string, error) {
	buf := make([]byte, credentialTokenBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Check returns nil when the credential is usable at `now`.
func (c *Credential) Check(now time.Time) error {
	if c.RevokedAt != nil {
		return domain.ErrTokenRevoked
	}
	if !now.Before(c.ExpiresAt) {
		return domain.ErrTokenExpired
	}
	return nil
}

func (c *Credential) IsValid(now time.Time) bool { return c.Check(now) == nil }
