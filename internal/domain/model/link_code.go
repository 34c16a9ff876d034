package model

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const (
	LinkCodeTTL    = 15 * time.Minute
	linkCodeDigits = 6
)

// LinkCode is a short-lived claim that a Telegram chat may bind to UserID.
type LinkCode struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func NewLinkCode(userID string, now time.Time) (*LinkCode, error) {
	code, err := GenerateLinkCode()
	if err != nil {
		return nil, err
	}
	return &LinkCode{
		ID:        uuid.NewString(),
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(LinkCodeTTL),
		CreatedAt: now,
	}, nil
}

// GenerateLinkCode returns a uniformly random 6-digit decimal string.
func GenerateLinkCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", linkCodeDigits, n.Int64()), nil
}

// IsLinkCodeFormat reports whether s is exactly six ASCII digits.
func IsLinkCodeFormat(s string) bool {
	if len(s) != linkCodeDigits {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (c *LinkCode) IsLive(now time.Time) bool { return now.Before(c.ExpiresAt) }

// RemainingMinutes rounds up, so a fresh code reports 15.
func (c *LinkCode) RemainingMinutes(now time.Time) int {
	d := c.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}
