package model

import (
	"strings"
	"time"

	"lingua-telegram/internal/domain"

	"github.com/google/uuid"
)

const DefaultTimezone = "Europe/Moscow"

// Slot is one of the four user-configurable notification schedules.
type Slot string

const (
	SlotMorning Slot = "morning"
	SlotMidday  Slot = "midday"
	SlotEvening Slot = "evening"
	SlotStreak  Slot = "streak"
)

// Slots lists settings rows in display order.
var Slots = []Slot{SlotMorning, SlotMidday, SlotEvening, SlotStreak}

func ParseSlot(s string) (Slot, bool) {
	switch Slot(s) {
	case SlotMorning, SlotMidday, SlotEvening, SlotStreak:
		return Slot(s), true
	}
	return "", false
}

// Reflection is the user's self-rating of today's session.
type Reflection string

const (
	ReflectionHard Reflection = "hard"
	ReflectionOK   Reflection = "ok"
	ReflectionEasy Reflection = "easy"
)

func ParseReflection(s string) (Reflection, bool) {
	switch Reflection(s) {
	case ReflectionHard, ReflectionOK, ReflectionEasy:
		return Reflection(s), true
	}
	return "", false
}

// SupportedTimezones is the fixed list offered by the settings timezone picker.
var SupportedTimezones = []string{
	"Europe/Kaliningrad",
	"Europe/Moscow",
	"Europe/Samara",
	"Asia/Yekaterinburg",
	"Asia/Omsk",
	"Asia/Novosibirsk",
	"Asia/Krasnoyarsk",
	"Asia/Irkutsk",
	"Asia/Yakutsk",
	"Asia/Vladivostok",
	"Asia/Magadan",
	"Asia/Kamchatka",
}

// Binding links one platform user to one Telegram chat.
type Binding struct {
	ID               string
	UserID           string
	TelegramID       int64
	TelegramUsername string
	Timezone         string
	LinkedAt         time.Time
	IsActive         bool

	MorningEnabled bool
	MiddayEnabled  bool
	EveningEnabled bool
	StreakEnabled  bool

	MorningHour int
	MiddayHour  int
	EveningHour int
	StreakHour  int

	LastReflection   *Reflection
	LastReflectionAt *time.Time
}

// NewBinding creates an active binding with default notification preferences.
func NewBinding(userID string, tgID int64, username string, now time.Time) (*Binding, error) {
	if userID == "" || tgID == 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Binding{
		ID:               uuid.NewString(),
		UserID:           userID,
		TelegramID:       tgID,
		TelegramUsername: strings.TrimPrefix(username, "@"),
		Timezone:         DefaultTimezone,
		LinkedAt:         now,
		IsActive:         true,
		MorningEnabled:   true,
		MiddayEnabled:    true,
		EveningEnabled:   true,
		StreakEnabled:    true,
		MorningHour:      9,
		MiddayHour:       14,
		EveningHour:      21,
		StreakHour:       22,
	}, nil
}

// Location resolves the binding's timezone, falling back to the default zone.
func (b *Binding) Location() *time.Location {
	if loc, err := time.LoadLocation(b.Timezone); err == nil {
		return loc
	}
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (b *Binding) Enabled(s Slot) bool {
	switch s {
	case SlotMorning:
		return b.MorningEnabled
	case SlotMidday:
		return b.MiddayEnabled
	case SlotEvening:
		return b.EveningEnabled
	case SlotStreak:
		return b.StreakEnabled
	}
	return false
}

func (b *Binding) Hour(s Slot) int {
	switch s {
	case SlotMorning:
		return b.MorningHour
	case SlotMidday:
		return b.MiddayHour
	case SlotEvening:
		return b.EveningHour
	case SlotStreak:
		return b.StreakHour
	}
	return -1
}

// Toggle flips the slot's enabled flag and returns the new value.
func (b *Binding) Toggle(s Slot) bool {
	switch s {
	case SlotMorning:
		b.MorningEnabled = !b.MorningEnabled
	case SlotMidday:
		b.MiddayEnabled = !b.MiddayEnabled
	case SlotEvening:
		b.EveningEnabled = !b.EveningEnabled
	case SlotStreak:
		b.StreakEnabled = !b.StreakEnabled
	}
	return b.Enabled(s)
}

// SetHour stores a send hour; hours outside [0,23] are rejected.
func (b *Binding) SetHour(s Slot, hour int) error {
	if hour < 0 || hour > 23 {
		return domain.ErrInvalidArgument
	}
	switch s {
	case SlotMorning:
		b.MorningHour = hour
	case SlotMidday:
		b.MiddayHour = hour
	case SlotEvening:
		b.EveningHour = hour
	case SlotStreak:
		b.StreakHour = hour
	default:
		return domain.ErrInvalidArgument
	}
	return nil
}

// SetTimezone accepts only zones resolvable by the zoneinfo database.
func (b *Binding) SetTimezone(zone string) error {
	if zone == "" {
		return domain.ErrInvalidArgument
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return domain.ErrInvalidArgument
	}
	b.Timezone = zone
	return nil
}

func (b *Binding) Reflect(r Reflection, now time.Time) {
	b.LastReflection = &r
	b.LastReflectionAt = &now
}
