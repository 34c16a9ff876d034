package model

import "time"

// NotificationKind enumerates the scheduled messages.
type NotificationKind string

const (
	NotifyNone         NotificationKind = ""
	NotifyMorning      NotificationKind = "morning"
	NotifyMiddayNudge  NotificationKind = "midday_nudge"
	NotifyEvening      NotificationKind = "evening_summary"
	NotifyWeeklyReport NotificationKind = "weekly_report"
	NotifyStreakRescue NotificationKind = "streak_rescue"
)

// ActivityFacts lazily answers the data-dependent parts of the selection rule,
// so a binding with no matching hour costs no queries.
type ActivityFacts interface {
	HasActivityToday() (bool, error)
	Streak() (int, error)
}

// SelectNotification applies the hourly dispatch rule; first match wins.
// localNow must already be in the binding's timezone.
func SelectNotification(b *Binding, localNow time.Time, facts ActivityFacts) (NotificationKind, error) {
	hour := localNow.Hour()

	if hour == b.MorningHour && b.MorningEnabled {
		return NotifyMorning, nil
	}
	if hour == b.MiddayHour && b.MiddayEnabled {
		active, err := facts.HasActivityToday()
		if err != nil {
			return NotifyNone, err
		}
		if !active {
			return NotifyMiddayNudge, nil
		}
	}
	if hour == b.EveningHour-1 && localNow.Weekday() == time.Sunday && b.EveningEnabled {
		return NotifyWeeklyReport, nil
	}
	if hour == b.EveningHour && b.EveningEnabled {
		active, err := facts.HasActivityToday()
		if err != nil {
			return NotifyNone, err
		}
		if active {
			return NotifyEvening, nil
		}
	}
	if hour == b.StreakHour && b.StreakEnabled {
		active, err := facts.HasActivityToday()
		if err != nil {
			return NotifyNone, err
		}
		if !active {
			streak, err := facts.Streak()
			if err != nil {
				return NotifyNone, err
			}
			if streak >= 1 {
				return NotifyStreakRescue, nil
			}
		}
	}
	return NotifyNone, nil
}
