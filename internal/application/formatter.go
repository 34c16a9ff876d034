package application

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/adapter"
	"lingua-telegram/internal/infra/i18n"
	"lingua-telegram/internal/usecase"
)

var _ usecase.NotificationRenderer = (*Formatter)(nil)

// Formatter renders bot messages in Telegram HTML parse mode. Every string
// that originates from user or content data goes through the strict policy.
type Formatter struct {
	t       *i18n.Translator
	siteURL string
	policy  *bluemonday.Policy
}

func NewFormatter(t *i18n.Translator, siteURL string) *Formatter {
	return &Formatter{t: t, siteURL: siteURL, policy: bluemonday.StrictPolicy()}
}

// T exposes the catalog for one-line replies.
func (f *Formatter) T(key string, args ...interface{}) string { return f.t.T(key, args...) }

func (f *Formatter) esc(s string) string { return f.policy.Sanitize(s) }

func (f *Formatter) siteRow() []adapter.InlineButton {
	if f.siteURL == "" {
		return nil
	}
	return []adapter.InlineButton{{Text: f.t.T("button.open_site"), URL: f.siteURL}}
}

func (f *Formatter) siteKeyboard() adapter.Keyboard {
	if row := f.siteRow(); row != nil {
		return adapter.Keyboard{row}
	}
	return nil
}

func joinLines(lines []string) string { return strings.Join(lines, "\n") }

// ---- scheduled notifications ----

func (f *Formatter) FormatMorning(name string, streak int, plan *model.Plan) (string, adapter.Keyboard) {
	lines := []string{f.t.T("morning.greeting", f.esc(name))}
	if streak > 0 {
		lines = append(lines, f.t.T("morning.streak", streak))
	}
	lines = append(lines, "")

	switch {
	case plan == nil:
	case plan.Onboarding != nil:
		lines = append(lines, f.onboardingLines(plan.Onboarding)...)
	default:
		if len(plan.Items) > 0 {
			lines = append(lines, f.t.T("morning.plan_header", plan.TotalMinutes()))
			for i, it := range plan.Items {
				lines = append(lines, f.t.T("plan.step", i+1, f.planItem(it)))
			}
		}
		if plan.Finished {
			lines = append(lines, f.t.T("plan.finished"))
		}
	}
	return strings.TrimRight(joinLines(lines), "\n"), f.siteKeyboard()
}

func (f *Formatter) planItem(it model.PlanItem) string {
	switch it.Type {
	case model.PlanLesson:
		return f.t.T("plan.lesson", f.esc(it.Title), it.Minutes)
	case model.PlanExercises:
		return f.t.T("plan.exercises", it.Count, it.Minutes)
	case model.PlanWords:
		return f.t.T("plan.words", it.Count, it.Minutes)
	case model.PlanBook:
		return f.t.T("plan.book", f.esc(it.Title), it.Minutes)
	}
	return ""
}

func (f *Formatter) onboardingLines(ob *model.Onboarding) []string {
	lines := []string{f.t.T("onboarding.header")}
	if ob.FirstLesson != nil {
		lines = append(lines, f.t.T("onboarding.first_lesson", f.esc(ob.FirstLesson.Title)))
	}
	if len(ob.Books) > 0 {
		titles := make([]string, 0, len(ob.Books))
		for _, b := range ob.Books {
			titles = append(titles, "«"+f.esc(b.Title)+"»")
		}
		lines = append(lines, f.t.T("onboarding.books", strings.Join(titles, ", ")))
	}
	if ob.NoDecks {
		lines = append(lines, f.t.T("onboarding.no_decks"))
	}
	return lines
}

func (f *Formatter) FormatEvening(name string, summary *model.Summary, tomorrow *model.Lesson) (string, adapter.Keyboard) {
	lines := []string{f.t.T("evening.header", f.esc(name)), ""}
	if summary != nil && !summary.IsEmpty() {
		if len(summary.Lessons) > 0 {
			lines = append(lines, f.t.T("evening.lessons", f.escJoin(summary.Lessons)))
		}
		if summary.ExercisesDone > 0 {
			lines = append(lines, f.t.T("evening.exercises", summary.ExercisesDone, summary.ExercisesCorrect))
		}
		if summary.WordsReviewed > 0 {
			lines = append(lines, f.t.T("evening.words", summary.WordsReviewed))
		}
		if len(summary.Books) > 0 {
			lines = append(lines, f.t.T("evening.books", f.escJoin(summary.Books)))
		}
	}
	if tomorrow != nil {
		lines = append(lines, "", f.t.T("evening.tomorrow", f.esc(tomorrow.Title)))
	}
	lines = append(lines, "", f.t.T("evening.ask"))

	kb := adapter.Keyboard{f.reflectionRow()}
	if row := f.siteRow(); row != nil {
		kb = append(kb, row)
	}
	return joinLines(lines), kb
}

func (f *Formatter) reflectionRow() []adapter.InlineButton {
	return []adapter.InlineButton{
		{Text: f.t.T("reflect.hard"), Data: model.ReflectAction(model.ReflectionHard).Data()},
		{Text: f.t.T("reflect.ok"), Data: model.ReflectAction(model.ReflectionOK).Data()},
		{Text: f.t.T("reflect.easy"), Data: model.ReflectAction(model.ReflectionEasy).Data()},
	}
}

func (f *Formatter) escJoin(items []string) string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, f.esc(s))
	}
	return strings.Join(out, ", ")
}

func (f *Formatter) FormatNudge(name string, action *model.QuickAction) (string, adapter.Keyboard) {
	lines := []string{f.t.T("nudge.text", f.esc(name)), f.quickLine(action)}
	return joinLines(lines), f.siteKeyboard()
}

func (f *Formatter) FormatStreakRescue(name string, streak int, action *model.QuickAction) (string, adapter.Keyboard) {
	lines := []string{f.t.T("streak.text", f.esc(name), streak), f.quickLine(action)}
	return joinLines(lines), f.siteKeyboard()
}

func (f *Formatter) quickLine(a *model.QuickAction) string {
	if a == nil {
		return f.t.T("nudge.fallback")
	}
	var what string
	switch a.Type {
	case model.ActionWords:
		what = f.t.T("action.words", a.Count)
	case model.ActionExercise:
		what = f.t.T("action.exercise")
	case model.ActionLesson:
		what = f.t.T("action.lesson", f.esc(a.Label))
	default:
		return f.t.T("nudge.fallback")
	}
	return f.t.T("quick.line", what, a.Minutes)
}

func (f *Formatter) FormatWeeklyReport(name string, r *model.WeeklyReport) (string, adapter.Keyboard) {
	lines := []string{
		f.t.T("weekly.header", f.esc(name)),
		"",
		f.t.T("weekly.days", r.Current.ActiveDays),
		f.t.T("weekly.lessons", r.Current.Lessons),
		f.t.T("weekly.exercises", r.Current.Exercises),
		f.t.T("weekly.srs", r.SRSSize),
		f.t.T("weekly.streak", r.Streak),
		"",
	}
	if r.Previous != nil {
		lines = append(lines, f.t.T("weekly.delta",
			r.Current.ActiveDays-r.Previous.ActiveDays,
			r.Current.Lessons-r.Previous.Lessons))
	} else {
		lines = append(lines, f.t.T("weekly.first"))
	}
	return joinLines(lines), f.siteKeyboard()
}

// ---- command replies ----

func (f *Formatter) Welcome() (string, adapter.Keyboard) {
	return f.t.T("start.welcome", f.siteURL), f.siteKeyboard()
}

func (f *Formatter) WelcomeBack(name string) string {
	return f.t.T("start.linked", f.esc(name))
}

func (f *Formatter) LinkSuccess(b *model.Binding) string {
	return f.t.T("link.success", b.Timezone, b.MorningHour, b.MiddayHour, b.EveningHour, b.StreakHour)
}

func (f *Formatter) Stats(s *model.Stats) string {
	return joinLines([]string{
		f.t.T("stats.header"),
		f.t.T("stats.streak", s.Streak),
		f.t.T("stats.lessons", s.LessonsCompleted),
		f.t.T("stats.exercises", s.ExercisesDone),
		f.t.T("stats.srs", s.SRSSize),
	})
}

// Commands is the bot menu installed with setMyCommands.
func (f *Formatter) Commands() []adapter.BotCommand {
	names := []string{"start", "link", "settings", "stats", "unlink", "help"}
	out := make([]adapter.BotCommand, 0, len(names))
	for _, n := range names {
		out = append(out, adapter.BotCommand{Command: n, Description: f.t.T("cmd." + n)})
	}
	return out
}

// ---- settings screens ----

// Settings renders the root screen: one row per slot with its toggle and
// its hour, then the timezone row.
func (f *Formatter) Settings(b *model.Binding) (string, adapter.Keyboard) {
	kb := make(adapter.Keyboard, 0, len(model.Slots)+1)
	for _, s := range model.Slots {
		mark := f.t.T("settings.off")
		if b.Enabled(s) {
			mark = f.t.T("settings.on")
		}
		kb = append(kb, []adapter.InlineButton{
			{Text: fmt.Sprintf("%s %s", mark, f.t.T("slot."+string(s))), Data: model.ToggleAction(s).Data()},
			{Text: f.t.T("settings.time", b.Hour(s)), Data: model.PickTimeAction(s).Data()},
		})
	}
	kb = append(kb, []adapter.InlineButton{{Text: f.t.T("settings.tz_button"), Data: model.PickTzAction().Data()}})
	return f.t.T("settings.title", b.Timezone), kb
}

const (
	pickerFirstHour = 6
	pickerLastHour  = 23
	hoursPerRow     = 6
	zonesPerRow     = 2
)

// TimePicker offers hours 06..23; the current hour is marked.
func (f *Formatter) TimePicker(b *model.Binding, slot model.Slot) (string, adapter.Keyboard) {
	current := b.Hour(slot)
	var (
		kb  adapter.Keyboard
		row []adapter.InlineButton
	)
	for h := pickerFirstHour; h <= pickerLastHour; h++ {
		label := fmt.Sprintf("%02d:00", h)
		if h == current {
			label = "• " + label + " •"
		}
		row = append(row, adapter.InlineButton{Text: label, Data: model.SetTimeAction(slot, h).Data()})
		if len(row) == hoursPerRow {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	kb = append(kb, f.backRow())
	return f.t.T("settings.time_title", f.t.T("slot."+string(slot))), kb
}

func (f *Formatter) TzPicker(b *model.Binding) (string, adapter.Keyboard) {
	var (
		kb  adapter.Keyboard
		row []adapter.InlineButton
	)
	for _, z := range model.SupportedTimezones {
		label := zoneLabel(z)
		if z == b.Timezone {
			label = "• " + label + " •"
		}
		row = append(row, adapter.InlineButton{Text: label, Data: model.SetTzAction(z).Data()})
		if len(row) == zonesPerRow {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	kb = append(kb, f.backRow())
	return f.t.T("settings.tz_title"), kb
}

func (f *Formatter) backRow() []adapter.InlineButton {
	return []adapter.InlineButton{{Text: f.t.T("settings.back"), Data: model.BackAction().Data()}}
}

// zoneLabel renders "Asia/Novosibirsk" as "Novosibirsk".
func zoneLabel(zone string) string {
	if i := strings.LastIndex(zone, "/"); i >= 0 {
		return strings.ReplaceAll(zone[i+1:], "_", " ")
	}
	return zone
}
