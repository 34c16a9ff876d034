package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/repository"
	"lingua-telegram/internal/infra/logging"
)

// Compile-time check
var _ ActivityUseCase = (*activityUC)(nil)

const (
	streakLookbackDays   = 366
	maxQuickWords        = 64
	singleExerciseMinute = 3
	onboardingBooks      = 3
)

// ActivityUseCase answers learning-progress questions for one user. Every
// method takes localNow, the current instant already converted to the user's
// timezone; "today" is the civil date of localNow.
type ActivityUseCase interface {
	Learner(ctx context.Context, userID string) (*model.Learner, error)
	HasActivityToday(ctx context.Context, userID string, localNow time.Time) (bool, error)
	CurrentStreak(ctx context.Context, userID string, localNow time.Time) (int, error)
	DailyPlan(ctx context.Context, userID string, localNow time.Time) (*model.Plan, error)
	DailySummary(ctx context.Context, userID string, localNow time.Time) (*model.Summary, error)
	// TomorrowPreview returns nil when no further lesson exists.
	TomorrowPreview(ctx context.Context, userID string) (*model.Lesson, error)
	// QuickestAction returns nil when there is nothing to suggest.
	QuickestAction(ctx context.Context, userID string, localNow time.Time) (*model.QuickAction, error)
	WeeklyReport(ctx context.Context, userID string, localNow time.Time) (*model.WeeklyReport, error)
	Stats(ctx context.Context, userID string, localNow time.Time) (*model.Stats, error)
}

type activityUC struct {
	repo repository.ActivityRepository
	log  *zerolog.Logger
}

func NewActivityUseCase(repo repository.ActivityRepository, logger *zerolog.Logger) *activityUC {
	return &activityUC{repo: repo, log: logger}
}

func (u *activityUC) Learner(ctx context.Context, userID string) (*model.Learner, error) {
	return u.repo.LearnerProfile(ctx, repository.NoTX, userID)
}

func (u *activityUC) HasActivityToday(ctx context.Context, userID string, localNow time.Time) (bool, error) {
	midnight := model.LocalMidnight(localNow, localNow.Location())
	days, err := u.repo.ActivityDays(ctx, repository.NoTX, userID, localNow.Location().String(), midnight)
	if err != nil {
		return false, fmt.Errorf("activity days: %w", err)
	}
	today := model.DayOf(localNow)
	for _, d := range days {
		if d == today {
			return true, nil
		}
	}
	return false, nil
}

func (u *activityUC) CurrentStreak(ctx context.Context, userID string, localNow time.Time) (int, error) {
	defer logging.TraceDuration(u.log, "ActivityUC.CurrentStreak")()

	loc := localNow.Location()
	midnight := model.LocalMidnight(localNow, loc)
	days, err := u.repo.ActivityDays(ctx, repository.NoTX, userID, loc.String(), addDays(midnight, -streakLookbackDays))
	if err != nil {
		return 0, fmt.Errorf("activity days: %w", err)
	}
	return streakFrom(days, localNow), nil
}

// streakFrom counts consecutive active days ending today, or ending
// yesterday when today has no activity yet.
func streakFrom(days []model.DayKey, localNow time.Time) int {
	active := make(map[model.DayKey]struct{}, len(days))
	for _, d := range days {
		active[d] = struct{}{}
	}

	cursor := model.LocalMidnight(localNow, localNow.Location())
	if _, ok := active[model.DayOf(cursor)]; !ok {
		cursor = addDays(cursor, -1)
	}
	streak := 0
	for {
		if _, ok := active[model.DayOf(cursor)]; !ok {
			return streak
		}
		streak++
		cursor = addDays(cursor, -1)
	}
}

func (u *activityUC) DailyPlan(ctx context.Context, userID string, localNow time.Time) (*model.Plan, error) {
	defer logging.TraceDuration(u.log, "ActivityUC.DailyPlan")()

	ever, err := u.repo.EverActive(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	if !ever {
		ob, err := u.onboarding(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &model.Plan{Onboarding: ob}, nil
	}

	plan := &model.Plan{}

	next, err := optional(u.repo.NextLesson(ctx, repository.NoTX, userID))
	if err != nil {
		return nil, err
	}
	if next != nil {
		plan.Items = append(plan.Items, model.PlanItem{
			Type:    model.PlanLesson,
			Title:   next.Title,
			Minutes: model.EstimateMinutes(next.Kind),
		})
	} else {
		completed, total, err := u.repo.LessonProgress(ctx, repository.NoTX, userID)
		if err != nil {
			return nil, err
		}
		plan.Finished = total > 0 && completed >= total
	}

	pending, err := u.repo.PendingExercises(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		plan.Items = append(plan.Items, model.PlanItem{
			Type:    model.PlanExercises,
			Count:   pending,
			Minutes: model.EstimateMinutes(model.KindGrammar),
		})
	}

	due, err := u.repo.DueWords(ctx, repository.NoTX, userID, localNow)
	if err != nil {
		return nil, err
	}
	if due > 0 {
		plan.Items = append(plan.Items, model.PlanItem{
			Type:    model.PlanWords,
			Count:   due,
			Minutes: model.WordMinutes(due),
		})
	}

	book, err := optional(u.repo.ContinueBook(ctx, repository.NoTX, userID))
	if err != nil {
		return nil, err
	}
	if book != nil {
		plan.Items = append(plan.Items, model.PlanItem{
			Type:    model.PlanBook,
			Title:   book.Title,
			Minutes: model.EstimateMinutes(model.KindText),
		})
	}
	return plan, nil
}

func (u *activityUC) onboarding(ctx context.Context, userID string) (*model.Onboarding, error) {
	learner, err := u.repo.LearnerProfile(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	first, err := optional(u.repo.FirstLesson(ctx, repository.NoTX, learner.Level))
	if err != nil {
		return nil, err
	}
	books, err := u.repo.AvailableBooks(ctx, repository.NoTX, learner.Level, onboardingBooks)
	if err != nil {
		return nil, err
	}
	decks, err := u.repo.DeckCount(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &model.Onboarding{FirstLesson: first, Books: books, NoDecks: decks == 0}, nil
}

func (u *activityUC) DailySummary(ctx context.Context, userID string, localNow time.Time) (*model.Summary, error) {
	defer logging.TraceDuration(u.log, "ActivityUC.DailySummary")()

	from := model.LocalMidnight(localNow, localNow.Location())
	to := addDays(from, 1)

	lessons, err := u.repo.CompletedLessonsBetween(ctx, repository.NoTX, userID, from, to)
	if err != nil {
		return nil, err
	}
	counts, err := u.repo.CountActivity(ctx, repository.NoTX, userID, from, to)
	if err != nil {
		return nil, err
	}
	books, err := u.repo.BooksReadBetween(ctx, repository.NoTX, userID, from, to)
	if err != nil {
		return nil, err
	}
	return &model.Summary{
		Lessons:          lessons,
		ExercisesDone:    counts.ExercisesDone,
		ExercisesCorrect: counts.ExercisesCorrect,
		WordsReviewed:    counts.WordsReviewed,
		Books:            books,
	}, nil
}

func (u *activityUC) TomorrowPreview(ctx context.Context, userID string) (*model.Lesson, error) {
	return optional(u.repo.NextLesson(ctx, repository.NoTX, userID))
}

func (u *activityUC) QuickestAction(ctx context.Context, userID string, localNow time.Time) (*model.QuickAction, error) {
	defer logging.TraceDuration(u.log, "ActivityUC.QuickestAction")()

	due, err := u.repo.DueWords(ctx, repository.NoTX, userID, localNow)
	if err != nil {
		return nil, err
	}
	if due > 0 {
		n := min(due, maxQuickWords)
		return &model.QuickAction{Type: model.ActionWords, Count: n, Minutes: model.WordMinutes(n)}, nil
	}

	pending, err := u.repo.PendingExercises(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return &model.QuickAction{Type: model.ActionExercise, Count: 1, Minutes: singleExerciseMinute}, nil
	}

	lesson, err := optional(u.repo.CurrentLesson(ctx, repository.NoTX, userID))
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		if lesson, err = optional(u.repo.NextLesson(ctx, repository.NoTX, userID)); err != nil {
			return nil, err
		}
	}
	if lesson == nil {
		return nil, nil
	}
	return &model.QuickAction{
		Type:    model.ActionLesson,
		Label:   lesson.Title,
		Count:   1,
		Minutes: model.EstimateMinutes(lesson.Kind),
	}, nil
}

// WeeklyReport compares the 7 days ending today with the 7 days before them.
// Previous is nil only when the learner's first active day falls inside the
// current week; an idle previous week is reported as zeros.
func (u *activityUC) WeeklyReport(ctx context.Context, userID string, localNow time.Time) (*model.WeeklyReport, error) {
	defer logging.TraceDuration(u.log, "ActivityUC.WeeklyReport")()

	loc := localNow.Location()
	end := addDays(model.LocalMidnight(localNow, loc), 1)
	curStart := addDays(end, -7)
	prevStart := addDays(end, -14)

	days, err := u.repo.ActivityDays(ctx, repository.NoTX, userID, loc.String(), addDays(end, -streakLookbackDays))
	if err != nil {
		return nil, fmt.Errorf("activity days: %w", err)
	}

	cur, err := u.week(ctx, userID, days, curStart, end)
	if err != nil {
		return nil, err
	}
	report := &model.WeeklyReport{Current: cur, Streak: streakFrom(days, localNow)}

	prev, err := u.week(ctx, userID, days, prevStart, curStart)
	if err != nil {
		return nil, err
	}
	older, err := u.activeBefore(ctx, userID, days, model.DayOf(curStart), cur.ActiveDays)
	if err != nil {
		return nil, err
	}
	if older {
		report.Previous = &prev
	}

	if report.SRSSize, err = u.repo.SRSSize(ctx, repository.NoTX, userID); err != nil {
		return nil, err
	}
	return report, nil
}

// activeBefore reports whether the learner has any activity before the given day.
// Days older than the lookback window are only visible through EverActive,
// which is meaningful when the current week itself is idle.
func (u *activityUC) activeBefore(ctx context.Context, userID string, days []model.DayKey, day model.DayKey, curActive int) (bool, error) {
	for _, d := range days {
		if d.Before(day) {
			return true, nil
		}
	}
	if curActive > 0 {
		return false, nil
	}
	ever, err := u.repo.EverActive(ctx, repository.NoTX, userID)
	if err != nil {
		return false, fmt.Errorf("ever active: %w", err)
	}
	return ever, nil
}

func (u *activityUC) week(ctx context.Context, userID string, days []model.DayKey, from, to time.Time) (model.WeekStats, error) {
	var ws model.WeekStats
	for d := from; d.Before(to); d = addDays(d, 1) {
		key := model.DayOf(d)
		for _, a := range days {
			if a == key {
				ws.ActiveDays++
				break
			}
		}
	}
	counts, err := u.repo.CountActivity(ctx, repository.NoTX, userID, from, to)
	if err != nil {
		return ws, err
	}
	ws.Lessons = counts.LessonsCompleted
	ws.Exercises = counts.ExercisesDone
	return ws, nil
}

func (u *activityUC) Stats(ctx context.Context, userID string, localNow time.Time) (*model.Stats, error) {
	defer logging.TraceDuration(u.log, "ActivityUC.Stats")()

	streak, err := u.CurrentStreak(ctx, userID, localNow)
	if err != nil {
		return nil, err
	}
	completed, _, err := u.repo.LessonProgress(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	counts, err := u.repo.CountActivity(ctx, repository.NoTX, userID, time.Time{}, localNow.Add(time.Second))
	if err != nil {
		return nil, err
	}
	srs, err := u.repo.SRSSize(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	return &model.Stats{
		Streak:           streak,
		LessonsCompleted: completed,
		ExercisesDone:    counts.ExercisesDone,
		SRSSize:          srs,
	}, nil
}

// addDays moves by civil days, keeping wall-clock time across DST shifts.
func addDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, m, d+n, h, mi, s, t.Nanosecond(), t.Location())
}

// optional turns ErrNotFound into a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
