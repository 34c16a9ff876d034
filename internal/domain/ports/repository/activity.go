package repository

import (
	"context"
	"time"

	"lingua-telegram/internal/domain/model"
)

// ActivityRepository is the read-only query surface over the learning
// database. Implementations must not mutate any row. Single-entity finders
// return domain.ErrNotFound when nothing matches.
type ActivityRepository interface {
	// ActivityDays returns the distinct civil dates, in zone tz, on which the
	// user had any lesson attempt, card review or chapter read since `since`.
	ActivityDays(ctx context.Context, tx Tx, userID, tz string, since time.Time) ([]model.DayKey, error)
	CountActivity(ctx context.Context, tx Tx, userID string, from, to time.Time) (model.ActivityCounts, error)
	EverActive(ctx context.Context, tx Tx, userID string) (bool, error)

	CompletedLessonsBetween(ctx context.Context, tx Tx, userID string, from, to time.Time) ([]string, error)
	BooksReadBetween(ctx context.Context, tx Tx, userID string, from, to time.Time) ([]string, error)

	LearnerProfile(ctx context.Context, tx Tx, userID string) (*model.Learner, error)
	NextLesson(ctx context.Context, tx Tx, userID string) (*model.Lesson, error)
	CurrentLesson(ctx context.Context, tx Tx, userID string) (*model.Lesson, error)
	FirstLesson(ctx context.Context, tx Tx, level string) (*model.Lesson, error)
	LessonProgress(ctx context.Context, tx Tx, userID string) (completed, total int, err error)

	PendingExercises(ctx context.Context, tx Tx, userID string) (int, error)
	DueWords(ctx context.Context, tx Tx, userID string, at time.Time) (int, error)
	SRSSize(ctx context.Context, tx Tx, userID string) (int, error)
	DeckCount(ctx context.Context, tx Tx) (int, error)

	ContinueBook(ctx context.Context, tx Tx, userID string) (*model.Book, error)
	AvailableBooks(ctx context.Context, tx Tx, level string, limit int) ([]model.Book, error)
}
