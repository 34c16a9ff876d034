package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
	"lingua-telegram/internal/domain/ports/repository"
)

var _ repository.ActivityRepository = (*activityRepo)(nil)

// activityRepo is a read-only view over the platform's learning tables:
// lessons, lesson_attempts, exercises, exercise_attempts, decks, user_cards,
// card_reviews, books and chapter_reads.
type activityRepo struct{ pool *pgxpool.Pool }

func NewActivityRepo(pool *pgxpool.Pool) *activityRepo {
	return &activityRepo{pool: pool}
}

// activityEvents yields one ts per learning event of user $1 at or after $2.
const activityEvents = `
SELECT started_at AS ts FROM lesson_attempts WHERE user_id=$1 AND started_at >= $2
UNION ALL
SELECT completed_at FROM lesson_attempts WHERE user_id=$1 AND completed_at >= $2
UNION ALL
SELECT created_at FROM exercise_attempts WHERE user_id=$1 AND created_at >= $2
UNION ALL
SELECT reviewed_at FROM card_reviews WHERE user_id=$1 AND reviewed_at >= $2
UNION ALL
SELECT read_at FROM chapter_reads WHERE user_id=$1 AND read_at >= $2`

func (r *activityRepo) ActivityDays(ctx context.Context, tx repository.Tx, userID, tz string, since time.Time) ([]model.DayKey, error) {
	q := `SELECT DISTINCT (ev.ts AT TIME ZONE $3)::date AS d FROM (` + activityEvents + `) ev ORDER BY d DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, since, tz)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []model.DayKey
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		days = append(days, model.DayOf(d))
	}
	return days, rows.Err()
}

func (r *activityRepo) CountActivity(ctx context.Context, tx repository.Tx, userID string, from, to time.Time) (model.ActivityCounts, error) {
	const q = `
SELECT
  (SELECT COUNT(DISTINCT lesson_id) FROM lesson_attempts
     WHERE user_id=$1 AND completed_at >= $2 AND completed_at < $3),
  (SELECT COUNT(*) FROM exercise_attempts ea JOIN exercises e ON e.id = ea.exercise_id
     WHERE ea.user_id=$1 AND e.kind='grammar' AND ea.created_at >= $2 AND ea.created_at < $3),
  (SELECT COUNT(*) FROM exercise_attempts ea JOIN exercises e ON e.id = ea.exercise_id
     WHERE ea.user_id=$1 AND e.kind='grammar' AND ea.is_correct AND ea.created_at >= $2 AND ea.created_at < $3),
  (SELECT COUNT(*) FROM card_reviews WHERE user_id=$1 AND reviewed_at >= $2 AND reviewed_at < $3),
  (SELECT COUNT(*) FROM chapter_reads WHERE user_id=$1 AND read_at >= $2 AND read_at < $3);`
	var c model.ActivityCounts
	row, err := pickRow(ctx, r.pool, tx, q, userID, from, to)
	if err != nil {
		return c, err
	}
	if err := row.Scan(&c.LessonsCompleted, &c.ExercisesDone, &c.ExercisesCorrect, &c.WordsReviewed, &c.ChaptersRead); err != nil {
		return model.ActivityCounts{}, domain.ErrReadDatabaseRow
	}
	return c, nil
}

func (r *activityRepo) EverActive(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	q := `SELECT EXISTS(` + activityEvents + `);`
	row, err := pickRow(ctx, r.pool, tx, q, userID, time.Time{})
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return ok, nil
}

func (r *activityRepo) CompletedLessonsBetween(ctx context.Context, tx repository.Tx, userID string, from, to time.Time) ([]string, error) {
	const q = `
SELECT l.title FROM lessons l
  JOIN (SELECT lesson_id, MIN(completed_at) AS at FROM lesson_attempts
         WHERE user_id=$1 AND completed_at >= $2 AND completed_at < $3
         GROUP BY lesson_id) done ON done.lesson_id = l.id
 ORDER BY done.at;`
	return r.titles(ctx, tx, q, userID, from, to)
}

func (r *activityRepo) BooksReadBetween(ctx context.Context, tx repository.Tx, userID string, from, to time.Time) ([]string, error) {
	const q = `
SELECT b.title FROM books b
  JOIN (SELECT book_id, MIN(read_at) AS at FROM chapter_reads
         WHERE user_id=$1 AND read_at >= $2 AND read_at < $3
         GROUP BY book_id) rd ON rd.book_id = b.id
 ORDER BY rd.at;`
	return r.titles(ctx, tx, q, userID, from, to)
}

func (r *activityRepo) LearnerProfile(ctx context.Context, tx repository.Tx, userID string) (*model.Learner, error) {
	const q = `SELECT id, COALESCE(NULLIF(display_name, ''), username), level FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	var l model.Learner
	if err := row.Scan(&l.UserID, &l.DisplayName, &l.Level); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &l, nil
}

const lessonColumns = `l.id, l.title, l.kind, l.level, l.position`

func (r *activityRepo) NextLesson(ctx context.Context, tx repository.Tx, userID string) (*model.Lesson, error) {
	const q = `
SELECT ` + lessonColumns + ` FROM lessons l
  JOIN users u ON u.id=$1 AND l.level = u.level
 WHERE NOT EXISTS (SELECT 1 FROM lesson_attempts la
                    WHERE la.lesson_id = l.id AND la.user_id=$1 AND la.completed_at IS NOT NULL)
 ORDER BY l.position
 LIMIT 1;`
	return r.lesson(ctx, tx, q, userID)
}

func (r *activityRepo) CurrentLesson(ctx context.Context, tx repository.Tx, userID string) (*model.Lesson, error) {
	const q = `
SELECT ` + lessonColumns + ` FROM lesson_attempts la
  JOIN lessons l ON l.id = la.lesson_id
 WHERE la.user_id=$1 AND la.completed_at IS NULL
   AND NOT EXISTS (SELECT 1 FROM lesson_attempts d
                    WHERE d.lesson_id = la.lesson_id AND d.user_id=$1 AND d.completed_at IS NOT NULL)
 ORDER BY la.started_at DESC
 LIMIT 1;`
	return r.lesson(ctx, tx, q, userID)
}

func (r *activityRepo) FirstLesson(ctx context.Context, tx repository.Tx, level string) (*model.Lesson, error) {
	const q = `SELECT ` + lessonColumns + ` FROM lessons l WHERE l.level=$1 ORDER BY l.position LIMIT 1;`
	return r.lesson(ctx, tx, q, level)
}

func (r *activityRepo) LessonProgress(ctx context.Context, tx repository.Tx, userID string) (int, int, error) {
	const q = `
SELECT
  (SELECT COUNT(DISTINCT la.lesson_id) FROM lesson_attempts la
     JOIN lessons l ON l.id = la.lesson_id
     JOIN users u ON u.id = la.user_id AND l.level = u.level
    WHERE la.user_id=$1 AND la.completed_at IS NOT NULL),
  (SELECT COUNT(*) FROM lessons l JOIN users u ON u.id=$1 AND l.level = u.level);`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, 0, err
	}
	var completed, total int
	if err := row.Scan(&completed, &total); err != nil {
		return 0, 0, domain.ErrReadDatabaseRow
	}
	return completed, total, nil
}

func (r *activityRepo) PendingExercises(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	const q = `
SELECT COUNT(DISTINCT e.id) FROM exercises e
  JOIN lesson_attempts la ON la.lesson_id = e.lesson_id AND la.user_id=$1
 WHERE e.kind='grammar'
   AND NOT EXISTS (SELECT 1 FROM exercise_attempts ea
                    WHERE ea.exercise_id = e.id AND ea.user_id=$1 AND ea.is_correct);`
	return r.count(ctx, tx, q, userID)
}

func (r *activityRepo) DueWords(ctx context.Context, tx repository.Tx, userID string, at time.Time) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM user_cards WHERE user_id=$1 AND due_at <= $2;`, userID, at)
}

func (r *activityRepo) SRSSize(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM user_cards WHERE user_id=$1;`, userID)
}

func (r *activityRepo) DeckCount(ctx context.Context, tx repository.Tx) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM decks;`)
}

func (r *activityRepo) ContinueBook(ctx context.Context, tx repository.Tx, userID string) (*model.Book, error) {
	const q = `
SELECT b.id, b.title FROM chapter_reads cr
  JOIN books b ON b.id = cr.book_id
 WHERE cr.user_id=$1
 ORDER BY cr.read_at DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	var b model.Book
	if err := row.Scan(&b.ID, &b.Title); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &b, nil
}

func (r *activityRepo) AvailableBooks(ctx context.Context, tx repository.Tx, level string, limit int) ([]model.Book, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT id, title FROM books WHERE level=$1 ORDER BY title LIMIT $2;`, level, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *activityRepo) lesson(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Lesson, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	var l model.Lesson
	if err := row.Scan(&l.ID, &l.Title, &l.Kind, &l.Level, &l.Position); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &l, nil
}

func (r *activityRepo) count(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", domain.ErrReadDatabaseRow)
	}
	return n, nil
}

func (r *activityRepo) titles(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]string, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
