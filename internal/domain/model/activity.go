package model

import "time"

// Exercise kinds used for time estimates. Anything else costs defaultMinutes.
const (
	KindVocabulary = "vocabulary"
	KindGrammar    = "grammar"
	KindQuiz       = "quiz"
	KindMatching   = "matching"
	KindText       = "text"
	KindCard       = "card"
	KindCheckpoint = "checkpoint"

	defaultMinutes = 10
	wordsPerMinute = 8
)

var kindMinutes = map[string]int{
	KindVocabulary: 10,
	KindGrammar:    12,
	KindQuiz:       8,
	KindMatching:   5,
	KindText:       15,
	KindCard:       5,
	KindCheckpoint: 15,
}

// EstimateMinutes returns the expected duration of one task of the given kind.
func EstimateMinutes(kind string) int {
	if m, ok := kindMinutes[kind]; ok {
		return m
	}
	return defaultMinutes
}

// WordMinutes is max(1, ceil(count/8)).
func WordMinutes(count int) int {
	m := (count + wordsPerMinute - 1) / wordsPerMinute
	if m < 1 {
		return 1
	}
	return m
}

// Learner is the read-only view of a platform user the engagement layer needs.
type Learner struct {
	UserID      string
	DisplayName string
	Level       string
}

type Lesson struct {
	ID       string
	Title    string
	Kind     string
	Level    string
	Position int
}

type Book struct {
	ID    string
	Title string
}

// PlanItemType tags one step in the daily plan.
type PlanItemType string

const (
	PlanLesson    PlanItemType = "lesson"
	PlanExercises PlanItemType = "exercises"
	PlanWords     PlanItemType = "words"
	PlanBook      PlanItemType = "book"
)

type PlanItem struct {
	Type    PlanItemType
	Title   string
	Count   int
	Minutes int
}

// Onboarding is returned instead of plan items for users who never studied.
type Onboarding struct {
	FirstLesson *Lesson
	Books       []Book
	NoDecks     bool
}

// Plan is the morning recommendation. Items holds at most four entries.
type Plan struct {
	Items      []PlanItem
	Onboarding *Onboarding
	Finished   bool
}

func (p *Plan) TotalMinutes() int {
	total := 0
	for _, it := range p.Items {
		total += it.Minutes
	}
	return total
}

// Summary is what the user did today.
type Summary struct {
	Lessons          []string
	ExercisesDone    int
	ExercisesCorrect int
	WordsReviewed    int
	Books            []string
}

func (s *Summary) IsEmpty() bool {
	return len(s.Lessons) == 0 && s.ExercisesDone == 0 && s.WordsReviewed == 0 && len(s.Books) == 0
}

type ActionType string

const (
	ActionWords    ActionType = "words"
	ActionExercise ActionType = "exercise"
	ActionLesson   ActionType = "lesson"
)

// QuickAction is the lowest-friction useful task.
type QuickAction struct {
	Type    ActionType
	Label   string
	Count   int
	Minutes int
}

// ActivityCounts aggregates events in a half-open time range.
type ActivityCounts struct {
	LessonsCompleted int
	ExercisesDone    int
	ExercisesCorrect int
	WordsReviewed    int
	ChaptersRead     int
}

// WeekStats holds one week of metrics for the weekly report.
type WeekStats struct {
	ActiveDays int
	Lessons    int
	Exercises  int
}

type WeeklyReport struct {
	Current  WeekStats
	Previous *WeekStats
	SRSSize  int
	Streak   int
}

// Stats backs the /stats command.
type Stats struct {
	Streak           int
	LessonsCompleted int
	ExercisesDone    int
	SRSSize          int
}

// DayKey identifies a civil date independent of location.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

func DayOf(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

func (d DayKey) Before(o DayKey) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// LocalMidnight returns 00:00 of t's civil date in loc.
func LocalMidnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	y, m, d := lt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
