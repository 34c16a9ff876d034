package api

import (
	"errors"
	"net/http"
	"time"

	"lingua-telegram/internal/domain"
	"lingua-telegram/internal/domain/model"
)

type planItemDTO struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	Count   int    `json:"count,omitempty"`
	Minutes int    `json:"minutes"`
}

type onboardingDTO struct {
	FirstLesson string   `json:"first_lesson,omitempty"`
	Books       []string `json:"books"`
	NoDecks     bool     `json:"no_decks"`
}

type planResponse struct {
	Success      bool           `json:"success"`
	Items        []planItemDTO  `json:"items"`
	TotalMinutes int            `json:"total_minutes"`
	Finished     bool           `json:"finished"`
	Onboarding   *onboardingDTO `json:"onboarding,omitempty"`
}

type summaryResponse struct {
	Success          bool     `json:"success"`
	Lessons          []string `json:"lessons"`
	ExercisesDone    int      `json:"exercises_done"`
	ExercisesCorrect int      `json:"exercises_correct"`
	WordsReviewed    int      `json:"words_reviewed"`
	Books            []string `json:"books"`
}

type weekDTO struct {
	ActiveDays int `json:"active_days"`
	Lessons    int `json:"lessons"`
	Exercises  int `json:"exercises"`
}

type weeklyResponse struct {
	Success  bool     `json:"success"`
	Current  weekDTO  `json:"current"`
	Previous *weekDTO `json:"previous"`
	SRSSize  int      `json:"srs_size"`
	Streak   int      `json:"streak"`
}

type statsResponse struct {
	Success          bool `json:"success"`
	Streak           int  `json:"streak"`
	LessonsCompleted int  `json:"lessons_completed"`
	ExercisesDone    int  `json:"exercises_done"`
	SRSSize          int  `json:"srs_size"`
}

// localNow is the current instant in the caller's binding timezone, or in
// the default zone for users who never linked Telegram.
func (s *Server) localNow(r *http.Request, userID string) (time.Time, error) {
	b, err := s.link.FindByUserID(r.Context(), userID)
	switch {
	case err == nil:
		return s.now().In(b.Location()), nil
	case errors.Is(err, domain.ErrNotFound):
		loc, lerr := time.LoadLocation(model.DefaultTimezone)
		if lerr != nil {
			loc = time.UTC
		}
		return s.now().In(loc), nil
	}
	return time.Time{}, err
}

func (s *Server) mePlan(w http.ResponseWriter, r *http.Request) {
	userID := CredentialFrom(r.Context()).UserID
	now, err := s.localNow(r, userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	plan, err := s.activity.DailyPlan(r.Context(), userID, now)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := planResponse{Success: true, Items: []planItemDTO{}, TotalMinutes: plan.TotalMinutes(), Finished: plan.Finished}
	for _, it := range plan.Items {
		resp.Items = append(resp.Items, planItemDTO{Type: string(it.Type), Title: it.Title, Count: it.Count, Minutes: it.Minutes})
	}
	if ob := plan.Onboarding; ob != nil {
		dto := &onboardingDTO{Books: []string{}, NoDecks: ob.NoDecks}
		if ob.FirstLesson != nil {
			dto.FirstLesson = ob.FirstLesson.Title
		}
		for _, b := range ob.Books {
			dto.Books = append(dto.Books, b.Title)
		}
		resp.Onboarding = dto
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) meSummary(w http.ResponseWriter, r *http.Request) {
	userID := CredentialFrom(r.Context()).UserID
	now, err := s.localNow(r, userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sum, err := s.activity.DailySummary(r.Context(), userID, now)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Success:          true,
		Lessons:          nonNil(sum.Lessons),
		ExercisesDone:    sum.ExercisesDone,
		ExercisesCorrect: sum.ExercisesCorrect,
		WordsReviewed:    sum.WordsReviewed,
		Books:            nonNil(sum.Books),
	})
}

func (s *Server) meWeekly(w http.ResponseWriter, r *http.Request) {
	userID := CredentialFrom(r.Context()).UserID
	now, err := s.localNow(r, userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rep, err := s.activity.WeeklyReport(r.Context(), userID, now)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := weeklyResponse{
		Success: true,
		Current: weekDTO(rep.Current),
		SRSSize: rep.SRSSize,
		Streak:  rep.Streak,
	}
	if rep.Previous != nil {
		prev := weekDTO(*rep.Previous)
		resp.Previous = &prev
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) meStats(w http.ResponseWriter, r *http.Request) {
	userID := CredentialFrom(r.Context()).UserID
	now, err := s.localNow(r, userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.activity.Stats(r.Context(), userID, now)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Success:          true,
		Streak:           st.Streak,
		LessonsCompleted: st.LessonsCompleted,
		ExercisesDone:    st.ExercisesDone,
		SRSSize:          st.SRSSize,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
