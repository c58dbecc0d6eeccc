package service

import (
	"math"

	"github.com/stemsi/exstem-session/internal/model"
)

// Summary counts questions per status for the progress panel.
type Summary struct {
	Total           int     `json:"total"`
	Answered        int     `json:"answered"`
	NotAnswered     int     `json:"not_answered"`
	MarkedForReview int     `json:"marked_for_review"`
	AnsweredMarked  int     `json:"answered_marked"`
	NotVisited      int     `json:"not_visited"`
	ProgressPercent float64 `json:"progress_percent"`
}

// Summarize counts states. Progress is the share of questions carrying an answer.
func Summarize(states []model.QuestionState) Summary {
	s := Summary{Total: len(states)}
	withAnswer := 0

	for _, st := range states {
		switch st.Status {
		case model.StatusAnswered:
			s.Answered++
		case model.StatusNotAnswered:
			s.NotAnswered++
		case model.StatusMarkedForReview:
			s.MarkedForReview++
		case model.StatusAnsweredMarked:
			s.AnsweredMarked++
		case model.StatusNotVisited:
			s.NotVisited++
		}
		if st.Answer != "" {
			withAnswer++
		}
	}

	if s.Total > 0 {
		s.ProgressPercent = math.Round(float64(withAnswer)*1000/float64(s.Total)) / 10
	}
	return s
}
