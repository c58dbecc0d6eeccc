package model

// Status enumerates the per-question progress states.
type Status string

const (
	StatusNotVisited      Status = "not-visited"
	StatusNotAnswered     Status = "not-answered"
	StatusAnswered        Status = "answered"
	StatusMarkedForReview Status = "marked-for-review"
	StatusAnsweredMarked  Status = "answered-marked"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{
	StatusNotVisited,
	StatusNotAnswered,
	StatusAnswered,
	StatusMarkedForReview,
	StatusAnsweredMarked,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// HasReviewFlag reports whether the question is flagged for review.
func (s Status) HasReviewFlag() bool {
	return s == StatusMarkedForReview || s == StatusAnsweredMarked
}

// QuestionState is the progress of one question, keyed by its durable id.
type QuestionState struct {
	ID     int    `json:"id"`
	Status Status `json:"status"`
	Answer string `json:"answer,omitempty"`
}

// Position identifies the question currently shown.
type Position struct {
	SectionID  int `json:"section_id"`
	QuestionID int `json:"question_id"`
}
