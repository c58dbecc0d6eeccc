package model

// AnswerMap maps a durable question id (decimal string) to the selected option label.
type AnswerMap map[string]string

// SubmissionRequest is the payload sent to the exam API's submit endpoint.
type SubmissionRequest struct {
	UserID          string    `json:"user_id"`
	TestID          int       `json:"test_id"`
	Answers         AnswerMap `json:"answers"`
	MarkedForReview []int     `json:"marked_for_review,omitempty"`
}

// Score is the graded result returned by the exam API.
type Score struct {
	Points     int     `json:"points"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// SubmissionResult is the exam API's response to a successful submission.
type SubmissionResult struct {
	Message      string `json:"message"`
	SubmissionID int    `json:"submission_id"`
	Score        Score  `json:"score"`
}
