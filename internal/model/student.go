package model

// User identifies the test-taker submitting the exam.
type User struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

// StartSessionRequest is the payload for starting (or resuming) an exam session.
type StartSessionRequest struct {
	TestID int `json:"test_id" binding:"required,min=1"`
}

// GoToQuestionRequest jumps to a question by its section and display id.
type GoToQuestionRequest struct {
	SectionID  int `json:"section_id" binding:"required"`
	QuestionID int `json:"question_id" binding:"required"`
}

// GoToSectionRequest jumps to the first question of a section.
type GoToSectionRequest struct {
	SectionID int `json:"section_id" binding:"required"`
}

// AnswerRequest selects an option for a question.
type AnswerRequest struct {
	QuestionID int    `json:"question_id" binding:"required"`
	Option     string `json:"option" binding:"required,max=10,option_label"`
}

// QuestionRequest targets a question by its durable id.
type QuestionRequest struct {
	QuestionID int `json:"question_id" binding:"required"`
}
