package service

import "errors"

var (
	ErrCatalogLoad         = errors.New("catalog load failed")
	ErrSessionNotStarted   = errors.New("exam session not started")
	ErrSessionClosed       = errors.New("exam session already submitted")
	ErrSubmissionInFlight  = errors.New("submission already in progress")
	ErrSubmissionTransport = errors.New("submission failed")
	ErrInvalidStatus       = errors.New("invalid question status")

	// Validation failures: surfaced to the test-taker, nothing is sent.
	ErrEmptyAnswers    = errors.New("no answers to submit")
	ErrMissingTestID   = errors.New("missing test id")
	ErrMissingUser     = errors.New("missing user id")
	ErrUnknownQuestion = errors.New("question is not part of this exam")
	ErrInvalidOption   = errors.New("option is not one of the question's choices")
)

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyAnswers) ||
		errors.Is(err, ErrMissingTestID) ||
		errors.Is(err, ErrMissingUser) ||
		errors.Is(err, ErrUnknownQuestion) ||
		errors.Is(err, ErrInvalidOption)
}
