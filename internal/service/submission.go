package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/repository"
)

// SubmissionClient sends a finished exam to the remote service.
type SubmissionClient interface {
	Submit(ctx context.Context, req model.SubmissionRequest, idempotencyKey string) (*model.SubmissionResult, error)
}

// ToAnswerMap maps every answered question id to its selected option.
// Questions without an answer are omitted.
func ToAnswerMap(states []model.QuestionState) model.AnswerMap {
	answers := make(model.AnswerMap)
	for _, st := range states {
		if st.Answer != "" {
			answers[strconv.Itoa(st.ID)] = st.Answer
		}
	}
	return answers
}

// ReviewFlags returns the ids of questions flagged for review, ascending.
func ReviewFlags(states []model.QuestionState) []int {
	var flagged []int
	for _, st := range states {
		if st.Status.HasReviewFlag() {
			flagged = append(flagged, st.ID)
		}
	}
	sort.Ints(flagged)
	return flagged
}

// Assembler builds the submission payload and sends it.
type Assembler struct {
	client SubmissionClient
	repo   repository.Repository
	log    zerolog.Logger
}

// NewAssembler creates a new Assembler.
func NewAssembler(client SubmissionClient, repo repository.Repository, log zerolog.Logger) *Assembler {
	return &Assembler{
		client: client,
		repo:   repo,
		log:    log.With().Str("component", "submission").Logger(),
	}
}

// Submit validates and sends the answers in states. Validation failures make
// no network call. On success the persisted session is cleared; on failure it
// is left untouched so the test-taker can retry.
func (a *Assembler) Submit(ctx context.Context, user model.User, catalog *model.Catalog, states []model.QuestionState, idempotencyKey string) (*model.SubmissionResult, error) {
	if catalog == nil || catalog.TestID == 0 {
		return nil, ErrMissingTestID
	}
	if user.UserID == "" {
		return nil, ErrMissingUser
	}

	answers := ToAnswerMap(states)
	if len(answers) == 0 {
		return nil, ErrEmptyAnswers
	}

	req := model.SubmissionRequest{
		UserID:          user.UserID,
		TestID:          catalog.TestID,
		Answers:         answers,
		MarkedForReview: ReviewFlags(states),
	}

	result, err := a.client.Submit(ctx, req, idempotencyKey)
	if err != nil {
		a.log.Error().Err(err).Int("test_id", catalog.TestID).Int("answers", len(answers)).Msg("Submission failed")
		return nil, fmt.Errorf("%w: %w", ErrSubmissionTransport, err)
	}

	if err := a.repo.Clear(ctx); err != nil {
		a.log.Warn().Err(err).Msg("Submitted, but failed to clear persisted session")
	}

	a.log.Info().
		Int("test_id", catalog.TestID).
		Int("submission_id", result.SubmissionID).
		Int("answers", len(answers)).
		Msg("Exam submitted")
	return result, nil
}
