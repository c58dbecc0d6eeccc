package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/repository"
)

type answerChangeKind int

const (
	answerKeep answerChangeKind = iota
	answerClear
	answerSet
)

// AnswerChange says what Update does with a question's selected option.
type AnswerChange struct {
	kind  answerChangeKind
	label string
}

// KeepAnswer leaves the existing answer untouched.
func KeepAnswer() AnswerChange { return AnswerChange{kind: answerKeep} }

// ClearAnswer removes the answer entirely.
func ClearAnswer() AnswerChange { return AnswerChange{kind: answerClear} }

// SetAnswer replaces the answer with label.
func SetAnswer(label string) AnswerChange { return AnswerChange{kind: answerSet, label: label} }

func (c AnswerChange) apply(current string) string {
	switch c.kind {
	case answerClear:
		return ""
	case answerSet:
		return c.label
	default:
		return current
	}
}

// QuestionStateStore holds exactly one QuestionState per catalog question and
// writes the full list through to the repository on every change.
type QuestionStateStore struct {
	mu     sync.RWMutex
	repo   repository.Repository
	states []model.QuestionState
	index  map[int]int
	log    zerolog.Logger
}

// NewQuestionStateStore creates an empty store backed by repo.
func NewQuestionStateStore(repo repository.Repository, log zerolog.Logger) *QuestionStateStore {
	return &QuestionStateStore{
		repo:  repo,
		index: make(map[int]int),
		log:   log.With().Str("component", "state_store").Logger(),
	}
}

// Initialize adopts prior when it covers exactly the catalog's questions and
// otherwise builds a fresh not-visited list. It reports whether prior was adopted.
func (s *QuestionStateStore) Initialize(ctx context.Context, catalog *model.Catalog, prior []model.QuestionState) (bool, error) {
	ids := catalog.QuestionIDs()

	s.mu.Lock()
	defer s.mu.Unlock()

	if adopted, ok := matchCatalog(ids, prior); ok {
		s.replace(adopted)
		s.log.Info().Int("questions", len(adopted)).Msg("Resumed question states")
		return true, nil
	}

	if len(prior) > 0 {
		s.log.Info().
			Int("persisted", len(prior)).
			Int("catalog", len(ids)).
			Msg("Discarding persisted states that do not match the catalog")
	}

	fresh := make([]model.QuestionState, len(ids))
	for i, id := range ids {
		fresh[i] = model.QuestionState{ID: id, Status: model.StatusNotVisited}
	}
	s.replace(fresh)

	if err := s.repo.SaveStates(ctx, s.states); err != nil {
		return false, fmt.Errorf("save states: %w", err)
	}
	return false, nil
}

// matchCatalog returns prior reordered to catalog order when its id set equals
// ids and every status is valid.
func matchCatalog(ids []int, prior []model.QuestionState) ([]model.QuestionState, bool) {
	if len(prior) == 0 || len(prior) != len(ids) {
		return nil, false
	}

	byID := make(map[int]model.QuestionState, len(prior))
	for _, st := range prior {
		if !st.Status.Valid() {
			return nil, false
		}
		if _, dup := byID[st.ID]; dup {
			return nil, false
		}
		byID[st.ID] = st
	}

	ordered := make([]model.QuestionState, 0, len(ids))
	for _, id := range ids {
		st, ok := byID[id]
		if !ok {
			return nil, false
		}
		ordered = append(ordered, st)
	}
	return ordered, true
}

func (s *QuestionStateStore) replace(states []model.QuestionState) {
	s.states = states
	s.index = make(map[int]int, len(states))
	for i, st := range states {
		s.index[st.ID] = i
	}
}

// Update sets the status of questionID and applies change to its answer.
// Unknown ids are ignored.
func (s *QuestionStateStore) Update(ctx context.Context, questionID int, status model.Status, change AnswerChange) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	_, err := s.modify(ctx, questionID, func(st model.QuestionState) (model.QuestionState, bool) {
		st.Status = status
		st.Answer = change.apply(st.Answer)
		return st, true
	})
	return err
}

// Visit moves questionID from not-visited to not-answered. Any other status is kept.
func (s *QuestionStateStore) Visit(ctx context.Context, questionID int) error {
	_, err := s.modify(ctx, questionID, func(st model.QuestionState) (model.QuestionState, bool) {
		if st.Status != model.StatusNotVisited {
			return st, false
		}
		st.Status = model.StatusNotAnswered
		return st, true
	})
	return err
}

// modify applies fn to the state of questionID under the write lock and
// persists the list when fn reports a change. A failed save leaves the
// in-memory states untouched. Unknown ids are a no-op.
func (s *QuestionStateStore) modify(ctx context.Context, questionID int, fn func(model.QuestionState) (model.QuestionState, bool)) (model.QuestionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[questionID]
	if !ok {
		return model.QuestionState{}, nil
	}

	next, changed := fn(s.states[i])
	if !changed {
		return next, nil
	}

	// Memory only takes the change once it is durable.
	updated := make([]model.QuestionState, len(s.states))
	copy(updated, s.states)
	updated[i] = next

	if err := s.repo.SaveStates(ctx, updated); err != nil {
		s.log.Error().Err(err).Int("question_id", questionID).Msg("Failed to persist question states")
		return s.states[i], fmt.Errorf("save states: %w", err)
	}
	s.states = updated
	return next, nil
}

// Find returns the state of questionID.
func (s *QuestionStateStore) Find(questionID int) (model.QuestionState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[questionID]
	if !ok {
		return model.QuestionState{}, false
	}
	return s.states[i], true
}

// CountByStatus counts questions currently in status.
func (s *QuestionStateStore) CountByStatus(status model.Status) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, st := range s.states {
		if st.Status == status {
			n++
		}
	}
	return n
}

// States returns a copy of every state in catalog order.
func (s *QuestionStateStore) States() []model.QuestionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.QuestionState, len(s.states))
	copy(out, s.states)
	return out
}

// ToAnswerMap projects the current states into the submission answer map.
func (s *QuestionStateStore) ToAnswerMap() model.AnswerMap {
	return ToAnswerMap(s.States())
}

// Len returns the number of tracked questions.
func (s *QuestionStateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// Discard drops the in-memory states. Persisted data is left to the caller.
func (s *QuestionStateStore) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(nil)
}
