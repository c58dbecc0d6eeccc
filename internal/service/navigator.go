package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/repository"
)

// Navigator tracks the current question and moves through the catalog,
// recording visits in the state store as it goes.
type Navigator struct {
	mu      sync.RWMutex
	catalog *model.Catalog
	store   *QuestionStateStore
	repo    repository.Repository
	order   []model.Position
	pos     model.Position
	log     zerolog.Logger
}

// NewNavigator creates a Navigator over catalog. Call Initialize before use.
func NewNavigator(catalog *model.Catalog, store *QuestionStateStore, repo repository.Repository, log zerolog.Logger) *Navigator {
	order := make([]model.Position, 0, catalog.TotalQuestions())
	for _, sec := range catalog.Sections {
		for _, q := range sec.Questions {
			order = append(order, model.Position{SectionID: sec.ID, QuestionID: q.QuestionID})
		}
	}

	return &Navigator{
		catalog: catalog,
		store:   store,
		repo:    repo,
		order:   order,
		log:     log.With().Str("component", "navigator").Logger(),
	}
}

// Initialize restores prior when resume is set and prior names a catalog
// question; otherwise it starts at the first question of the first section.
func (n *Navigator) Initialize(ctx context.Context, prior model.Position, resume bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if resume && n.indexOf(prior) >= 0 {
		n.pos = prior
		return nil
	}

	first, ok := n.catalog.First()
	if !ok {
		n.pos = model.Position{}
		return nil
	}
	return n.moveLocked(ctx, first)
}

// Position returns the current position.
func (n *Navigator) Position() model.Position {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pos
}

// CurrentSection returns the section at the current position. ok is false
// while the position does not match the catalog.
func (n *Navigator) CurrentSection() (*model.Section, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.catalog.FindSection(n.pos.SectionID)
}

// CurrentQuestion returns the question at the current position.
func (n *Navigator) CurrentQuestion() (*model.Question, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.catalog.FindQuestion(n.pos.SectionID, n.pos.QuestionID)
}

// GoToQuestion jumps to a question and records the visit. A target outside
// the catalog is ignored and reported as false.
func (n *Navigator) GoToQuestion(ctx context.Context, sectionID, questionID int) (bool, error) {
	target := model.Position{SectionID: sectionID, QuestionID: questionID}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.indexOf(target) < 0 {
		n.log.Debug().Int("section_id", sectionID).Int("question_id", questionID).Msg("Ignoring invalid navigation target")
		return false, nil
	}
	if err := n.visitLocked(ctx, target); err != nil {
		return true, err
	}
	return true, n.moveLocked(ctx, target)
}

// GoToSection jumps to the first question of a section.
func (n *Navigator) GoToSection(ctx context.Context, sectionID int) (bool, error) {
	sec, ok := n.catalog.FindSection(sectionID)
	if !ok || len(sec.Questions) == 0 {
		return false, nil
	}
	return n.GoToQuestion(ctx, sec.ID, sec.Questions[0].QuestionID)
}

// GoToNext leaves the current question and advances in catalog order,
// wrapping from the last question back to the first.
func (n *Navigator) GoToNext(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.order) == 0 {
		return nil
	}

	i := n.indexOf(n.pos)
	if i < 0 {
		return n.moveLocked(ctx, n.order[0])
	}
	if err := n.visitLocked(ctx, n.pos); err != nil {
		return err
	}
	return n.moveLocked(ctx, n.order[(i+1)%len(n.order)])
}

// GoToPrevious leaves the current question and steps back in catalog order.
// It does nothing at the first question.
func (n *Navigator) GoToPrevious(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	i := n.indexOf(n.pos)
	if i <= 0 {
		return nil
	}
	if err := n.visitLocked(ctx, n.pos); err != nil {
		return err
	}
	return n.moveLocked(ctx, n.order[i-1])
}

func (n *Navigator) indexOf(pos model.Position) int {
	for i, p := range n.order {
		if p == pos {
			return i
		}
	}
	return -1
}

func (n *Navigator) visitLocked(ctx context.Context, pos model.Position) error {
	q, ok := n.catalog.FindQuestion(pos.SectionID, pos.QuestionID)
	if !ok {
		return nil
	}
	return n.store.Visit(ctx, q.ID)
}

// moveLocked persists pos and only then makes it current.
func (n *Navigator) moveLocked(ctx context.Context, pos model.Position) error {
	if err := n.repo.SavePosition(ctx, pos); err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	n.pos = pos
	return nil
}
