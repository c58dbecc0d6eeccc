package repository

import (
	"context"
	"sync"
	"time"

	"github.com/stemsi/exstem-session/internal/model"
)

// MemoryRepository keeps session state in process memory. Used by tests and
// the "memory" backend, where a restart intentionally starts fresh.
type MemoryRepository struct {
	mu       sync.Mutex
	states   []model.QuestionState
	start    *time.Time
	position *model.Position
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// LoadStates returns a copy of the saved question states, or nil if none were saved.
func (r *MemoryRepository) LoadStates(ctx context.Context) ([]model.QuestionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.states == nil {
		return nil, nil
	}
	out := make([]model.QuestionState, len(r.states))
	copy(out, r.states)
	return out, nil
}

// SaveStates replaces the saved question states with a copy of states.
func (r *MemoryRepository) SaveStates(ctx context.Context, states []model.QuestionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = make([]model.QuestionState, len(states))
	copy(r.states, states)
	return nil
}

// LoadStartTime returns the saved exam start time and whether one exists.
func (r *MemoryRepository) LoadStartTime(ctx context.Context) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.start == nil {
		return time.Time{}, false, nil
	}
	return *r.start, true, nil
}

// SaveStartTime stores the exam start time at millisecond precision.
func (r *MemoryRepository) SaveStartTime(ctx context.Context, start time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Same millisecond precision as the durable backends.
	t := startTimeFromMillis(start.UnixMilli())
	r.start = &t
	return nil
}

// LoadPosition returns the saved navigation position and whether one exists.
func (r *MemoryRepository) LoadPosition(ctx context.Context) (model.Position, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.position == nil {
		return model.Position{}, false, nil
	}
	return *r.position, true, nil
}

// SavePosition stores the current navigation position.
func (r *MemoryRepository) SavePosition(ctx context.Context, pos model.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position = &pos
	return nil
}

// Clear removes the states, start time and position together.
func (r *MemoryRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = nil
	r.start = nil
	r.position = nil
	return nil
}
