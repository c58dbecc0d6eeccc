package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/repository"
	"github.com/stemsi/exstem-session/internal/worker"
)

// CatalogClient loads the questions of a test.
type CatalogClient interface {
	FetchCatalog(ctx context.Context, testID int) (*model.Catalog, error)
}

// ExamAPI is the remote exam service used by a session.
type ExamAPI interface {
	CatalogClient
	SubmissionClient
}

// SessionConfig configures an ExamSession.
type SessionConfig struct {
	User             model.User
	DefaultDuration  time.Duration
	PollInterval     time.Duration
	StaleStartPolicy string
}

// EventType names a session event pushed to stream subscribers.
type EventType string

const (
	EventTick         EventType = "tick"
	EventExpired      EventType = "expired"
	EventSubmitted    EventType = "submitted"
	EventSubmitFailed EventType = "submit_failed"
)

// Event is published on every clock tick and submission outcome.
type Event struct {
	Type   EventType
	Tick   *worker.Tick
	Result *model.SubmissionResult
	Error  string
}

// Snapshot is the full view of a session at one instant.
type Snapshot struct {
	TestID          int                     `json:"test_id"`
	Title           string                  `json:"title"`
	Description     string                  `json:"description,omitempty"`
	DurationMinutes int                     `json:"duration_minutes"`
	Position        model.Position          `json:"position"`
	SectionName     string                  `json:"section_name,omitempty"`
	Question        *model.Question         `json:"question,omitempty"`
	States          []model.QuestionState   `json:"states"`
	Summary         Summary                 `json:"summary"`
	RemainingMs     int64                   `json:"remaining_ms"`
	Remaining       string                  `json:"remaining"`
	LowTime         bool                    `json:"low_time"`
	Expired         bool                    `json:"expired"`
	Resumed         bool                    `json:"resumed"`
	Submitted       bool                    `json:"submitted"`
	Result          *model.SubmissionResult `json:"result,omitempty"`
}

// attempt is one started exam: its catalog and the components built over it.
type attempt struct {
	catalog        *model.Catalog
	store          *QuestionStateStore
	nav            *Navigator
	timer          *Timer
	assembler      *Assembler
	idempotencyKey string
	resumed        bool

	// Guarded by ExamSession.mu.
	closed bool
	result *model.SubmissionResult
}

// SessionOption customises an ExamSession.
type SessionOption func(*ExamSession)

// WithSessionClock replaces time.Now for the exam clock.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *ExamSession) { s.now = now }
}

// ExamSession ties the state store, navigator, timer and submission together
// for one test-taker profile.
type ExamSession struct {
	api    ExamAPI
	repo   repository.Repository
	cfg    SessionConfig
	now    func() time.Time
	log    zerolog.Logger
	events *worker.Broadcaster[Event]

	mu         sync.Mutex
	current    *attempt
	stopWorker context.CancelFunc
	workers    sync.WaitGroup

	submitting atomic.Bool
}

// NewExamSession creates a session with no exam started.
func NewExamSession(api ExamAPI, repo repository.Repository, cfg SessionConfig, log zerolog.Logger, opts ...SessionOption) *ExamSession {
	s := &ExamSession{
		api:    api,
		repo:   repo,
		cfg:    cfg,
		now:    time.Now,
		log:    log.With().Str("component", "exam_session").Logger(),
		events: worker.NewBroadcaster[Event](16),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe streams session events until unsubscribed or the session is closed.
func (s *ExamSession) Subscribe() (<-chan Event, func()) {
	return s.events.Subscribe()
}

// Start loads the catalog for testID and resumes the persisted session when
// its states match the catalog and a start time was saved; otherwise it
// starts fresh. Any running exam clock is replaced. Start fails with
// ErrSubmissionInFlight while a submission is outstanding.
func (s *ExamSession) Start(ctx context.Context, testID int) (*Snapshot, error) {
	if testID <= 0 {
		return nil, ErrMissingTestID
	}

	catalog, err := s.api.FetchCatalog(ctx, testID)
	if err != nil {
		s.log.Error().Err(err).Int("test_id", testID).Msg("Failed to load catalog")
		return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
	}
	if err := catalog.Validate(); err != nil {
		s.log.Error().Err(err).Int("test_id", testID).Msg("Rejected catalog")
		return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A submission that succeeds clears the durable session; a new attempt
	// built from it now would lose its start time to that clear.
	if s.submitting.Load() {
		return nil, ErrSubmissionInFlight
	}

	s.cancelWorkerLocked()

	prior, err := s.loadPrior(ctx)
	if err != nil {
		return nil, err
	}

	store := NewQuestionStateStore(s.repo, s.log)
	var priorStates []model.QuestionState
	if prior.hasStart {
		priorStates = prior.states
	}
	resumed, err := store.Initialize(ctx, catalog, priorStates)
	if err != nil {
		return nil, fmt.Errorf("initialize states: %w", err)
	}

	timer := NewTimer(s.repo, catalog.Duration(s.cfg.DefaultDuration), s.cfg.StaleStartPolicy, s.now, s.log)
	if resumed {
		_, err = timer.Resume(ctx, prior.start)
	} else {
		err = timer.Reset(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize timer: %w", err)
	}

	nav := NewNavigator(catalog, store, s.repo, s.log)
	if err := nav.Initialize(ctx, prior.position, resumed && prior.hasPosition); err != nil {
		return nil, fmt.Errorf("initialize navigation: %w", err)
	}

	a := &attempt{
		catalog:        catalog,
		store:          store,
		nav:            nav,
		timer:          timer,
		assembler:      NewAssembler(s.api, s.repo, s.log),
		idempotencyKey: uuid.NewString(),
		resumed:        resumed,
	}
	s.current = a
	s.startWorkerLocked(a)

	s.log.Info().
		Int("test_id", catalog.TestID).
		Int("questions", catalog.TotalQuestions()).
		Bool("resumed", resumed).
		Dur("remaining", timer.Remaining()).
		Msg("Exam session started")

	return s.snapshot(a), nil
}

type priorSession struct {
	states      []model.QuestionState
	start       time.Time
	hasStart    bool
	position    model.Position
	hasPosition bool
}

// loadPrior reads the persisted session. Corrupt data counts as no prior session.
func (s *ExamSession) loadPrior(ctx context.Context) (priorSession, error) {
	var p priorSession
	var err error

	p.states, err = s.repo.LoadStates(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrCorruptState) {
			return priorSession{}, fmt.Errorf("load states: %w", err)
		}
		s.log.Warn().Err(err).Msg("Ignoring corrupt persisted states")
		p.states = nil
	}

	p.start, p.hasStart, err = s.repo.LoadStartTime(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrCorruptState) {
			return priorSession{}, fmt.Errorf("load start time: %w", err)
		}
		s.log.Warn().Err(err).Msg("Ignoring corrupt persisted start time")
		p.hasStart = false
	}

	p.position, p.hasPosition, err = s.repo.LoadPosition(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrCorruptState) {
			return priorSession{}, fmt.Errorf("load position: %w", err)
		}
		p.hasPosition = false
	}

	return p, nil
}

func (s *ExamSession) startWorkerLocked(a *attempt) {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopWorker = cancel

	w := worker.NewTimerWorker(a.timer.Remaining, func() { s.autoSubmit(ctx, a) }, s.cfg.PollInterval, s.log)
	ticks, _ := w.Subscribe()

	s.workers.Add(2)
	go func() {
		defer s.workers.Done()
		for tick := range ticks {
			t := tick
			s.events.Publish(Event{Type: EventTick, Tick: &t})
		}
	}()
	go func() {
		defer s.workers.Done()
		w.Start(ctx)
	}()
}

func (s *ExamSession) cancelWorkerLocked() {
	if s.stopWorker != nil {
		s.stopWorker()
		s.stopWorker = nil
	}
}

// autoSubmit runs on the worker goroutine when the clock reaches zero.
func (s *ExamSession) autoSubmit(ctx context.Context, a *attempt) {
	s.events.Publish(Event{Type: EventExpired})

	_, err := s.submit(ctx, a)
	switch {
	case err == nil:
	case errors.Is(err, ErrSubmissionInFlight), errors.Is(err, ErrSessionClosed):
		s.log.Debug().Err(err).Msg("Skipping automatic submission")
	default:
		s.log.Warn().Err(err).Msg("Automatic submission failed")
	}
}

// active returns the open attempt for a state-changing action.
func (s *ExamSession) active() (*attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrSessionNotStarted
	}
	if s.current.closed {
		return nil, ErrSessionClosed
	}
	if s.submitting.Load() {
		return nil, ErrSubmissionInFlight
	}
	return s.current, nil
}

// Submit sends the answers. Only one submission runs at a time; a concurrent
// call fails with ErrSubmissionInFlight.
func (s *ExamSession) Submit(ctx context.Context) (*model.SubmissionResult, error) {
	s.mu.Lock()
	a := s.current
	s.mu.Unlock()

	if a == nil {
		return nil, ErrSessionNotStarted
	}
	return s.submit(ctx, a)
}

func (s *ExamSession) submit(ctx context.Context, a *attempt) (*model.SubmissionResult, error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer s.submitting.Store(false)

	s.mu.Lock()
	switch {
	case s.current != a:
		s.mu.Unlock()
		return nil, ErrSessionNotStarted
	case a.closed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.mu.Unlock()

	result, err := a.assembler.Submit(ctx, s.cfg.User, a.catalog, a.store.States(), a.idempotencyKey)
	if err != nil {
		s.events.Publish(Event{Type: EventSubmitFailed, Error: err.Error()})
		return nil, err
	}

	s.mu.Lock()
	a.closed = true
	a.result = result
	a.store.Discard()
	if s.current == a {
		s.cancelWorkerLocked()
	}
	s.mu.Unlock()

	s.events.Publish(Event{Type: EventSubmitted, Result: result})
	return result, nil
}

// Answer selects label for questionID. A flagged question stays flagged.
func (s *ExamSession) Answer(ctx context.Context, questionID int, label string) (model.QuestionState, error) {
	a, err := s.active()
	if err != nil {
		return model.QuestionState{}, err
	}

	q, ok := a.catalog.QuestionByID(questionID)
	if !ok {
		return model.QuestionState{}, ErrUnknownQuestion
	}
	if !q.HasOption(label) {
		return model.QuestionState{}, fmt.Errorf("%w: %q", ErrInvalidOption, label)
	}

	return a.store.modify(ctx, questionID, func(st model.QuestionState) (model.QuestionState, bool) {
		if st.Status.HasReviewFlag() {
			st.Status = model.StatusAnsweredMarked
		} else {
			st.Status = model.StatusAnswered
		}
		st.Answer = label
		return st, true
	})
}

// ToggleReview flags or unflags questionID, keeping its answer.
func (s *ExamSession) ToggleReview(ctx context.Context, questionID int) (model.QuestionState, error) {
	a, err := s.active()
	if err != nil {
		return model.QuestionState{}, err
	}
	if _, ok := a.catalog.QuestionByID(questionID); !ok {
		return model.QuestionState{}, ErrUnknownQuestion
	}

	return a.store.modify(ctx, questionID, func(st model.QuestionState) (model.QuestionState, bool) {
		hasAnswer := st.Answer != ""
		switch {
		case st.Status.HasReviewFlag() && hasAnswer:
			st.Status = model.StatusAnswered
		case st.Status.HasReviewFlag():
			st.Status = model.StatusNotAnswered
		case hasAnswer:
			st.Status = model.StatusAnsweredMarked
		default:
			st.Status = model.StatusMarkedForReview
		}
		return st, true
	})
}

// ClearResponse removes the answer of questionID. A review flag is kept.
func (s *ExamSession) ClearResponse(ctx context.Context, questionID int) (model.QuestionState, error) {
	a, err := s.active()
	if err != nil {
		return model.QuestionState{}, err
	}
	if _, ok := a.catalog.QuestionByID(questionID); !ok {
		return model.QuestionState{}, ErrUnknownQuestion
	}

	return a.store.modify(ctx, questionID, func(st model.QuestionState) (model.QuestionState, bool) {
		if st.Status.HasReviewFlag() {
			st.Status = model.StatusMarkedForReview
		} else {
			st.Status = model.StatusNotAnswered
		}
		st.Answer = ""
		return st, true
	})
}

// Next moves to the next question, wrapping at the end.
func (s *ExamSession) Next(ctx context.Context) (model.Position, error) {
	a, err := s.active()
	if err != nil {
		return model.Position{}, err
	}
	err = a.nav.GoToNext(ctx)
	return a.nav.Position(), err
}

// Previous moves to the previous question, stopping at the first.
func (s *ExamSession) Previous(ctx context.Context) (model.Position, error) {
	a, err := s.active()
	if err != nil {
		return model.Position{}, err
	}
	err = a.nav.GoToPrevious(ctx)
	return a.nav.Position(), err
}

// GoTo jumps to a question. ok is false when the target is not in the catalog.
func (s *ExamSession) GoTo(ctx context.Context, sectionID, questionID int) (model.Position, bool, error) {
	a, err := s.active()
	if err != nil {
		return model.Position{}, false, err
	}
	ok, err := a.nav.GoToQuestion(ctx, sectionID, questionID)
	return a.nav.Position(), ok, err
}

// GoToSection jumps to the first question of a section.
func (s *ExamSession) GoToSection(ctx context.Context, sectionID int) (model.Position, bool, error) {
	a, err := s.active()
	if err != nil {
		return model.Position{}, false, err
	}
	ok, err := a.nav.GoToSection(ctx, sectionID)
	return a.nav.Position(), ok, err
}

// Catalog returns the catalog of the started exam.
func (s *ExamSession) Catalog() (*model.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrSessionNotStarted
	}
	return s.current.catalog, nil
}

// Snapshot returns the current view of the session.
func (s *ExamSession) Snapshot() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrSessionNotStarted
	}
	return s.snapshot(s.current), nil
}

// Summary returns the progress counts of the started exam.
func (s *ExamSession) Summary() (Summary, error) {
	s.mu.Lock()
	a := s.current
	s.mu.Unlock()

	if a == nil {
		return Summary{}, ErrSessionNotStarted
	}
	return Summarize(a.store.States()), nil
}

// snapshot must be called with s.mu held.
func (s *ExamSession) snapshot(a *attempt) *Snapshot {
	states := a.store.States()
	remaining := a.timer.Remaining()
	tick := worker.NewTick(remaining)

	snap := &Snapshot{
		TestID:          a.catalog.TestID,
		Title:           a.catalog.Title,
		Description:     a.catalog.Description,
		DurationMinutes: int(a.timer.Duration() / time.Minute),
		Position:        a.nav.Position(),
		States:          states,
		Summary:         Summarize(states),
		RemainingMs:     tick.RemainingMs,
		Remaining:       tick.Formatted,
		LowTime:         tick.LowTime,
		Expired:         a.timer.Expired(),
		Resumed:         a.resumed,
		Submitted:       a.closed,
		Result:          a.result,
	}
	if sec, ok := a.nav.CurrentSection(); ok {
		snap.SectionName = sec.Name
	}
	if q, ok := a.nav.CurrentQuestion(); ok {
		snap.Question = q
	}
	return snap
}

// Reset stops the clock and clears the persisted session (explicit logout).
// It is refused while a submission is in flight.
func (s *ExamSession) Reset(ctx context.Context) error {
	s.mu.Lock()
	if s.submitting.Load() {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}
	s.cancelWorkerLocked()
	s.current = nil
	s.mu.Unlock()

	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.log.Info().Msg("Exam session reset")
	return nil
}

// Close stops the clock and waits for background goroutines. Persisted state
// is kept so the session can be resumed.
func (s *ExamSession) Close() {
	s.mu.Lock()
	s.cancelWorkerLocked()
	s.mu.Unlock()

	s.workers.Wait()
	s.events.Close()
}
