package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var nopLog = zerolog.Nop()

// testCatalog has two sections of two questions: s1{101,102} and s2{201,202}.
func testCatalog() *model.Catalog {
	opts := map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"}
	c := &model.Catalog{
		TestID:          7,
		Title:           "Mock Test",
		DurationMinutes: 60,
		Sections: []model.Section{
			{ID: 1, Name: "Physics", Questions: []model.Question{
				{ID: 101, Text: "q1", Options: opts},
				{ID: 102, Text: "q2", Options: opts},
			}},
			{ID: 2, Name: "Chemistry", Questions: []model.Question{
				{ID: 201, Text: "q3", Options: opts},
				{ID: 202, Text: "q4", Options: opts},
			}},
		},
	}
	c.Normalize()
	return c
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeAPI serves testCatalog and records submissions.
type fakeAPI struct {
	mu         sync.Mutex
	catalogErr error
	catalog    *model.Catalog
	submitErr  error
	requests   []model.SubmissionRequest
	keys       []string

	// When set, Submit signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeAPI) FetchCatalog(ctx context.Context, testID int) (*model.Catalog, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	if f.catalog != nil {
		return f.catalog, nil
	}
	c := testCatalog()
	c.TestID = testID
	return c, nil
}

func (f *fakeAPI) Submit(ctx context.Context, req model.SubmissionRequest, key string) (*model.SubmissionResult, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.keys = append(f.keys, key)

	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &model.SubmissionResult{Message: "ok", SubmissionID: len(f.requests)}, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// failingRepo fails every save with errSave.
type failingRepo struct {
	*repository.MemoryRepository
}

var errSave = errors.New("disk full")

func (failingRepo) SaveStates(context.Context, []model.QuestionState) error { return errSave }
func (failingRepo) SavePosition(context.Context, model.Position) error { return errSave }
func (failingRepo) SaveStartTime(context.Context, time.Time) error { return errSave }

func statesOf(pairs ...any) []model.QuestionState {
	var out []model.QuestionState
	for i := 0; i+2 < len(pairs); i += 3 {
		out = append(out, model.QuestionState{
			ID:     pairs[i].(int),
			Status: pairs[i+1].(model.Status),
			Answer: pairs[i+2].(string),
		})
	}
	return out
}
