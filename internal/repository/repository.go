package repository

import (
	"context"
	"errors"
	"time"

	"github.com/stemsi/exstem-session/internal/model"
)

// ErrCorruptState is returned when persisted session data cannot be decoded.
var ErrCorruptState = errors.New("corrupt persisted session state")

// Repository is the durable local storage behind one test-taker profile.
// Absent values are reported as empty results, not errors. Clear removes
// states, start time and position together.
type Repository interface {
	LoadStates(ctx context.Context) ([]model.QuestionState, error)
	SaveStates(ctx context.Context, states []model.QuestionState) error

	LoadStartTime(ctx context.Context) (time.Time, bool, error)
	SaveStartTime(ctx context.Context, start time.Time) error

	LoadPosition(ctx context.Context) (model.Position, bool, error)
	SavePosition(ctx context.Context, pos model.Position) error

	Clear(ctx context.Context) error
}

// startTimeFromMillis converts the persisted unix-millisecond timestamp.
func startTimeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
