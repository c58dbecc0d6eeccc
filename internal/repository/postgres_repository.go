package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-session/internal/model"
)

// PostgresRepository persists a profile's session state as one row of session_states.
type PostgresRepository struct {
	pool      *pgxpool.Pool
	profileID string
}

// NewPostgresRepository creates a new PostgresRepository scoped to profileID.
func NewPostgresRepository(pool *pgxpool.Pool, profileID string) *PostgresRepository {
	return &PostgresRepository{pool: pool, profileID: profileID}
}

// LoadStates reads the question state list.
func (r *PostgresRepository) LoadStates(ctx context.Context) ([]model.QuestionState, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT question_states FROM session_states WHERE profile_id = $1`, r.profileID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select question states: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var states []model.QuestionState
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return states, nil
}

// SaveStates upserts the question state list.
func (r *PostgresRepository) SaveStates(ctx context.Context, states []model.QuestionState) error {
	data, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("marshal question states: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO session_states (profile_id, question_states)
		 VALUES ($1, $2)
		 ON CONFLICT (profile_id) DO UPDATE
		 SET question_states = EXCLUDED.question_states, updated_at = NOW()`,
		r.profileID, data,
	)
	if err != nil {
		return fmt.Errorf("upsert question states: %w", err)
	}
	return nil
}

// LoadStartTime reads the exam start time (unix milliseconds).
func (r *PostgresRepository) LoadStartTime(ctx context.Context) (time.Time, bool, error) {
	var ms *int64
	err := r.pool.QueryRow(ctx,
		`SELECT exam_start_time FROM session_states WHERE profile_id = $1`, r.profileID,
	).Scan(&ms)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("select exam start time: %w", err)
	}
	if ms == nil {
		return time.Time{}, false, nil
	}
	return startTimeFromMillis(*ms), true, nil
}

// SaveStartTime upserts the exam start time.
func (r *PostgresRepository) SaveStartTime(ctx context.Context, start time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_states (profile_id, exam_start_time)
		 VALUES ($1, $2)
		 ON CONFLICT (profile_id) DO UPDATE
		 SET exam_start_time = EXCLUDED.exam_start_time, updated_at = NOW()`,
		r.profileID, start.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert exam start time: %w", err)
	}
	return nil
}

// LoadPosition reads the current section/question position.
func (r *PostgresRepository) LoadPosition(ctx context.Context) (model.Position, bool, error) {
	var sectionID, questionID *int
	err := r.pool.QueryRow(ctx,
		`SELECT section_id, question_id FROM session_states WHERE profile_id = $1`, r.profileID,
	).Scan(&sectionID, &questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Position{}, false, nil
		}
		return model.Position{}, false, fmt.Errorf("select position: %w", err)
	}
	if sectionID == nil || questionID == nil {
		return model.Position{}, false, nil
	}
	return model.Position{SectionID: *sectionID, QuestionID: *questionID}, true, nil
}

// SavePosition upserts the current section/question position.
func (r *PostgresRepository) SavePosition(ctx context.Context, pos model.Position) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_states (profile_id, section_id, question_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (profile_id) DO UPDATE
		 SET section_id = EXCLUDED.section_id,
		     question_id = EXCLUDED.question_id,
		     updated_at = NOW()`,
		r.profileID, pos.SectionID, pos.QuestionID,
	)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

// Clear removes the profile's row.
func (r *PostgresRepository) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM session_states WHERE profile_id = $1`, r.profileID); err != nil {
		return fmt.Errorf("delete session state: %w", err)
	}
	return nil
}
