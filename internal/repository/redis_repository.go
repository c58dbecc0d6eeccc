package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/model"
)

// RedisRepository persists a profile's session state in Redis.
type RedisRepository struct {
	rdb       *redis.Client
	profileID string
}

// NewRedisRepository creates a new RedisRepository scoped to profileID.
func NewRedisRepository(rdb *redis.Client, profileID string) *RedisRepository {
	return &RedisRepository{rdb: rdb, profileID: profileID}
}

// LoadStates reads the serialized question state list.
func (r *RedisRepository) LoadStates(ctx context.Context) ([]model.QuestionState, error) {
	data, err := r.rdb.Get(ctx, config.StorageKey.QuestionStatesKey(r.profileID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get question states: %w", err)
	}

	var states []model.QuestionState
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return states, nil
}

// SaveStates overwrites the serialized question state list.
func (r *RedisRepository) SaveStates(ctx context.Context, states []model.QuestionState) error {
	data, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("marshal question states: %w", err)
	}
	if err := r.rdb.Set(ctx, config.StorageKey.QuestionStatesKey(r.profileID), data, 0).Err(); err != nil {
		return fmt.Errorf("set question states: %w", err)
	}
	return nil
}

// LoadStartTime reads the exam start time stored as unix milliseconds.
func (r *RedisRepository) LoadStartTime(ctx context.Context) (time.Time, bool, error) {
	val, err := r.rdb.Get(ctx, config.StorageKey.ExamStartTimeKey(r.profileID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("get exam start time: %w", err)
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: invalid start time %q", ErrCorruptState, val)
	}
	return startTimeFromMillis(ms), true, nil
}

// SaveStartTime stores the exam start time as unix milliseconds.
func (r *RedisRepository) SaveStartTime(ctx context.Context, start time.Time) error {
	key := config.StorageKey.ExamStartTimeKey(r.profileID)
	if err := r.rdb.Set(ctx, key, start.UnixMilli(), 0).Err(); err != nil {
		return fmt.Errorf("set exam start time: %w", err)
	}
	return nil
}

// LoadPosition reads the current section/question position.
func (r *RedisRepository) LoadPosition(ctx context.Context) (model.Position, bool, error) {
	data, err := r.rdb.Get(ctx, config.StorageKey.PositionKey(r.profileID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Position{}, false, nil
		}
		return model.Position{}, false, fmt.Errorf("get position: %w", err)
	}

	var pos model.Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return model.Position{}, false, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return pos, true, nil
}

// SavePosition stores the current section/question position.
func (r *RedisRepository) SavePosition(ctx context.Context, pos model.Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}
	if err := r.rdb.Set(ctx, config.StorageKey.PositionKey(r.profileID), data, 0).Err(); err != nil {
		return fmt.Errorf("set position: %w", err)
	}
	return nil
}

// Clear deletes every key of the profile in a single pipeline.
func (r *RedisRepository) Clear(ctx context.Context) error {
	pipe := r.rdb.Pipeline()
	pipe.Del(ctx, config.StorageKey.QuestionStatesKey(r.profileID))
	pipe.Del(ctx, config.StorageKey.ExamStartTimeKey(r.profileID))
	pipe.Del(ctx, config.StorageKey.PositionKey(r.profileID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}
