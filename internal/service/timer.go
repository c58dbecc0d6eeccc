package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/repository"
)

// Timer derives the remaining exam time from a persisted start time and a
// fixed duration. Remaining time itself is never stored.
type Timer struct {
	mu       sync.RWMutex
	repo     repository.Repository
	duration time.Duration
	policy   string
	now      func() time.Time
	start    time.Time
	started  bool
	log      zerolog.Logger
}

// NewTimer creates a Timer. policy is config.StaleStartReset or config.StaleStartExpire.
func NewTimer(repo repository.Repository, duration time.Duration, policy string, now func() time.Time, log zerolog.Logger) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{
		repo:     repo,
		duration: duration,
		policy:   policy,
		now:      now,
		log:      log.With().Str("component", "session_timer").Logger(),
	}
}

// Duration returns the fixed exam duration.
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Remaining returns max(0, duration - (now - start)). An unstarted timer
// reports the full duration.
func (t *Timer) Remaining() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.started {
		return t.duration
	}
	left := t.duration - t.now().Sub(t.start)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether a started timer has run out.
func (t *Timer) Expired() bool {
	t.mu.RLock()
	started := t.started
	t.mu.RUnlock()
	return started && t.Remaining() == 0
}

// StartTime returns the start time in effect.
func (t *Timer) StartTime() (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.start, t.started
}

// Resume adopts persisted when less than the duration has elapsed since it.
// A stale or future start time is handled by the stale-start policy: reset
// starts a fresh clock, expire keeps the stale start so no time remains.
// It reports whether persisted was adopted.
func (t *Timer) Resume(ctx context.Context, persisted time.Time) (bool, error) {
	elapsed := t.now().Sub(persisted)

	if elapsed >= 0 && elapsed < t.duration {
		t.mu.Lock()
		t.start = persisted
		t.started = true
		t.mu.Unlock()
		t.log.Info().Time("start", persisted).Dur("remaining", t.Remaining()).Msg("Resumed exam clock")
		return true, nil
	}

	if elapsed >= 0 && t.policy == config.StaleStartExpire {
		t.mu.Lock()
		t.start = persisted
		t.started = true
		t.mu.Unlock()
		t.log.Warn().Time("start", persisted).Msg("Persisted exam clock already ran out")
		return true, nil
	}

	t.log.Info().Time("start", persisted).Msg("Persisted exam clock is stale, starting a fresh one")
	return false, t.Reset(ctx)
}

// Reset starts the clock now and persists the start time.
func (t *Timer) Reset(ctx context.Context) error {
	start := t.now().Truncate(time.Millisecond)

	t.mu.Lock()
	t.start = start
	t.started = true
	t.mu.Unlock()

	if err := t.repo.SaveStartTime(ctx, start); err != nil {
		return fmt.Errorf("save start time: %w", err)
	}
	return nil
}

