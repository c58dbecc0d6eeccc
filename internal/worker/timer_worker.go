package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LowTimeThreshold is the remaining time under which the clock is shown as a warning.
const LowTimeThreshold = 5 * time.Minute

// Tick is published on every poll of the exam clock.
type Tick struct {
	RemainingMs int64  `json:"remaining_ms"`
	Formatted   string `json:"formatted"`
	LowTime     bool   `json:"low_time"`
}

// NewTick builds the tick for a remaining duration.
func NewTick(remaining time.Duration) Tick {
	if remaining < 0 {
		remaining = 0
	}
	return Tick{
		RemainingMs: remaining.Milliseconds(),
		Formatted:   FormatRemaining(remaining),
		LowTime:     remaining < LowTimeThreshold,
	}
}

// FormatRemaining renders d as HH:MM:SS, rounding partial seconds down.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// TimerWorker polls the exam clock, publishes ticks and fires onExpire once
// when no time remains.
type TimerWorker struct {
	remaining func() time.Duration
	onExpire  func()
	interval  time.Duration
	ticks     *Broadcaster[Tick]
	once      sync.Once
	log       zerolog.Logger
}

// NewTimerWorker creates a new TimerWorker.
func NewTimerWorker(remaining func() time.Duration, onExpire func(), interval time.Duration, log zerolog.Logger) *TimerWorker {
	if interval <= 0 {
		interval = time.Second
	}
	return &TimerWorker{
		remaining: remaining,
		onExpire:  onExpire,
		interval:  interval,
		ticks:     NewBroadcaster[Tick](8),
		log:       log.With().Str("component", "timer_worker").Logger(),
	}
}

// Subscribe returns a channel of ticks and its unsubscribe func. The channel
// is closed when the worker stops.
func (w *TimerWorker) Subscribe() (<-chan Tick, func()) {
	return w.ticks.Subscribe()
}

// Start runs the poll loop until ctx is cancelled or the clock expires. Call in a goroutine.
func (w *TimerWorker) Start(ctx context.Context) {
	w.log.Debug().Dur("interval", w.interval).Msg("Worker started")
	defer w.ticks.Close()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if w.poll() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Debug().Msg("Worker stopped")
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if w.poll() {
				return
			}
		}
	}
}

// poll publishes the current tick and reports whether the clock has expired.
func (w *TimerWorker) poll() bool {
	remaining := w.remaining()
	w.ticks.Publish(NewTick(remaining))

	if remaining > 0 {
		return false
	}

	w.once.Do(func() {
		w.log.Info().Msg("Exam time expired")
		if w.onExpire != nil {
			w.onExpire()
		}
	})
	return true
}
