package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countdown returns a remaining func that loses step on every call.
func countdown(start, step time.Duration) func() time.Duration {
	var calls atomic.Int64
	return func() time.Duration {
		n := calls.Add(1) - 1
		return start - time.Duration(n)*step
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Second, "00:00:00"},
		{999 * time.Millisecond, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{time.Hour, "01:00:00"},
		{3*time.Hour + 4*time.Minute + 5*time.Second, "03:04:05"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRemaining(tt.in), tt.in.String())
	}
}

func TestNewTick(t *testing.T) {
	tick := NewTick(time.Hour)
	assert.Equal(t, int64(3600000), tick.RemainingMs)
	assert.Equal(t, "01:00:00", tick.Formatted)
	assert.False(t, tick.LowTime)

	assert.True(t, NewTick(4*time.Minute).LowTime)
	assert.Equal(t, int64(0), NewTick(-time.Minute).RemainingMs)
}

func TestTimerWorker_ExpiresExactlyOnce(t *testing.T) {
	var fired atomic.Int32
	w := NewTimerWorker(countdown(2*time.Millisecond, time.Millisecond), func() { fired.Add(1) }, time.Millisecond, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after expiry")
	}
	assert.Equal(t, int32(1), fired.Load())

	// A stopped worker never fires again.
	w.poll()
	assert.Equal(t, int32(1), fired.Load())
}

func TestTimerWorker_AlreadyExpiredFiresImmediately(t *testing.T) {
	var fired atomic.Int32
	w := NewTimerWorker(func() time.Duration { return 0 }, func() { fired.Add(1) }, time.Hour, zerolog.Nop())

	w.Start(context.Background())

	assert.Equal(t, int32(1), fired.Load())
}

func TestTimerWorker_CancelStopsWithoutExpiry(t *testing.T) {
	var fired atomic.Int32
	w := NewTimerWorker(func() time.Duration { return time.Hour }, func() { fired.Add(1) }, time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
	assert.Zero(t, fired.Load())
}

func TestTimerWorker_PublishesTicks(t *testing.T) {
	w := NewTimerWorker(func() time.Duration { return 90 * time.Second }, nil, time.Millisecond, zerolog.Nop())
	ticks, unsubscribe := w.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case tick := <-ticks:
		assert.Equal(t, "00:01:30", tick.Formatted)
		assert.True(t, tick.LowTime)
	case <-time.After(2 * time.Second):
		t.Fatal("no tick received")
	}

	cancel()
	<-done

	// Subscriber channels close with the worker.
	for range ticks {
	}
}

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster[int](1)
	a, unsubA := b.Subscribe()
	c, unsubC := b.Subscribe()

	b.Publish(1)
	b.Publish(2) // dropped: buffers are full

	require.Equal(t, 1, <-a)
	require.Equal(t, 1, <-c)

	unsubA()
	unsubA()
	_, open := <-a
	assert.False(t, open)

	b.Publish(3)
	assert.Equal(t, 3, <-c)

	b.Close()
	_, open = <-c
	assert.False(t, open)
	unsubC()

	late, _ := b.Subscribe()
	_, open = <-late
	assert.False(t, open)
}
