package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prevairwatch/prevairwatch/internal/scheduler"
)

type countingTicker struct {
	ticks    atomic.Int32
	deadline atomic.Bool
}

func (c *countingTicker) Tick(ctx context.Context, _ time.Time) bool {
	c.ticks.Add(1)
	if _, ok := ctx.Deadline(); ok {
		c.deadline.Store(true)
	}
	return true
}

func TestScheduler_FirstHeartbeatImmediate(t *testing.T) {
	ticker := &countingTicker{}
	s := scheduler.New(scheduler.Config{Interval: time.Hour, Logger: zerolog.Nop()}, ticker)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return ticker.ticks.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, ticker.deadline.Load(), "heartbeats carry a timeout")
}

func TestScheduler_Repeats(t *testing.T) {
	ticker := &countingTicker{}
	s := scheduler.New(scheduler.Config{Interval: time.Second, Logger: zerolog.Nop()}, ticker)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return ticker.ticks.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}

func TestScheduler_CancelledContext(t *testing.T) {
	ticker := &countingTicker{}
	s := scheduler.New(scheduler.Config{Interval: time.Hour, Logger: zerolog.Nop()}, ticker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, ticker.ticks.Load())
}
