package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalRunsUntilCancelled(t *testing.T) {
	assert := assert.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	var ticks atomic.Int64
	done := make(chan struct{})
	go func() {
		Interval(ctx, 5*time.Millisecond, true, func(context.Context) {
			ticks.Add(1)
		})
		close(done)
	}()

	// The immediate invocation plus at least one timer tick.
	assert.Eventually(func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)

	// Cancelling the context disarms the timer and the loop returns.
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("the interval loop did not stop after cancellation")
	}
}

func TestIntervalSurvivesPanickingTick(t *testing.T) {
	assert := assert.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ticks atomic.Int64
	go Interval(ctx, 5*time.Millisecond, false, func(context.Context) {
		if ticks.Add(1) == 1 {
			panic("first tick explodes")
		}
	})

	// The loop keeps ticking after the panic.
	assert.Eventually(func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
}
