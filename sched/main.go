// Package sched provides the interval timer used by the background loops. A loop
// is a function invoked on a fixed period until its context is cancelled;
// cancelling the context disarms the timer, and an in-flight invocation is
// allowed to finish with its result discarded by whoever no longer cares.
package sched

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithFields(logrus.Fields{"package": "sched"})

// Interval invokes tick every period until the context is cancelled. When
// immediate is true, one invocation runs before the first timer tick. Interval
// blocks; callers run it in its own goroutine. A panicking tick is logged and
// does not stop the loop.
func Interval(ctx context.Context, period time.Duration, immediate bool, tick func(context.Context)) {
	if immediate {
		runTick(ctx, tick)
	}

	timer := time.NewTicker(period)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			runTick(ctx, tick)
		}
	}
}

// runTick invokes one tick, containing any panic.
func runTick(ctx context.Context, tick func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered from a panicking timer tick: %v", r)
		}
	}()
	if ctx.Err() != nil {
		return
	}
	tick(ctx)
}
