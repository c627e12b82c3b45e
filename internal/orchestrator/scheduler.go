package orchestrator

import (
	"context"
	"time"
)

// Scheduler suspends the run between moves and between games.
type Scheduler interface {
	Wait(ctx context.Context, d time.Duration) error
}

type timerScheduler struct{}

// TimerScheduler waits on wall-clock timers.
func TimerScheduler() Scheduler { return timerScheduler{} }

func (timerScheduler) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Timing holds the delay policy. Skip mode replaces both delays with SkipDelay.
type Timing struct {
	MoveDelay time.Duration
	GameDelay time.Duration
	SkipDelay time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		MoveDelay: 500 * time.Millisecond,
		GameDelay: time.Second,
		SkipDelay: 10 * time.Millisecond,
	}
}
