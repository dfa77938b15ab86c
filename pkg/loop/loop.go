package loop

import (
	"context"
	"fmt"
	"time"
)

// Next tells Start what to do after a tick: continue after an interval,
// or break (with or without error).
type Next struct {
	// if not nil, breaks with error
	err error

	// if quit == true and err == nil, breaks without error
	quit bool

	// otherwise, continue loop with interval.
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}
	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// Continue keeps the loop going; the next tick starts after interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// Break stops the loop. Pass nil to break without error.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task is one tick of a loop: it receives the value from the previous tick
// and decides what happens next. Zero-value Next means "go next ASAP".
type Task[T any] func(context.Context, T) (T, Next)

// Start runs task in a loop until it Breaks or ctx is done.
//
// The task is first called as task(ctx, init); each later tick receives the
// value the previous tick returned. The sleep between ticks honours ctx:
// cancellation wins over the timer, and the task's latest value is returned
// together with ctx.Err().
func Start[T any](ctx context.Context, init T, task Task[T], options ...LoopOption) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		interval := 0 * time.Nanosecond

		lc := &loopConfig{ctx: ctx}
		for _, opt := range options {
			lc = opt(lc)
		}

		v, n := func() (T, Next) {
			ctx := lc.ctx
			if lc.deferred != nil {
				defer lc.deferred()
			}
			return task(ctx, value)
		}()

		if n.err != nil {
			return v, n.err
		} else if n.quit {
			return v, nil
		} else {
			value = v
			interval = n.interval
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			// shutdown has priority over the next tick.
			if !timer.Stop() {
				<-timer.C // drain. see time.Timer.Stop's document
			}
			return value, ctx.Err()

		case <-timer.C:
			continue
		}
	}
}

type loopConfig struct {
	ctx      context.Context
	deferred func()
}

type LoopOption func(*loopConfig) *loopConfig

// WithTimeout sets a per-tick timeout on the context passed to the task.
func WithTimeout(d time.Duration) LoopOption {
	return func(lc *loopConfig) *loopConfig {
		ctx, cancel := context.WithTimeout(lc.ctx, d)
		return &loopConfig{
			ctx: ctx,
			deferred: func() {
				if lc.deferred != nil {
					defer lc.deferred()
				}
				cancel()
			},
		}
	}
}
