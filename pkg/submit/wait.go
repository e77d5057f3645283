// Package submit drives one booking record through the portal's
// multi-step creation form and verifies the portal confirmed it.
package submit

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/tnsops/bookingbot/pkg/driver"
)

// ErrStopped indicates a cancellation request was observed mid-wait.
// It is a distinct outcome, not a failure.
var ErrStopped = errors.New("stopped by user")

// IsStopped reports whether the error is a cancellation outcome.
func IsStopped(err error) bool {
	return errors.Is(err, ErrStopped)
}

// DefaultSlice bounds cancellation latency: every wait is broken into
// slices of this size and the stop flag is checked between slices.
const DefaultSlice = 100 * time.Millisecond

// Waiter implements chunked interruptible waiting. All remote waits in
// the protocol go through it so a stop request is honored within one
// slice no matter how long the requested wait was.
type Waiter struct {
	slice      time.Duration
	stop       *atomic.Bool
	shouldStop func() bool
}

// NewWaiter returns a waiter polling the stop flag and the optional
// shouldStop predicate once per slice. Either source interrupts a wait;
// shouldStop may be nil. A zero slice uses DefaultSlice.
func NewWaiter(slice time.Duration, stop *atomic.Bool, shouldStop func() bool) *Waiter {
	if slice <= 0 {
		slice = DefaultSlice
	}
	return &Waiter{slice: slice, stop: stop, shouldStop: shouldStop}
}

// Slice returns the configured slice duration.
func (w *Waiter) Slice() time.Duration {
	return w.slice
}

// Stopped reports whether cancellation has been requested through either
// source.
func (w *Waiter) Stopped() bool {
	if w.stop != nil && w.stop.Load() {
		return true
	}
	return w.shouldStop != nil && w.shouldStop()
}

func (w *Waiter) check(ctx context.Context) error {
	if w.Stopped() {
		return ErrStopped
	}
	if ctx.Err() != nil {
		return ErrStopped
	}
	return nil
}

// Sleep waits for d in slices, returning ErrStopped as soon as
// cancellation is observed.
func (w *Waiter) Sleep(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		if err := w.check(ctx); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		if remaining > w.slice {
			remaining = w.slice
		}
		time.Sleep(remaining)
	}
}

// WaitUntil polls cond once per slice until it reports true, the timeout
// expires, or cancellation is observed. A timeout surfaces as
// driver.ErrWaitTimeout so callers classify it like any readiness
// timeout; a cond error ends the wait immediately.
func (w *Waiter) WaitUntil(ctx context.Context, timeout time.Duration, cond func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := w.check(ctx); err != nil {
			return err
		}
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return driver.ErrWaitTimeout
		}
		time.Sleep(w.slice)
	}
}
