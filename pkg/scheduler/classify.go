package scheduler

import (
	"github.com/tnsops/bookingbot/pkg/driver"
	"github.com/tnsops/bookingbot/pkg/submit"
)

// Outcome classifies how one record's submission attempt ended.
type Outcome int

const (
	// OutcomeDone means the portal confirmed the booking.
	OutcomeDone Outcome = iota

	// OutcomeStopped means a cancellation request interrupted the
	// attempt. Not a failure; the record stays pending.
	OutcomeStopped

	// OutcomeError covers everything else: confirmation timeouts,
	// readiness timeouts, driver failures. No automatic retry.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeStopped:
		return "stopped"
	default:
		return "error"
	}
}

// Classify maps a submission error onto its outcome. Cancellation is
// checked before anything else so a stop observed mid-wait never gets
// recorded as a failure.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDone
	case submit.IsStopped(err):
		return OutcomeStopped
	default:
		return OutcomeError
	}
}

// IsTimeout reports whether an error outcome was a remote timeout, which
// means diagnostics were captured for it.
func IsTimeout(err error) bool {
	return driver.IsWaitTimeout(err)
}
