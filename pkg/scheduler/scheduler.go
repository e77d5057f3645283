// Package scheduler runs the submission protocol over a batch of
// records, one at a time, keeping the ledger and the UI in step.
//
// Exactly one goroutine ever drives the automation client. The
// scheduler owns that goroutine for the duration of Start or RunOne;
// responsiveness comes from the chunked waits inside the protocol, not
// from parallelism.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tnsops/bookingbot/pkg/booking"
	"github.com/tnsops/bookingbot/pkg/ledger"
)

// ErrBusy rejects a run request while another record is in flight.
var ErrBusy = errors.New("a record is already in flight")

// Submitter runs one record through the remote form.
type Submitter interface {
	Submit(ctx context.Context, rec booking.Record) error
}

// Callbacks notify the host UI. All fields are optional. They are
// invoked from the scheduler goroutine; implementations must hand off
// to their own loop rather than block.
type Callbacks struct {
	OnStatusChange func(row int, status ledger.Status)
	OnProgress     func(done, total int)

	// ShouldStop is an extra cancellation source checked alongside the
	// shared stop flag, both between records and (via the waiter it is
	// wired into) once per wait slice.
	ShouldStop func() bool
}

// Config carries scheduler tunables.
type Config struct {
	// PacePerMinute throttles record starts when positive. Zero means
	// no pacing.
	PacePerMinute float64
}

// Summary reports how a batch run ended.
type Summary struct {
	Total   int `json:"total"`
	Done    int `json:"done"`
	Errored int `json:"errored"`

	// Stopped counts pending records left unprocessed because a stop
	// request ended the batch, including one interrupted mid-attempt.
	Stopped int `json:"stopped"`

	// SkippedInvalid counts rows that failed validation and never
	// entered the batch.
	SkippedInvalid int `json:"skipped_invalid"`

	// NothingToDo is set when every valid record was already done.
	NothingToDo bool `json:"nothing_to_do"`
}

// Scheduler orchestrates batch and single-record runs.
type Scheduler struct {
	sub     Submitter
	led     *ledger.Ledger
	stop    *atomic.Bool
	cfg     Config
	cb      Callbacks
	limiter *rate.Limiter
	logger  *zap.Logger

	busy atomic.Bool
}

// New wires a scheduler. The stop flag is shared with the protocol's
// waiter so one request interrupts both the batch loop and any wait in
// flight.
func New(sub Submitter, led *ledger.Ledger, stop *atomic.Bool, cfg Config, cb Callbacks, logger *zap.Logger) *Scheduler {
	var limiter *rate.Limiter
	if cfg.PacePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.PacePerMinute/60.0), 1)
	}
	return &Scheduler{
		sub:     sub,
		led:     led,
		stop:    stop,
		cfg:     cfg,
		cb:      cb,
		limiter: limiter,
		logger:  logger,
	}
}

// Stop requests cancellation. It is honored at the next wait slice;
// the record in flight unwinds back to pending.
func (s *Scheduler) Stop() {
	s.stop.Store(true)
}

// Busy reports whether a record is in flight.
func (s *Scheduler) Busy() bool {
	return s.busy.Load()
}

func (s *Scheduler) stopping(ctx context.Context) bool {
	if s.stop.Load() || ctx.Err() != nil {
		return true
	}
	return s.cb.ShouldStop != nil && s.cb.ShouldStop()
}

func (s *Scheduler) notifyStatus(row int, status ledger.Status) {
	if s.cb.OnStatusChange != nil {
		s.cb.OnStatusChange(row, status)
	}
}

func (s *Scheduler) notifyProgress(done, total int) {
	if s.cb.OnProgress != nil {
		s.cb.OnProgress(done, total)
	}
}

// Start runs every pending valid record in order. Invalid rows are
// skipped, finished rows are filtered out, and a stop request ends the
// batch after the current wait slice. The ledger is flushed before the
// summary is returned.
func (s *Scheduler) Start(ctx context.Context, records []booking.Record) (*Summary, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)
	s.stop.Store(false)

	summary := &Summary{Total: len(records)}
	for _, rec := range records {
		if !rec.Valid {
			summary.SkippedInvalid++
		}
	}

	pending := s.led.FilterPending(records)
	if len(pending) == 0 {
		summary.NothingToDo = true
		s.logger.Info("nothing to do: all records already done",
			zap.Int("total", summary.Total))
		return summary, nil
	}

	s.logger.Info("batch started",
		zap.Int("pending", len(pending)),
		zap.Int("total", summary.Total),
		zap.Int("skipped_invalid", summary.SkippedInvalid))

	for i, rec := range pending {
		if s.stopping(ctx) {
			summary.Stopped = len(pending) - i
			break
		}
		if err := s.pace(ctx); err != nil {
			summary.Stopped = len(pending) - i
			break
		}

		outcome := s.runRecord(ctx, rec)
		switch outcome {
		case OutcomeDone:
			summary.Done++
		case OutcomeError:
			summary.Errored++
		case OutcomeStopped:
			summary.Stopped = len(pending) - i
		}
		s.notifyProgress(summary.Done, len(pending))
		if outcome == OutcomeStopped {
			break
		}
	}

	s.led.Flush()
	s.logger.Info("batch finished",
		zap.Int("done", summary.Done),
		zap.Int("errored", summary.Errored),
		zap.Int("stopped", summary.Stopped))
	return summary, nil
}

// RunOne processes a single record on demand, re-arming it first if it
// already finished. Rejected with ErrBusy while another record is in
// flight.
func (s *Scheduler) RunOne(ctx context.Context, rec booking.Record) (Outcome, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return OutcomeError, ErrBusy
	}
	defer s.busy.Store(false)
	s.stop.Store(false)

	status := s.led.Get(rec.RowNumber)
	if status == ledger.StatusDone || status == ledger.StatusError {
		if err := s.led.Reprocess(rec.RowNumber); err != nil {
			return OutcomeError, err
		}
	}

	outcome := s.runRecord(ctx, rec)
	s.led.Flush()
	return outcome, nil
}

// runRecord moves one record pending → processing → outcome, keeping
// the ledger and UI callbacks in step. A stopped attempt unwinds the
// row back to pending so the next batch picks it up.
func (s *Scheduler) runRecord(ctx context.Context, rec booking.Record) Outcome {
	row := rec.RowNumber
	log := s.logger.With(zap.Int("row", row), zap.String("driver", rec.Driver))

	// Reprocessed rows are already in processing.
	if s.led.Get(row) != ledger.StatusProcessing {
		if err := s.led.Transition(row, ledger.StatusProcessing); err != nil {
			log.Error("cannot start record", zap.Error(err))
			return OutcomeError
		}
	}
	s.notifyStatus(row, ledger.StatusProcessing)

	err := s.sub.Submit(ctx, rec)
	outcome := Classify(err)

	switch outcome {
	case OutcomeDone:
		if terr := s.led.Transition(row, ledger.StatusDone); terr != nil {
			log.Error("done transition failed", zap.Error(terr))
		}
		s.notifyStatus(row, ledger.StatusDone)
		log.Info("record done")

	case OutcomeStopped:
		s.led.Reset(row)
		s.notifyStatus(row, ledger.StatusPending)
		log.Info("record stopped, left pending")

	case OutcomeError:
		if terr := s.led.Transition(row, ledger.StatusError); terr != nil {
			log.Error("error transition failed", zap.Error(terr))
		}
		s.notifyStatus(row, ledger.StatusError)
		log.Error("record failed",
			zap.Bool("timeout", IsTimeout(err)),
			zap.Error(err))
	}
	return outcome
}

// pace waits out the rate limit if one is configured. A canceled
// context surfaces as a stop.
func (s *Scheduler) pace(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}
