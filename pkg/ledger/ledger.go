// Package ledger tracks per-record submission status for a running batch
// and mirrors terminal states into the backing workbook.
//
// The ledger is the single source of truth for "already completed"
// filtering. The scheduler is its only writer; the UI layer and the status
// endpoint read snapshots.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tnsops/bookingbot/pkg/booking"
)

// Status is the lifecycle state of one record.
//
// NOTE: the "done"/"error" values are persisted into the workbook's Status
// column (title-cased) and are part of the stable file contract.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// ParseStatus maps a raw workbook cell to a Status. Only a case-insensitive
// "done" survives a reload; anything else (including "Error") comes back as
// pending so failed rows stay re-runnable.
func ParseStatus(s string) Status {
	if strings.EqualFold(strings.TrimSpace(s), string(StatusDone)) {
		return StatusDone
	}
	return StatusPending
}

// ErrUnknownRow indicates a transition for a row the ledger never loaded.
var ErrUnknownRow = errors.New("row not present in ledger")

// TransitionError reports an illegal state transition.
type TransitionError struct {
	Row  int
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("row %d: illegal status transition %s -> %s", e.Row, e.From, e.To)
}

// Sink receives terminal status writes. The workbook store implements it.
type Sink interface {
	WriteStatus(row int, status Status) error
}

// Entry is one record's ledger state.
type Entry struct {
	Row    int
	Status Status
}

// Counts is a point-in-time tally for progress reporting.
type Counts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Error      int `json:"error"`
}

// Ledger holds one entry per valid record, keyed by workbook row number.
type Ledger struct {
	mu      sync.Mutex
	entries map[int]*Entry
	sink    Sink
	logger  *zap.Logger

	// persist tracks in-flight asynchronous sink writes so shutdown and
	// tests can flush them.
	persist sync.WaitGroup
}

// Load builds a ledger from the records' status cells. Exactly one entry is
// created per valid record; invalid records never enter the ledger because
// they are never submitted. A nil sink disables persistence.
func Load(records []booking.Record, sink Sink, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries := make(map[int]*Entry, len(records))
	for _, r := range records {
		if !r.Valid {
			continue
		}
		entries[r.RowNumber] = &Entry{Row: r.RowNumber, Status: ParseStatus(r.Status)}
	}
	return &Ledger{entries: entries, sink: sink, logger: logger}
}

// Get returns the current status for a row; unknown rows read as pending.
func (l *Ledger) Get(row int) Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[row]; ok {
		return e.Status
	}
	return StatusPending
}

// Transition moves a row along the pending -> processing -> {done, error}
// graph. Terminal states persist to the sink without blocking the caller.
// Re-running a finished row goes through Reprocess instead.
func (l *Ledger) Transition(row int, next Status) error {
	l.mu.Lock()
	e, ok := l.entries[row]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownRow, row)
	}

	if !legalTransition(e.Status, next) {
		err := &TransitionError{Row: row, From: e.Status, To: next}
		l.mu.Unlock()
		return err
	}

	e.Status = next
	l.mu.Unlock()

	if next == StatusDone || next == StatusError {
		l.persistAsync(row, next)
	}
	return nil
}

// Reprocess returns a finished (done or error) row to processing. This is
// the only path back from a terminal state and requires explicit user
// intent; batch runs never call it.
func (l *Ledger) Reprocess(row int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[row]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRow, row)
	}
	if e.Status != StatusDone && e.Status != StatusError {
		return &TransitionError{Row: row, From: e.Status, To: StatusProcessing}
	}
	e.Status = StatusProcessing
	return nil
}

// Reset returns an in-flight row to pending without persisting anything.
// Used when a submission attempt unwinds on a user stop: the record was
// neither completed nor failed, so it must stay eligible for the next run.
func (l *Ledger) Reset(row int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[row]; ok && e.Status == StatusProcessing {
		e.Status = StatusPending
	}
}

// FilterPending returns the records still eligible for submission: valid
// and not yet done. Callers should report "nothing to do" when the result
// is empty rather than re-running anything.
func (l *Ledger) FilterPending(records []booking.Record) []booking.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]booking.Record, 0, len(records))
	for _, r := range records {
		if !r.Valid {
			continue
		}
		if e, ok := l.entries[r.RowNumber]; ok && e.Status == StatusDone {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Counts tallies entries by status.
func (l *Ledger) Counts() Counts {
	l.mu.Lock()
	defer l.mu.Unlock()

	var c Counts
	for _, e := range l.entries {
		switch e.Status {
		case StatusProcessing:
			c.Processing++
		case StatusDone:
			c.Done++
		case StatusError:
			c.Error++
		default:
			c.Pending++
		}
	}
	return c
}

// Flush blocks until all asynchronous persistence writes have completed.
func (l *Ledger) Flush() {
	l.persist.Wait()
}

func (l *Ledger) persistAsync(row int, status Status) {
	if l.sink == nil {
		return
	}
	l.persist.Add(1)
	go func() {
		defer l.persist.Done()
		if err := l.sink.WriteStatus(row, status); err != nil {
			l.logger.Warn("failed to persist record status",
				zap.Int("row", row),
				zap.String("status", string(status)),
				zap.Error(err))
		}
	}()
}

func legalTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusDone || to == StatusError
	default:
		return false
	}
}
