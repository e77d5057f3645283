package ledger

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tnsops/bookingbot/pkg/booking"
)

type fakeSink struct {
	mu     sync.Mutex
	writes map[int]Status
	err    error
}

func newFakeSink() *fakeSink {
	return &fakeSink{writes: make(map[int]Status)}
}

func (s *fakeSink) WriteStatus(row int, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes[row] = status
	return nil
}

func (s *fakeSink) get(row int) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.writes[row]
	return st, ok
}

func testRecords() []booking.Record {
	return []booking.Record{
		{RowNumber: 2, Valid: true},
		{RowNumber: 3, Valid: true, Status: "Done"},
		{RowNumber: 4, Valid: true},
		{RowNumber: 5, Valid: false, Errors: []string{"invalid or missing date"}},
	}
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusDone, ParseStatus("Done"))
	assert.Equal(t, StatusDone, ParseStatus("done"))
	assert.Equal(t, StatusDone, ParseStatus(" DONE "))
	assert.Equal(t, StatusPending, ParseStatus(""))
	assert.Equal(t, StatusPending, ParseStatus("Error"))
	assert.Equal(t, StatusPending, ParseStatus("processing"))
	assert.Equal(t, StatusPending, ParseStatus("garbage"))
}

func TestLoad(t *testing.T) {
	l := Load(testRecords(), nil, zaptest.NewLogger(t))

	assert.Equal(t, StatusPending, l.Get(2))
	assert.Equal(t, StatusDone, l.Get(3))
	// Invalid records never enter the ledger.
	assert.Equal(t, StatusPending, l.Get(5))
	assert.Error(t, l.Transition(5, StatusProcessing))
}

func TestTransitionGraph(t *testing.T) {
	sink := newFakeSink()
	l := Load(testRecords(), sink, zaptest.NewLogger(t))

	require.NoError(t, l.Transition(2, StatusProcessing))
	require.NoError(t, l.Transition(2, StatusDone))
	l.Flush()

	st, ok := sink.get(2)
	require.True(t, ok)
	assert.Equal(t, StatusDone, st)

	// Terminal states reject further transitions.
	err := l.Transition(2, StatusProcessing)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StatusDone, te.From)

	// pending -> done skips processing and is rejected.
	err = l.Transition(4, StatusDone)
	require.ErrorAs(t, err, &te)

	// Unknown row.
	assert.ErrorIs(t, l.Transition(99, StatusProcessing), ErrUnknownRow)
}

func TestTransitionErrorPersists(t *testing.T) {
	sink := newFakeSink()
	l := Load(testRecords(), sink, zaptest.NewLogger(t))

	require.NoError(t, l.Transition(4, StatusProcessing))
	require.NoError(t, l.Transition(4, StatusError))
	l.Flush()

	st, ok := sink.get(4)
	require.True(t, ok)
	assert.Equal(t, StatusError, st)
}

func TestProcessingNotPersisted(t *testing.T) {
	sink := newFakeSink()
	l := Load(testRecords(), sink, zaptest.NewLogger(t))

	require.NoError(t, l.Transition(2, StatusProcessing))
	l.Flush()

	_, ok := sink.get(2)
	assert.False(t, ok)
}

func TestSinkFailureDoesNotBlock(t *testing.T) {
	sink := newFakeSink()
	sink.err = errors.New("disk full")
	l := Load(testRecords(), sink, zaptest.NewLogger(t))

	require.NoError(t, l.Transition(2, StatusProcessing))
	require.NoError(t, l.Transition(2, StatusDone))
	l.Flush()

	// The ledger keeps its in-memory state even when persistence fails.
	assert.Equal(t, StatusDone, l.Get(2))
}

func TestReprocess(t *testing.T) {
	l := Load(testRecords(), nil, zaptest.NewLogger(t))

	// Row 3 loaded as done; reprocessing puts it back in flight.
	require.NoError(t, l.Reprocess(3))
	assert.Equal(t, StatusProcessing, l.Get(3))
	require.NoError(t, l.Transition(3, StatusDone))

	// Pending rows cannot be "reprocessed".
	assert.Error(t, l.Reprocess(2))
	assert.ErrorIs(t, l.Reprocess(99), ErrUnknownRow)
}

func TestReset(t *testing.T) {
	l := Load(testRecords(), nil, zaptest.NewLogger(t))

	require.NoError(t, l.Transition(2, StatusProcessing))
	l.Reset(2)
	assert.Equal(t, StatusPending, l.Get(2))

	// Reset only applies to in-flight rows.
	l.Reset(3)
	assert.Equal(t, StatusDone, l.Get(3))
}

func TestFilterPending(t *testing.T) {
	records := testRecords()
	l := Load(records, nil, zaptest.NewLogger(t))

	pending := l.FilterPending(records)
	require.Len(t, pending, 2)
	assert.Equal(t, 2, pending[0].RowNumber)
	assert.Equal(t, 4, pending[1].RowNumber)

	// Finishing every remaining row leaves nothing to do.
	for _, r := range pending {
		require.NoError(t, l.Transition(r.RowNumber, StatusProcessing))
		require.NoError(t, l.Transition(r.RowNumber, StatusDone))
	}
	assert.Empty(t, l.FilterPending(records))
}

func TestCounts(t *testing.T) {
	l := Load(testRecords(), nil, zaptest.NewLogger(t))

	require.NoError(t, l.Transition(2, StatusProcessing))

	c := l.Counts()
	assert.Equal(t, 1, c.Processing)
	assert.Equal(t, 1, c.Done)
	assert.Equal(t, 1, c.Pending)
	assert.Zero(t, c.Error)
}
