package submit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tnsops/bookingbot/pkg/address"
	"github.com/tnsops/bookingbot/pkg/booking"
	"github.com/tnsops/bookingbot/pkg/driver"
)

// fakeClient scripts the portal: every operation is recorded, QueryAll
// answers are canned per locator, and the confirmation text appears
// only when confirm is set.
type fakeClient struct {
	mu         sync.Mutex
	ops        []string
	typed      map[string]string
	setValues  map[string]string
	clickedNth []int
	candid     []string
	confirm    bool
	waitErr    error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		typed:     make(map[string]string),
		setValues: make(map[string]string),
	}
}

func (f *fakeClient) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *fakeClient) Navigate(ctx context.Context, url string) error {
	f.record("navigate " + url)
	return nil
}

func (f *fakeClient) Click(ctx context.Context, locator string) error {
	f.record("click " + locator)
	return nil
}

func (f *fakeClient) ClickNth(ctx context.Context, locator string, n int) error {
	f.record("clicknth " + locator)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clickedNth = append(f.clickedNth, n)
	return nil
}

func (f *fakeClient) Type(ctx context.Context, locator, text string) error {
	f.record("type " + locator)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed[locator] = text
	return nil
}

func (f *fakeClient) SetValue(ctx context.Context, locator, value string) error {
	f.record("setvalue " + locator)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setValues[locator] = value
	return nil
}

func (f *fakeClient) WaitFor(ctx context.Context, locator string, timeout time.Duration) error {
	return f.waitErr
}

func (f *fakeClient) QueryAll(ctx context.Context, locator string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.candid, nil
}

func (f *fakeClient) Evaluate(ctx context.Context, script string, out any) error {
	return nil
}

func (f *fakeClient) Screenshot(ctx context.Context, path string) error {
	f.record("screenshot")
	return os.WriteFile(path, []byte("png"), 0o644)
}

func (f *fakeClient) VisibleText(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirm {
		return "Booking created successfully", nil
	}
	return "Create a new booking", nil
}

func validRecord() booking.Record {
	return booking.Record{
		RowNumber: 2,
		Date:      "30/10/2025",
		Time:      "09:30",
		Driver:    "Alex Smith",
		Mobile:    "+61 412 345 678",
		From:      "NMED",
		To:        "FSH",
	}
}

func testProtocol(t *testing.T, client driver.Client, cfg Config) *Protocol {
	t.Helper()
	logger := zaptest.NewLogger(t)
	resolver := address.NewResolver([]address.Entry{
		{Codes: []string{"NMED"}, Address: "300 Grattan St, Parkville"},
		{Codes: []string{"FSH"}, Address: "41 Victoria Pde, Fitzroy"},
	}, logger)
	waiter := NewWaiter(time.Millisecond, &atomic.Bool{}, nil)
	return New(client, resolver, waiter, cfg, logger)
}

func baseConfig(t *testing.T) Config {
	return Config{
		CreateURL:      "https://portal.example/bookings/create",
		Annotation:     "Metro",
		CountryCode:    "61",
		ReadyTimeout:   50 * time.Millisecond,
		ConfirmTimeout: 50 * time.Millisecond,
		ConfirmText:    "Booking created",
		DiagnosticsDir: t.TempDir(),
	}
}

func TestSubmitHappyPath(t *testing.T) {
	client := newFakeClient()
	client.candid = []string{
		"300 Grattan St, Parkville VIC 3052",
		"300 Grattan St, Parkville",
		"41 Victoria Pde, Fitzroy",
	}
	client.confirm = true

	p := testProtocol(t, client, baseConfig(t))
	require.NoError(t, p.Submit(context.Background(), validRecord()))

	assert.Equal(t, "Alex Smith", client.typed[locPassenger])
	assert.Equal(t, "0412345678", client.typed[locPhone])
	assert.Equal(t, "300 Grattan St, Parkville", client.typed[locPickup])
	assert.Equal(t, "41 Victoria Pde, Fitzroy", client.typed[locDestination])
	assert.Equal(t, "October 30, 2025", client.setValues[locDate])
	assert.Equal(t, "09:30", client.setValues[locTime])
	assert.Equal(t, "Metro", client.typed[locNotes])

	// Exact matches beat the longer prefix match in the candidate list:
	// pickup selects index 1, destination index 2.
	assert.Equal(t, []int{1, 2}, client.clickedNth)
}

func TestSubmitSkipsBlankMobile(t *testing.T) {
	client := newFakeClient()
	client.candid = []string{"somewhere"}
	client.confirm = true

	rec := validRecord()
	rec.Mobile = "nan"

	p := testProtocol(t, client, baseConfig(t))
	require.NoError(t, p.Submit(context.Background(), rec))

	_, typed := client.typed[locPhone]
	assert.False(t, typed, "blank mobile must not be entered")
}

func TestSubmitConfirmationTimeout(t *testing.T) {
	client := newFakeClient()
	client.candid = []string{"somewhere"}
	client.confirm = false

	cfg := baseConfig(t)
	p := testProtocol(t, client, cfg)

	err := p.Submit(context.Background(), validRecord())
	require.Error(t, err)

	var confirmErr *ConfirmationError
	require.True(t, errors.As(err, &confirmErr))
	assert.True(t, driver.IsWaitTimeout(err), "confirmation failure classifies as timeout")

	require.NotEmpty(t, confirmErr.Diagnostics.ScreenshotPath)
	_, statErr := os.Stat(confirmErr.Diagnostics.ScreenshotPath)
	assert.NoError(t, statErr, "screenshot file must exist")

	require.NotEmpty(t, confirmErr.Diagnostics.PageTextPath)
	text, readErr := os.ReadFile(confirmErr.Diagnostics.PageTextPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(text), "Create a new booking")
	assert.Equal(t, cfg.DiagnosticsDir, filepath.Dir(confirmErr.Diagnostics.ScreenshotPath))
}

func TestSubmitStoppedMidWait(t *testing.T) {
	client := newFakeClient()
	client.candid = nil // autocomplete never answers, protocol keeps waiting
	client.confirm = false

	logger := zaptest.NewLogger(t)
	resolver := address.NewResolver(nil, logger)

	var stop atomic.Bool
	stop.Store(true)
	waiter := NewWaiter(time.Millisecond, &stop, nil)

	p := New(client, resolver, waiter, baseConfig(t), logger)
	err := p.Submit(context.Background(), validRecord())
	require.Error(t, err)
	assert.True(t, IsStopped(err))

	var confirmErr *ConfirmationError
	assert.False(t, errors.As(err, &confirmErr), "stop is not a failure")
}

func TestSubmitNoCandidatesIsError(t *testing.T) {
	client := newFakeClient()
	client.candid = nil

	cfg := baseConfig(t)
	cfg.ReadyTimeout = 5 * time.Millisecond

	p := testProtocol(t, client, cfg)
	err := p.Submit(context.Background(), validRecord())
	require.Error(t, err)
	assert.True(t, driver.IsWaitTimeout(err))
	assert.Contains(t, err.Error(), "no address candidates")
}

func TestWaiterSleepHonorsStop(t *testing.T) {
	var stop atomic.Bool
	w := NewWaiter(time.Millisecond, &stop, nil)

	done := make(chan error, 1)
	go func() {
		done <- w.Sleep(context.Background(), time.Hour)
	}()
	time.Sleep(5 * time.Millisecond)
	stop.Store(true)

	select {
	case err := <-done:
		assert.True(t, IsStopped(err))
	case <-time.After(time.Second):
		t.Fatal("sleep did not unwind after stop")
	}
}

func TestWaiterShouldStopInterruptsSleep(t *testing.T) {
	var requested atomic.Bool
	w := NewWaiter(time.Millisecond, &atomic.Bool{}, requested.Load)

	done := make(chan error, 1)
	go func() {
		done <- w.Sleep(context.Background(), time.Hour)
	}()
	time.Sleep(5 * time.Millisecond)
	requested.Store(true)

	select {
	case err := <-done:
		assert.True(t, IsStopped(err))
	case <-time.After(time.Second):
		t.Fatal("sleep did not unwind after shouldStop flipped")
	}
}

func TestWaiterShouldStopInterruptsWaitUntil(t *testing.T) {
	var requested atomic.Bool
	requested.Store(true)
	w := NewWaiter(time.Millisecond, &atomic.Bool{}, requested.Load)

	err := w.WaitUntil(context.Background(), time.Hour, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.True(t, IsStopped(err))
}

func TestWaiterSleepCompletes(t *testing.T) {
	w := NewWaiter(time.Millisecond, &atomic.Bool{}, nil)
	start := time.Now()
	require.NoError(t, w.Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestWaiterWaitUntilTimeout(t *testing.T) {
	w := NewWaiter(time.Millisecond, &atomic.Bool{}, nil)
	err := w.WaitUntil(context.Background(), 5*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.True(t, driver.IsWaitTimeout(err))
}

func TestWaiterWaitUntilCondError(t *testing.T) {
	w := NewWaiter(time.Millisecond, &atomic.Bool{}, nil)
	boom := errors.New("boom")
	err := w.WaitUntil(context.Background(), time.Second, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestWaiterContextCancelIsStop(t *testing.T) {
	w := NewWaiter(time.Millisecond, &atomic.Bool{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Sleep(ctx, time.Hour)
	assert.True(t, IsStopped(err))
}
