package submit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tnsops/bookingbot/pkg/address"
	"github.com/tnsops/bookingbot/pkg/booking"
	"github.com/tnsops/bookingbot/pkg/driver"
	"github.com/tnsops/bookingbot/pkg/normalize"
)

// Step identifies a stage of the portal's creation form.
type Step int

const (
	StepIdentify Step = iota
	StepLocate
	StepPassThrough
	StepDetail
	StepCommit
)

var stepNames = map[Step]string{
	StepIdentify:    "identify",
	StepLocate:      "locate",
	StepPassThrough: "pass-through",
	StepDetail:      "detail",
	StepCommit:      "commit",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Form locators. All anchored on stable visible text; the portal's
// generated element ids change per page load and must not be used.
const (
	locPassenger   = `input[placeholder="Name, phone or email"]`
	locPhone       = `input[placeholder="Phone number"]`
	locPickup      = `input[placeholder="Enter pickup location"]`
	locDestination = `input[placeholder="Enter destination"]`
	locCandidate   = `.v-autocomplete__content .v-list-item`
	locDate        = `input[placeholder="Select date"]`
	locTime        = `input[placeholder="Select time"]`
	locNotes       = `textarea[placeholder="Booking notes"]`
	locNext        = `//span[normalize-space(text())="Next"]`
	locCreate      = `//span[normalize-space(text())="Create booking"]`
)

// Config carries the tunables of a submission run.
type Config struct {
	// CreateURL is the portal's booking creation page.
	CreateURL string

	// Annotation is entered into the notes field on the detail step.
	Annotation string

	// CountryCode rewrites international mobile prefixes to trunk-zero
	// form, e.g. "61" turns +61412... into 0412...
	CountryCode string

	// ReadyTimeout bounds each wait for a control to become interactable.
	ReadyTimeout time.Duration

	// ConfirmTimeout bounds the wait for the post-submit confirmation.
	ConfirmTimeout time.Duration

	// ConfirmText is the visible text that proves the portal accepted
	// the booking. Success is never assumed without it.
	ConfirmText string

	// DiagnosticsDir receives screenshots and page text on failure.
	DiagnosticsDir string
}

// Attempt records one pass of a record through the form.
type Attempt struct {
	ID      string
	Record  booking.Record
	Step    Step
	Entered map[string]string
}

// Diagnostics points at the evidence captured for a failed attempt.
type Diagnostics struct {
	ScreenshotPath string
	PageTextPath   string
}

// ConfirmationError reports that the portal never showed the
// confirmation signal within the timeout. It unwraps to
// driver.ErrWaitTimeout so the outcome classifier treats it as a
// remote timeout.
type ConfirmationError struct {
	AttemptID   string
	Timeout     time.Duration
	Diagnostics Diagnostics
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("no booking confirmation within %s (attempt %s)", e.Timeout, e.AttemptID)
}

func (e *ConfirmationError) Unwrap() error {
	return driver.ErrWaitTimeout
}

// Protocol drives records through the creation form. It is stateless
// between records; one Attempt is live at a time.
type Protocol struct {
	client   driver.Client
	resolver *address.Resolver
	waiter   *Waiter
	cfg      Config
	logger   *zap.Logger
}

// New wires a Protocol. The caller guarantees client is only ever
// driven through this Protocol from a single goroutine.
func New(client driver.Client, resolver *address.Resolver, waiter *Waiter, cfg Config, logger *zap.Logger) *Protocol {
	return &Protocol{
		client:   client,
		resolver: resolver,
		waiter:   waiter,
		cfg:      cfg,
		logger:   logger,
	}
}

// Submit runs one record through all five form steps. It returns nil
// only after the confirmation signal was observed. ErrStopped means a
// cancellation request interrupted the attempt; a ConfirmationError
// means the portal never confirmed and diagnostics were captured.
func (p *Protocol) Submit(ctx context.Context, rec booking.Record) error {
	attempt := &Attempt{
		ID:      uuid.NewString(),
		Record:  rec,
		Entered: make(map[string]string),
	}
	log := p.logger.With(
		zap.String("attempt_id", attempt.ID),
		zap.Int("row", rec.RowNumber),
	)
	log.Info("submitting booking", zap.String("driver", rec.Driver))

	if err := p.client.Navigate(ctx, p.cfg.CreateURL); err != nil {
		return err
	}

	steps := []struct {
		step Step
		run  func(context.Context, *Attempt) error
	}{
		{StepIdentify, p.identify},
		{StepLocate, p.locate},
		{StepPassThrough, p.passThrough},
		{StepDetail, p.detail},
		{StepCommit, p.commit},
	}
	for _, s := range steps {
		attempt.Step = s.step
		log.Debug("running step", zap.Stringer("step", s.step))
		if err := s.run(ctx, attempt); err != nil {
			return fmt.Errorf("step %s: %w", s.step, err)
		}
	}

	log.Info("booking confirmed")
	return nil
}

// waitReady blocks until the locator is visible, retrying in waiter
// slices so cancellation interrupts within one slice.
func (p *Protocol) waitReady(ctx context.Context, locator string) error {
	return p.waiter.WaitUntil(ctx, p.cfg.ReadyTimeout, func(ctx context.Context) (bool, error) {
		err := p.client.WaitFor(ctx, locator, p.waiter.Slice())
		if err == nil {
			return true, nil
		}
		if driver.IsWaitTimeout(err) {
			return false, nil
		}
		return false, err
	})
}

func (p *Protocol) enter(ctx context.Context, a *Attempt, field, locator, value string) error {
	if err := p.client.Type(ctx, locator, value); err != nil {
		return err
	}
	a.Entered[field] = value
	return nil
}

func (p *Protocol) advance(ctx context.Context) error {
	if err := p.waitReady(ctx, locNext); err != nil {
		return err
	}
	return p.client.Click(ctx, locNext)
}

func (p *Protocol) identify(ctx context.Context, a *Attempt) error {
	if err := p.waitReady(ctx, locPassenger); err != nil {
		return err
	}
	if err := p.enter(ctx, a, "passenger", locPassenger, a.Record.Driver); err != nil {
		return err
	}
	if mobile, ok := normalize.Mobile(a.Record.Mobile, p.cfg.CountryCode); ok {
		if err := p.enter(ctx, a, "mobile", locPhone, mobile); err != nil {
			return err
		}
	}
	return p.advance(ctx)
}

func (p *Protocol) locate(ctx context.Context, a *Attempt) error {
	if err := p.fillAddress(ctx, a, "pickup", locPickup, a.Record.From); err != nil {
		return err
	}
	if err := p.fillAddress(ctx, a, "destination", locDestination, a.Record.To); err != nil {
		return err
	}
	if err := p.fillDate(ctx, a); err != nil {
		return err
	}
	if err := p.fillTime(ctx, a); err != nil {
		return err
	}
	return p.advance(ctx)
}

// fillAddress resolves a location code, types the address, waits for the
// autocomplete to offer candidates, and selects the best-scoring one.
// The field is never left unselected: with no scoring winner the first
// candidate is taken.
func (p *Protocol) fillAddress(ctx context.Context, a *Attempt, field, locator, code string) error {
	resolved := p.resolver.Resolve(code)
	if err := p.waitReady(ctx, locator); err != nil {
		return err
	}
	if err := p.enter(ctx, a, field, locator, resolved); err != nil {
		return err
	}

	var options []string
	err := p.waiter.WaitUntil(ctx, p.cfg.ReadyTimeout, func(ctx context.Context) (bool, error) {
		texts, err := p.client.QueryAll(ctx, locCandidate)
		if err != nil {
			return false, err
		}
		options = texts
		return len(texts) > 0, nil
	})
	if err != nil {
		if driver.IsWaitTimeout(err) {
			return fmt.Errorf("%s: no address candidates for %q: %w", field, resolved, err)
		}
		return err
	}

	chosen, idx := address.Best(resolved, options)
	p.logger.Debug("address candidate selected",
		zap.String("field", field),
		zap.String("search", resolved),
		zap.String("chosen", chosen),
		zap.Int("index", idx),
		zap.Int("candidates", len(options)))
	a.Entered[field+"_selected"] = chosen
	return p.client.ClickNth(ctx, locCandidate, idx)
}

// fillDate assigns the date directly and fires synthetic notifications.
// The picker input is read-only; typed keys never reach its model.
func (p *Protocol) fillDate(ctx context.Context, a *Attempt) error {
	display, ok := normalize.Date(a.Record.Date)
	if !ok {
		return fmt.Errorf("unparseable date %q", a.Record.Date)
	}
	if err := p.waitReady(ctx, locDate); err != nil {
		return err
	}
	if err := p.client.SetValue(ctx, locDate, display); err != nil {
		return err
	}
	a.Entered["date"] = display
	return nil
}

func (p *Protocol) fillTime(ctx context.Context, a *Attempt) error {
	clock, ok := normalize.Clock(a.Record.Time)
	if !ok {
		return fmt.Errorf("unparseable time %q", a.Record.Time)
	}
	if err := p.waitReady(ctx, locTime); err != nil {
		return err
	}
	if err := p.client.SetValue(ctx, locTime, clock); err != nil {
		return err
	}
	a.Entered["time"] = clock
	return nil
}

func (p *Protocol) passThrough(ctx context.Context, a *Attempt) error {
	return p.advance(ctx)
}

func (p *Protocol) detail(ctx context.Context, a *Attempt) error {
	if err := p.waitReady(ctx, locNotes); err != nil {
		return err
	}
	if err := p.enter(ctx, a, "notes", locNotes, p.cfg.Annotation); err != nil {
		return err
	}
	return p.advance(ctx)
}

// commit clicks the creation control and waits for the portal's
// confirmation text. Success is reported only once that text appears;
// a bare click proves nothing.
func (p *Protocol) commit(ctx context.Context, a *Attempt) error {
	if err := p.waitReady(ctx, locCreate); err != nil {
		return err
	}
	if err := p.client.Click(ctx, locCreate); err != nil {
		return err
	}

	err := p.waiter.WaitUntil(ctx, p.cfg.ConfirmTimeout, func(ctx context.Context) (bool, error) {
		text, err := p.client.VisibleText(ctx)
		if err != nil {
			return false, err
		}
		return strings.Contains(text, p.cfg.ConfirmText), nil
	})
	if err == nil {
		return nil
	}
	if IsStopped(err) {
		return err
	}
	if driver.IsWaitTimeout(err) {
		diag := p.captureDiagnostics(ctx, a)
		return &ConfirmationError{
			AttemptID:   a.ID,
			Timeout:     p.cfg.ConfirmTimeout,
			Diagnostics: diag,
		}
	}
	return err
}

// captureDiagnostics is best effort: a failed screenshot must not mask
// the confirmation failure being reported.
func (p *Protocol) captureDiagnostics(ctx context.Context, a *Attempt) Diagnostics {
	var diag Diagnostics
	dir := p.cfg.DiagnosticsDir
	if dir == "" {
		return diag
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		p.logger.Warn("create diagnostics dir failed", zap.Error(err))
		return diag
	}

	shot := filepath.Join(dir, a.ID+".png")
	if err := p.client.Screenshot(ctx, shot); err != nil {
		p.logger.Warn("diagnostic screenshot failed", zap.Error(err))
	} else {
		diag.ScreenshotPath = shot
	}

	text, err := p.client.VisibleText(ctx)
	if err != nil {
		p.logger.Warn("diagnostic page text failed", zap.Error(err))
		return diag
	}
	txt := filepath.Join(dir, a.ID+".txt")
	if err := os.WriteFile(txt, []byte(text), 0o644); err != nil {
		p.logger.Warn("write diagnostic text failed", zap.Error(err))
		return diag
	}
	diag.PageTextPath = txt
	return diag
}
