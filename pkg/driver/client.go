// Package driver defines the automation-client capability surface the
// submission protocol drives, and a Chrome-backed implementation.
//
// Locators are plain strings chosen by stable page text: a CSS selector
// built from a visible label or placeholder, or an XPath expression
// (prefixed "//") for text-anchored lookups. Generated element identifiers
// change across page loads and must never appear in a locator.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client is the capability surface consumed by the submission protocol.
//
// A Client is not safe for concurrent use: exactly one goroutine may drive
// it at a time, which the scheduler guarantees.
type Client interface {
	// Navigate loads a URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// Click clicks the first element matching the locator.
	Click(ctx context.Context, locator string) error

	// ClickNth clicks the n-th (zero-based) element matching the locator.
	ClickNth(ctx context.Context, locator string, n int) error

	// Type focuses the first matching element, clears it, and types the
	// text key by key so the page's autocomplete handlers fire.
	Type(ctx context.Context, locator, text string) error

	// SetValue assigns a value directly and dispatches synthetic
	// input/change/blur notifications as one operation. Needed for
	// reactive components whose internal state ignores plain typing
	// (read-only date pickers, masked time inputs).
	SetValue(ctx context.Context, locator, value string) error

	// WaitFor blocks until an element matching the locator is visible,
	// bounded by timeout. Returns ErrWaitTimeout when the bound expires.
	WaitFor(ctx context.Context, locator string, timeout time.Duration) error

	// QueryAll returns the visible text of every element matching the
	// locator. An empty slice means no matches; it is not an error.
	QueryAll(ctx context.Context, locator string) ([]string, error)

	// Evaluate runs a script in the page and decodes its result into out.
	Evaluate(ctx context.Context, script string, out any) error

	// Screenshot captures the current viewport to a PNG file.
	Screenshot(ctx context.Context, path string) error

	// VisibleText returns the rendered text of the whole page.
	VisibleText(ctx context.Context) (string, error)
}

// ErrWaitTimeout indicates a wait for element readiness expired.
var ErrWaitTimeout = errors.New("wait for element timed out")

// ErrNotInteractable indicates the element was found but cannot receive
// input, typically because an overlay still covers it.
var ErrNotInteractable = errors.New("element not interactable")

// ErrSessionClosed indicates the browser session is gone.
var ErrSessionClosed = errors.New("browser session closed")

// IsWaitTimeout reports whether the error is a readiness timeout.
func IsWaitTimeout(err error) bool {
	return errors.Is(err, ErrWaitTimeout)
}

// OpError wraps a failed client operation with its locator context.
type OpError struct {
	Op      string
	Locator string
	Err     error
}

func (e *OpError) Error() string {
	if e.Locator == "" {
		return fmt.Sprintf("driver %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("driver %s %q: %v", e.Op, e.Locator, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
