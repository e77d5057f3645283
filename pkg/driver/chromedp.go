package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the launched browser.
type Config struct {
	// UserDataDir is the profile directory. Persisting it between runs
	// keeps the portal login session alive.
	UserDataDir string

	// Headless hides the browser window. Interactive runs keep it
	// visible so the operator can watch the form being driven.
	Headless bool
}

// Chrome drives a locally launched Chrome instance over the DevTools
// protocol. It implements Client.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

var _ Client = (*Chrome)(nil)

// Launch starts a browser with a persistent profile and returns a Client
// bound to a fresh tab. Close releases the browser.
func Launch(ctx context.Context, cfg Config, logger *zap.Logger) (*Chrome, error) {
	if cfg.UserDataDir != "" {
		if err := os.MkdirAll(cfg.UserDataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create user data dir: %w", err)
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Materialize the browser process now so launch failures surface
	// here instead of on the first operation.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	logger.Info("browser launched",
		zap.String("user_data_dir", cfg.UserDataDir),
		zap.Bool("headless", cfg.Headless))

	return &Chrome{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() {
	c.cancel()
	c.allocCancel()
}

// byLocator maps the locator convention onto a chromedp query option:
// "//"-prefixed locators are XPath, everything else is CSS.
func byLocator(locator string) chromedp.QueryOption {
	if strings.HasPrefix(locator, "//") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// opContext derives a context for one CDP operation: it carries the tab
// session from c.ctx but is cancelled as soon as the caller's ctx is.
func (c *Chrome) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(c.ctx)
	unwatch := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		unwatch()
		cancel()
	}
}

func (c *Chrome) run(ctx context.Context, op, locator string, actions ...chromedp.Action) error {
	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return &OpError{Op: op, Locator: locator, Err: ctx.Err()}
		}
		if errors.Is(err, context.Canceled) {
			return &OpError{Op: op, Locator: locator, Err: ErrSessionClosed}
		}
		return &OpError{Op: op, Locator: locator, Err: err}
	}
	return nil
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.logger.Debug("navigate", zap.String("url", url))
	return c.run(ctx, "navigate", "", chromedp.Navigate(url))
}

func (c *Chrome) Click(ctx context.Context, locator string) error {
	c.logger.Debug("click", zap.String("locator", locator))
	return c.run(ctx, "click", locator, chromedp.Click(locator, byLocator(locator)))
}

func (c *Chrome) ClickNth(ctx context.Context, locator string, n int) error {
	c.logger.Debug("click nth", zap.String("locator", locator), zap.Int("index", n))
	script := fmt.Sprintf(`(() => {
		const nodes = %s;
		if (nodes.length <= %d) { return false; }
		nodes[%d].click();
		return true;
	})()`, matchScript(locator), n, n)
	var clicked bool
	if err := c.run(ctx, "click nth", locator, chromedp.Evaluate(script, &clicked)); err != nil {
		return err
	}
	if !clicked {
		return &OpError{Op: "click nth", Locator: locator,
			Err: fmt.Errorf("no element at index %d", n)}
	}
	return nil
}

func (c *Chrome) Type(ctx context.Context, locator, text string) error {
	c.logger.Debug("type", zap.String("locator", locator), zap.Int("chars", len(text)))
	by := byLocator(locator)
	return c.run(ctx, "type", locator,
		chromedp.Click(locator, by),
		chromedp.Clear(locator, by),
		chromedp.SendKeys(locator, text, by),
	)
}

func (c *Chrome) SetValue(ctx context.Context, locator, value string) error {
	c.logger.Debug("set value", zap.String("locator", locator), zap.String("value", value))
	script := fmt.Sprintf(`(() => {
		const nodes = %s;
		if (nodes.length === 0) { return "missing"; }
		const el = nodes[0];
		if (el.disabled) { return "disabled"; }
		el.value = %q;
		for (const type of ["input", "change", "blur"]) {
			el.dispatchEvent(new Event(type, { bubbles: true }));
		}
		return "ok";
	})()`, matchScript(locator), value)
	var result string
	if err := c.run(ctx, "set value", locator, chromedp.Evaluate(script, &result)); err != nil {
		return err
	}
	switch result {
	case "ok":
		return nil
	case "disabled":
		return &OpError{Op: "set value", Locator: locator, Err: ErrNotInteractable}
	default:
		return &OpError{Op: "set value", Locator: locator, Err: errors.New("no matching element")}
	}
}

func (c *Chrome) WaitFor(ctx context.Context, locator string, timeout time.Duration) error {
	c.logger.Debug("wait for", zap.String("locator", locator), zap.Duration("timeout", timeout))
	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	waitCtx, cancelWait := context.WithTimeout(opCtx, timeout)
	defer cancelWait()

	err := chromedp.Run(waitCtx, chromedp.WaitVisible(locator, byLocator(locator)))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &OpError{Op: "wait for", Locator: locator, Err: ErrWaitTimeout}
	}
	if ctx.Err() != nil {
		return &OpError{Op: "wait for", Locator: locator, Err: ctx.Err()}
	}
	if errors.Is(err, context.Canceled) {
		return &OpError{Op: "wait for", Locator: locator, Err: ErrSessionClosed}
	}
	return &OpError{Op: "wait for", Locator: locator, Err: err}
}

func (c *Chrome) QueryAll(ctx context.Context, locator string) ([]string, error) {
	script := fmt.Sprintf(`(() => {
		return %s.map(el => el.innerText.trim());
	})()`, matchScript(locator))
	var texts []string
	if err := c.run(ctx, "query all", locator, chromedp.Evaluate(script, &texts)); err != nil {
		return nil, err
	}
	return texts, nil
}

func (c *Chrome) Evaluate(ctx context.Context, script string, out any) error {
	return c.run(ctx, "evaluate", "", chromedp.Evaluate(script, out))
}

func (c *Chrome) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := c.run(ctx, "screenshot", "", chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	c.logger.Info("screenshot captured", zap.String("path", path))
	return nil
}

func (c *Chrome) VisibleText(ctx context.Context) (string, error) {
	var text string
	if err := c.run(ctx, "visible text", "", chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

// matchScript returns a JS expression evaluating to an array of elements
// matching the locator, using the same CSS/XPath convention as byLocator.
func matchScript(locator string) string {
	if strings.HasPrefix(locator, "//") {
		return fmt.Sprintf(`(() => {
			const r = document.evaluate(%q, document, null,
				XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			const out = [];
			for (let i = 0; i < r.snapshotLength; i++) { out.push(r.snapshotItem(i)); }
			return out;
		})()`, locator)
	}
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%q))`, locator)
}
