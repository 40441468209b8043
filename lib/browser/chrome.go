package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	fakeua "github.com/EDDYCJY/fake-useragent"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const DefaultStepTimeout = 15 * time.Second

type Options struct {
	Headless bool
	// bounds every individual navigation/wait/extract step,
	// DefaultStepTimeout when zero
	StepTimeout time.Duration
	// overrides the randomized user agent, mostly for tests
	UserAgent string
}

// Chrome is the chromedp-backed Session. One OS browser process per
// value; never shared across goroutines.
type Chrome struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	stepTimeout time.Duration
	sawDialog   atomic.Bool
	closed      atomic.Bool
}

var _ Session = (*Chrome)(nil)

// Launch spawns a Chrome process with the usual anti-detection and
// performance flags and returns a ready session.
func Launch(ctx context.Context, opts Options) (*Chrome, error) {
	ua := opts.UserAgent
	if ua == "" {
		ua = fakeua.Chrome()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("window-size", "1920,1080"),
		// skip image downloads, scraping only reads text
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.UserAgent(ua),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	c := &Chrome{
		ctx:         browserCtx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		stepTimeout: opts.StepTimeout,
	}
	if c.stepTimeout <= 0 {
		c.stepTimeout = DefaultStepTimeout
	}

	// auto-dismiss javascript dialogs, drivers poll sawDialog afterwards
	chromedp.ListenTarget(browserCtx, func(ev any) {
		if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			c.sawDialog.Store(true)
			go func() {
				err := chromedp.Run(browserCtx, page.HandleJavaScriptDialog(false))
				if err != nil {
					slog.Warn("failed to dismiss javascript dialog", "err", err)
				}
			}()
		}
	})

	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(
				"Object.defineProperty(navigator, 'webdriver', {get: () => undefined})",
			).Do(ctx)
			return err
		}),
	)
	if err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("browser: failed to start chrome: %w", err)
	}

	return c, nil
}

func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(c.ctx, c.stepTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(stepCtx, actions...) }()

	select {
	case err := <-done:
		if err != nil && stepCtx.Err() == context.DeadlineExceeded {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (c *Chrome) Open(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	err := c.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (c *Chrome) WaitVisible(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (c *Chrome) SendKeys(ctx context.Context, selector, value string) error {
	return c.run(ctx, chromedp.SendKeys(selector, value, chromedp.ByQuery))
}

func (c *Chrome) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := c.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery))
	return strings.TrimSpace(text), err
}

const tableRowsJS = `(() => {
	const root = document.querySelector(%q);
	if (!root) return [];
	return Array.from(root.querySelectorAll("tr")).map(tr =>
		Array.from(tr.querySelectorAll("td")).map(td => td.innerText.trim()),
	);
})()`

func (c *Chrome) TableRows(ctx context.Context, selector string) ([][]string, error) {
	rows := [][]string{}
	err := c.run(ctx, chromedp.Evaluate(fmt.Sprintf(tableRowsJS, selector), &rows))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

const anchorsJS = `(() => {
	return Array.from(document.querySelectorAll(%q)).map(a => ({
		text: (a.innerText || "").trim(),
		href: a.href || "",
	}));
})()`

func (c *Chrome) Anchors(ctx context.Context, selector string) ([]Anchor, error) {
	anchors := []Anchor{}
	err := c.run(ctx, chromedp.Evaluate(fmt.Sprintf(anchorsJS, selector), &anchors))
	if err != nil {
		return nil, err
	}
	return anchors, nil
}

func (c *Chrome) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	err := c.run(ctx, chromedp.OuterHTML(selector, &html, chromedp.ByQuery))
	return html, err
}

func (c *Chrome) Evaluate(ctx context.Context, js string, out any) error {
	return c.run(ctx, chromedp.Evaluate(js, out))
}

func (c *Chrome) DismissDialog(ctx context.Context) bool {
	return c.sawDialog.Swap(false)
}

func (c *Chrome) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	err := c.run(ctx, chromedp.Screenshot(selector, &buf, chromedp.ByQuery))
	return buf, err
}

func (c *Chrome) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	err := c.run(ctx, chromedp.FullScreenshot(&buf, 80))
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// Close tears down the tab and the browser process. Safe to call more
// than once.
func (c *Chrome) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.cancelCtx()
	c.cancelAlloc()
	return nil
}
