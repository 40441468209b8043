// Package browser wraps a scriptable Chrome process behind a small
// synchronous session interface. Every step is bounded by the session's
// step timeout; a step that runs out of time reports a timeout error the
// caller is expected to treat as "no data", not as a fatal condition.
package browser

import (
	"context"
	"errors"
)

// Anchor is a link extracted from the page.
type Anchor struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Session is the capability surface the site drivers program against.
// The production implementation is Chrome; tests use scripted fakes.
//
// Close must be called on every exit path. It is the single most
// safety-critical contract here: a session owns an OS-level browser
// process and skipping Close leaks it.
type Session interface {
	Open(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	SendKeys(ctx context.Context, selector, value string) error
	Text(ctx context.Context, selector string) (string, error)
	// TableRows returns the cell texts of every row beneath the selector.
	TableRows(ctx context.Context, selector string) ([][]string, error)
	Anchors(ctx context.Context, selector string) ([]Anchor, error)
	OuterHTML(ctx context.Context, selector string) (string, error)
	Evaluate(ctx context.Context, js string, out any) error
	// DismissDialog reports whether a javascript dialog appeared since the
	// last call and was dismissed. Absence of a dialog is not an error.
	DismissDialog(ctx context.Context) bool
	ElementScreenshot(ctx context.Context, selector string) ([]byte, error)
	Screenshot(ctx context.Context, path string) error
	Close() error
}

var ErrTimeout = errors.New("browser: step timed out")

// IsTimeout reports whether an error from a Session step means the
// bounded wait expired rather than a harder failure.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
