// Package browsertest provides a scripted in-memory browser.Session for
// driver tests. Tests preload selector responses and advance page state
// through the OnClick hook.
package browsertest

import (
	"context"
	"sync"

	"nepsemarket-backend/lib/browser"
)

type Fake struct {
	mu sync.Mutex

	// static responses keyed by selector
	Rows    map[string][][]string
	Texts   map[string]string
	Links   map[string][]browser.Anchor
	HTML    map[string]string
	Evaled  map[string]any
	Current string

	// RowsQueue, when set for a selector, is consumed one element per
	// TableRows call; used to simulate pagination.
	RowsQueue map[string][][][]string

	// selectors that behave as if the element never appeared
	TimeoutOn map[string]bool

	// OnClick lets a test mutate the fake when a control is clicked.
	OnClick func(selector string)
	// OnOpen lets a test mutate the fake on navigation.
	OnOpen func(url string)

	DialogPending bool

	OpenedURLs  []string
	Clicked     []string
	Keyed       map[string]string
	Screenshots []string
	CloseCount  int
}

var _ browser.Session = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Rows:      map[string][][]string{},
		Texts:     map[string]string{},
		Links:     map[string][]browser.Anchor{},
		HTML:      map[string]string{},
		Evaled:    map[string]any{},
		RowsQueue: map[string][][][]string{},
		TimeoutOn: map[string]bool{},
		Keyed:     map[string]string{},
	}
}

func (f *Fake) Open(ctx context.Context, url string) error {
	f.mu.Lock()
	f.OpenedURLs = append(f.OpenedURLs, url)
	f.Current = url
	hook := f.OnOpen
	f.mu.Unlock()
	if hook != nil {
		hook(url)
	}
	return nil
}

func (f *Fake) Location(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Current, nil
}

func (f *Fake) WaitVisible(ctx context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TimeoutOn[selector] {
		return browser.ErrTimeout
	}
	return nil
}

func (f *Fake) Click(ctx context.Context, selector string) error {
	f.mu.Lock()
	if f.TimeoutOn[selector] {
		f.mu.Unlock()
		return browser.ErrTimeout
	}
	f.Clicked = append(f.Clicked, selector)
	hook := f.OnClick
	f.mu.Unlock()
	if hook != nil {
		hook(selector)
	}
	return nil
}

func (f *Fake) SendKeys(ctx context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TimeoutOn[selector] {
		return browser.ErrTimeout
	}
	f.Keyed[selector] = value
	return nil
}

func (f *Fake) Text(ctx context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TimeoutOn[selector] {
		return "", browser.ErrTimeout
	}
	return f.Texts[selector], nil
}

func (f *Fake) TableRows(ctx context.Context, selector string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TimeoutOn[selector] {
		return nil, browser.ErrTimeout
	}
	if queue := f.RowsQueue[selector]; len(queue) > 0 {
		head := queue[0]
		f.RowsQueue[selector] = queue[1:]
		f.Rows[selector] = head
		return head, nil
	}
	return f.Rows[selector], nil
}

func (f *Fake) Anchors(ctx context.Context, selector string) ([]browser.Anchor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TimeoutOn[selector] {
		return nil, browser.ErrTimeout
	}
	return f.Links[selector], nil
}

func (f *Fake) OuterHTML(ctx context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TimeoutOn[selector] {
		return "", browser.ErrTimeout
	}
	return f.HTML[selector], nil
}

func (f *Fake) Evaluate(ctx context.Context, js string, out any) error {
	return nil
}

func (f *Fake) DismissDialog(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	had := f.DialogPending
	f.DialogPending = false
	return had
}

func (f *Fake) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TimeoutOn[selector] {
		return nil, browser.ErrTimeout
	}
	return []byte("png:" + selector), nil
}

func (f *Fake) Screenshot(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Screenshots = append(f.Screenshots, path)
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CloseCount++
	return nil
}
