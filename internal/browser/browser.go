// Package browser defines the narrow automation surface the harness drives
// the chat application through. The core only depends on these interfaces;
// the chromedp-backed implementation lives alongside, and tests substitute
// scripted fakes.
package browser

import (
	"context"
	"errors"
	"time"
)

// State names the element conditions a caller can wait for.
type State string

const (
	Visible State = "visible"
	Hidden  State = "hidden"
)

// ErrWaitTimeout is returned when an element does not reach the requested
// state within the bounded wait.
var ErrWaitTimeout = errors.New("browser: wait timed out")

// Page is one live document exclusively owned by the current scenario.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Locator(selector string) Locator
	Screenshot(ctx context.Context) ([]byte, error)
	// Press dispatches a key (e.g. "Escape") to the page.
	Press(ctx context.Context, key string) error
}

// Locator addresses zero or more elements by CSS selector, optionally scoped
// under a parent locator and narrowed to a single index.
type Locator interface {
	// Locator scopes a further selector under this one.
	Locator(selector string) Locator
	// Nth narrows to the i-th matched element (0-based).
	Nth(i int) Locator
	First() Locator

	Count(ctx context.Context) (int, error)
	Click(ctx context.Context) error
	Fill(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	PressEnter(ctx context.Context) error
	TextContent(ctx context.Context) (string, error)
	InnerHTML(ctx context.Context) (string, error)
	GetAttribute(ctx context.Context, name string) (string, bool, error)
	IsVisible(ctx context.Context) (bool, error)
	ScrollIntoView(ctx context.Context) error

	// WaitFor blocks until the element reaches the state or the timeout
	// elapses, returning ErrWaitTimeout in the latter case.
	WaitFor(ctx context.Context, state State, timeout time.Duration) error
}

// Sleep waits for d or until ctx is done. The UI flows use fixed settle
// delays after clicks; routing them through here keeps ctx cancellation
// working during the sleeps.
func Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
