package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// Chrome owns one headless browser process and its single tab.
type Chrome struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// Options configures browser startup.
type Options struct {
	Headless bool
	// SlowMo inserts a fixed delay after every action. Useful when watching
	// a headful run.
	SlowMo time.Duration
}

// Launch starts Chrome and opens the tab the scenario will drive.
func Launch(ctx context.Context, opts Options) (*Chrome, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Force the browser to actually start so launch failures surface here
	// rather than on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &Chrome{allocCtx: allocCtx, allocCancel: allocCancel, tabCtx: tabCtx, tabCancel: tabCancel}, nil
}

// Close shuts the tab and the browser process down.
func (c *Chrome) Close() {
	c.tabCancel()
	c.allocCancel()
}

// Page returns the scenario's page handle.
func (c *Chrome) Page() Page {
	return &chromePage{chrome: c}
}

type chromePage struct {
	chrome *Chrome
}

// run executes actions against the tab while honoring the caller's context.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(p.chrome.tabCtx, actions...) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) Locator(selector string) Locator {
	return &chromeLocator{page: p, steps: []step{{Selector: selector, Index: -1}}}
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

func (p *chromePage) Press(ctx context.Context, key string) error {
	code, ok := keyCodes[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	return p.run(ctx, chromedp.KeyEvent(code))
}

var keyCodes = map[string]string{
	"Enter":  kb.Enter,
	"Escape": kb.Escape,
	"Tab":    kb.Tab,
}

// step is one link in a locator chain: a CSS selector scoped under the
// previous step's matches, optionally narrowed to a single index.
type step struct {
	Selector string `json:"selector"`
	Index    int    `json:"index"` // -1 keeps all matches
}

type chromeLocator struct {
	page  *chromePage
	steps []step
}

func (l *chromeLocator) Locator(selector string) Locator {
	steps := append(append([]step{}, l.steps...), step{Selector: selector, Index: -1})
	return &chromeLocator{page: l.page, steps: steps}
}

func (l *chromeLocator) Nth(i int) Locator {
	steps := append([]step{}, l.steps...)
	steps[len(steps)-1].Index = i
	return &chromeLocator{page: l.page, steps: steps}
}

func (l *chromeLocator) First() Locator { return l.Nth(0) }

// resolveJS builds a JavaScript expression that walks the step chain from
// document and evaluates body with `nodes` bound to the matched elements.
// Everything runs in one Evaluate round trip so there is no live element
// handle to go stale between calls.
func (l *chromeLocator) resolveJS(body string) string {
	stepsJSON, _ := json.Marshal(l.steps)
	return fmt.Sprintf(`(function() {
	const steps = %s;
	let nodes = [document];
	for (const s of steps) {
		let next = [];
		for (const n of nodes) {
			next = next.concat(Array.from(n.querySelectorAll(s.selector)));
		}
		if (s.index >= 0) {
			next = s.index < next.length ? [next[s.index]] : [];
		}
		nodes = next;
	}
	%s
})()`, stepsJSON, body)
}

// eval runs a resolver expression and decodes the JSON result into out.
func (l *chromeLocator) eval(ctx context.Context, body string, out any) error {
	return l.page.run(ctx, chromedp.Evaluate(l.resolveJS(body), out))
}

func (l *chromeLocator) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.eval(ctx, `return nodes.length;`, &n); err != nil {
		return 0, fmt.Errorf("failed to count %v: %w", l.steps, err)
	}
	return n, nil
}

// single wraps a resolver body with a guard that the chain matched at least
// one element.
const singleGuard = `if (nodes.length === 0) { return {ok: false}; }
	const el = nodes[0];`

type elemResult struct {
	OK    bool   `json:"ok"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}

func (l *chromeLocator) Click(ctx context.Context) error {
	var res elemResult
	body := singleGuard + `
	el.scrollIntoView({block: "center"});
	el.click();
	return {ok: true};`
	if err := l.eval(ctx, body, &res); err != nil {
		return fmt.Errorf("failed to click %v: %w", l.steps, err)
	}
	if !res.OK {
		return fmt.Errorf("click target not found: %v", l.steps)
	}
	return nil
}

// Fill sets the value through the native prototype setter and fires an input
// event, which is what framework-controlled inputs listen for.
func (l *chromeLocator) Fill(ctx context.Context, text string) error {
	textJSON, _ := json.Marshal(text)
	var res elemResult
	body := singleGuard + fmt.Sprintf(`
	el.focus();
	const proto = el.tagName === "TEXTAREA" ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
	const desc = Object.getOwnPropertyDescriptor(proto, "value");
	if (desc && desc.set) {
		desc.set.call(el, %s);
	} else {
		el.value = %s;
	}
	el.dispatchEvent(new Event("input", {bubbles: true}));
	el.dispatchEvent(new Event("change", {bubbles: true}));
	return {ok: true};`, textJSON, textJSON)
	if err := l.eval(ctx, body, &res); err != nil {
		return fmt.Errorf("failed to fill %v: %w", l.steps, err)
	}
	if !res.OK {
		return fmt.Errorf("fill target not found: %v", l.steps)
	}
	return nil
}

func (l *chromeLocator) Clear(ctx context.Context) error {
	return l.Fill(ctx, "")
}

// PressEnter focuses the element, then dispatches a real Enter key event so
// keyboard submit handlers fire.
func (l *chromeLocator) PressEnter(ctx context.Context) error {
	var res elemResult
	if err := l.eval(ctx, singleGuard+`el.focus(); return {ok: true};`, &res); err != nil {
		return fmt.Errorf("failed to focus %v: %w", l.steps, err)
	}
	if !res.OK {
		return fmt.Errorf("press target not found: %v", l.steps)
	}
	return l.page.run(ctx, chromedp.KeyEvent(kb.Enter))
}

func (l *chromeLocator) TextContent(ctx context.Context) (string, error) {
	var res elemResult
	body := singleGuard + `return {ok: true, value: el.textContent || ""};`
	if err := l.eval(ctx, body, &res); err != nil {
		return "", fmt.Errorf("failed to read text of %v: %w", l.steps, err)
	}
	if !res.OK {
		return "", fmt.Errorf("text target not found: %v", l.steps)
	}
	return res.Value, nil
}

func (l *chromeLocator) InnerHTML(ctx context.Context) (string, error) {
	var res elemResult
	body := singleGuard + `return {ok: true, value: el.innerHTML || ""};`
	if err := l.eval(ctx, body, &res); err != nil {
		return "", fmt.Errorf("failed to read html of %v: %w", l.steps, err)
	}
	if !res.OK {
		return "", fmt.Errorf("html target not found: %v", l.steps)
	}
	return res.Value, nil
}

func (l *chromeLocator) GetAttribute(ctx context.Context, name string) (string, bool, error) {
	nameJSON, _ := json.Marshal(name)
	var res elemResult
	body := singleGuard + fmt.Sprintf(`
	const v = el.getAttribute(%s);
	return v === null ? {ok: true, found: false} : {ok: true, found: true, value: v};`, nameJSON)
	if err := l.eval(ctx, body, &res); err != nil {
		return "", false, fmt.Errorf("failed to read attribute %s of %v: %w", name, l.steps, err)
	}
	if !res.OK {
		return "", false, fmt.Errorf("attribute target not found: %v", l.steps)
	}
	return res.Value, res.Found, nil
}

func (l *chromeLocator) IsVisible(ctx context.Context) (bool, error) {
	var visible bool
	body := `if (nodes.length === 0) { return false; }
	const el = nodes[0];
	const style = window.getComputedStyle(el);
	if (style.visibility === "hidden" || style.display === "none") { return false; }
	return el.getClientRects().length > 0;`
	if err := l.eval(ctx, body, &visible); err != nil {
		return false, fmt.Errorf("failed to check visibility of %v: %w", l.steps, err)
	}
	return visible, nil
}

func (l *chromeLocator) ScrollIntoView(ctx context.Context) error {
	var res elemResult
	body := singleGuard + `el.scrollIntoView({block: "center"}); return {ok: true};`
	if err := l.eval(ctx, body, &res); err != nil {
		return fmt.Errorf("failed to scroll to %v: %w", l.steps, err)
	}
	if !res.OK {
		return fmt.Errorf("scroll target not found: %v", l.steps)
	}
	return nil
}

// WaitFor polls visibility until the element reaches the requested state.
func (l *chromeLocator) WaitFor(ctx context.Context, state State, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		visible, err := l.IsVisible(ctx)
		if err != nil {
			return err
		}
		switch state {
		case Visible:
			if visible {
				return nil
			}
		case Hidden:
			if !visible {
				return nil
			}
		default:
			return fmt.Errorf("unknown wait state %q", state)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %v did not become %s within %s", ErrWaitTimeout, l.steps, state, timeout)
		}
		Sleep(ctx, 100*time.Millisecond)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
