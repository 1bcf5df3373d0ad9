// Package genie is the page object for the BookGenie chat application: mode
// selection, query submission, response waits, and the interactive citation
// resolution flow. It drives the UI only through the browser capability
// interface, so tests can script every interaction.
package genie

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bookgenie-qa/harness/internal/browser"
)

// Waits bundles the timeout classes of the UI flows. The AI response wait is
// allowed minutes; citation toggles get seconds. Settle is the base unit for
// the fixed pauses after clicks.
type Waits struct {
	ModeVisible            time.Duration
	WelcomeVisible         time.Duration
	InputVisible           time.Duration
	ThinkingAppear         time.Duration
	ThinkingClear          time.Duration
	FollowUpClear          time.Duration
	FollowUpThinkingAppear time.Duration
	FollowUpThinkingClear  time.Duration
	ResponseVisible        time.Duration
	FallbackSleep          time.Duration
	CitationVisible        time.Duration
	CitationClose          time.Duration
	Settle                 time.Duration
}

func DefaultWaits() Waits {
	return Waits{
		ModeVisible:            30 * time.Second,
		WelcomeVisible:         30 * time.Second,
		InputVisible:           30 * time.Second,
		ThinkingAppear:         10 * time.Minute,
		ThinkingClear:          20 * time.Minute,
		FollowUpClear:          10 * time.Second,
		FollowUpThinkingAppear: 30 * time.Second,
		FollowUpThinkingClear:  3 * time.Minute,
		ResponseVisible:        30 * time.Second,
		FallbackSleep:          2 * time.Minute,
		CitationVisible:        10 * time.Second,
		CitationClose:          3 * time.Second,
		Settle:                 time.Second,
	}
}

// Page drives one BookGenie chat session.
type Page struct {
	b     browser.Page
	waits Waits
	log   *slog.Logger
}

func NewPage(b browser.Page, waits Waits, log *slog.Logger) *Page {
	if log == nil {
		log = slog.Default()
	}
	return &Page{b: b, waits: waits, log: log}
}

// Browser exposes the underlying page handle for the citation resolver.
func (p *Page) Browser() browser.Page { return p.b }

// Open navigates to the application.
func (p *Page) Open(ctx context.Context, url string) error {
	p.log.Info("opening application", "url", url)
	return p.b.Navigate(ctx, url)
}

// SelectMode opens the mode dropdown and picks the named mode.
func (p *Page) SelectMode(ctx context.Context, mode string) error {
	p.log.Info("selecting mode", "mode", mode)

	dropdown := p.b.Locator(selModeDropdown)
	if err := dropdown.WaitFor(ctx, browser.Visible, p.waits.ModeVisible); err != nil {
		return fmt.Errorf("mode dropdown not visible: %w", err)
	}
	if err := dropdown.Click(ctx); err != nil {
		return fmt.Errorf("failed to open mode dropdown: %w", err)
	}

	option, err := p.waitForText(ctx, selModeOption, mode, browser.Visible, p.waits.ModeVisible)
	if err != nil {
		return fmt.Errorf("mode %q not visible: %w", mode, err)
	}
	if err := option.Click(ctx); err != nil {
		return fmt.Errorf("failed to select mode %q: %w", mode, err)
	}

	// Mode transition re-renders the chat panel.
	browser.Sleep(ctx, 2*p.waits.Settle)
	p.log.Info("mode selected", "mode", mode)
	return nil
}

// TypeQuery clears the chat input, types the query, and submits it.
func (p *Page) TypeQuery(ctx context.Context, query string) error {
	if _, err := p.waitForText(ctx, selTextBlock, textWelcome, browser.Visible, p.waits.WelcomeVisible); err != nil {
		p.log.Warn("welcome message did not appear", "error", err)
	} else {
		p.log.Info("welcome message appeared")
	}

	input := p.b.Locator(selChatInput)
	if err := input.WaitFor(ctx, browser.Visible, p.waits.InputVisible); err != nil {
		return fmt.Errorf("chat input not visible: %w", err)
	}
	if err := input.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear chat input: %w", err)
	}
	if err := input.Fill(ctx, query); err != nil {
		return fmt.Errorf("failed to type query: %w", err)
	}
	browser.Sleep(ctx, p.waits.Settle)
	if err := input.PressEnter(ctx); err != nil {
		return fmt.Errorf("failed to submit query: %w", err)
	}
	p.log.Info("query submitted", "query", query)
	return nil
}

// WaitForResponse blocks until the AI finishes answering: the thinking
// indicator appears then clears. When the indicator is never observed the
// wait degrades to a fixed sleep instead of failing, trading determinism for
// resilience against flaky rendering. Either way any follow-up
// disambiguation prompt is handled before returning.
func (p *Page) WaitForResponse(ctx context.Context) {
	p.log.Info("waiting for AI response")

	_, err := p.waitForText(ctx, selTextBlock, textThinking, browser.Visible, p.waits.ThinkingAppear)
	if err == nil {
		p.log.Info("thinking indicator appeared")
		if _, err = p.waitForText(ctx, selTextBlock, textThinking, browser.Hidden, p.waits.ThinkingClear); err == nil {
			p.log.Info("thinking completed")
			if p.handleNoneOfTheAbove(ctx) {
				p.log.Info("follow-up disambiguation handled")
			}
			browser.Sleep(ctx, 3*p.waits.Settle)
			return
		}
	}

	p.log.Warn("thinking indicator not observed, falling back to fixed wait", "error", err)
	browser.Sleep(ctx, p.waits.FallbackSleep)
	if p.handleNoneOfTheAbove(ctx) {
		p.log.Info("follow-up disambiguation handled during fallback")
	}
}

// handleNoneOfTheAbove detects the "None of the above, just ..." follow-up
// prompt and clicks its suggestion chip so the real recommendation response
// is produced. Returns whether the prompt was present and handled.
func (p *Page) handleNoneOfTheAbove(ctx context.Context) bool {
	prompt, err := p.findByText(ctx, selParagraph, textNoneOfTheAbove)
	if err != nil {
		return false
	}
	visible, err := prompt.IsVisible(ctx)
	if err != nil || !visible {
		return false
	}
	p.log.Info("follow-up prompt found, clicking suggestion chip")

	chip := p.b.Locator(selFollowUpChoice).First()
	if err := chip.WaitFor(ctx, browser.Visible, 5*p.waits.Settle); err != nil {
		p.log.Warn("suggestion chip not found for follow-up prompt")
		return false
	}
	if text, err := chip.TextContent(ctx); err == nil {
		p.log.Info("clicking suggestion", "text", strings.TrimSpace(text))
	}
	if err := chip.Click(ctx); err != nil {
		p.log.Warn("failed to click suggestion chip", "error", err)
		return false
	}

	if err := prompt.WaitFor(ctx, browser.Hidden, p.waits.FollowUpClear); err != nil {
		p.log.Warn("follow-up prompt still visible after click")
	}

	// The selection triggers another generation round.
	if _, err := p.waitForText(ctx, selTextBlock, textThinking, browser.Visible, p.waits.FollowUpThinkingAppear); err == nil {
		p.log.Info("thinking indicator appeared after follow-up selection")
		if _, err := p.waitForText(ctx, selTextBlock, textThinking, browser.Hidden, p.waits.FollowUpThinkingClear); err != nil {
			p.log.Warn("thinking indicator did not clear after follow-up selection")
		}
	} else {
		browser.Sleep(ctx, 5*p.waits.Settle)
	}
	browser.Sleep(ctx, 2*p.waits.Settle)
	return true
}

// latestResponse returns a locator for the newest chat response container.
func (p *Page) latestResponse(ctx context.Context) (browser.Locator, error) {
	responses := p.b.Locator(selChatResponse)
	n, err := responses.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("no chat responses present")
	}
	last := responses.Nth(n - 1)
	if err := last.WaitFor(ctx, browser.Visible, p.waits.ResponseVisible); err != nil {
		return nil, fmt.Errorf("latest response not visible: %w", err)
	}
	return last, nil
}

// LatestResponseHTML returns the innerHTML of the newest response, the input
// to the markup extractor.
func (p *Page) LatestResponseHTML(ctx context.Context) (string, error) {
	last, err := p.latestResponse(ctx)
	if err != nil {
		return "", err
	}
	html, err := last.InnerHTML(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read response markup: %w", err)
	}
	p.log.Info("response markup captured", "length", len(html))
	return html, nil
}

// LatestResponseText returns the visible text of the newest response.
func (p *Page) LatestResponseText(ctx context.Context) (string, error) {
	last, err := p.latestResponse(ctx)
	if err != nil {
		return "", err
	}
	text, err := last.TextContent(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read response text: %w", err)
	}
	return text, nil
}

// Screenshot captures the page, used for diagnostics on extraction errors.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return p.b.Screenshot(ctx)
}

// findByText scans elements matching selector for the first whose text
// contains substr.
func (p *Page) findByText(ctx context.Context, selector, substr string) (browser.Locator, error) {
	return findByText(ctx, p.b.Locator(selector), substr)
}

func findByText(ctx context.Context, candidates browser.Locator, substr string) (browser.Locator, error) {
	n, err := candidates.Count(ctx)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		el := candidates.Nth(i)
		text, err := el.TextContent(ctx)
		if err != nil {
			continue
		}
		if strings.Contains(text, substr) {
			return el, nil
		}
	}
	return nil, fmt.Errorf("no element containing %q", substr)
}

// waitForText polls for an element containing substr to reach the given
// state. For Hidden, a missing element counts as hidden.
func (p *Page) waitForText(ctx context.Context, selector, substr string, state browser.State, timeout time.Duration) (browser.Locator, error) {
	deadline := time.Now().Add(timeout)
	for {
		el, err := p.findByText(ctx, selector, substr)
		switch state {
		case browser.Visible:
			if err == nil {
				if visible, verr := el.IsVisible(ctx); verr == nil && visible {
					return el, nil
				}
			}
		case browser.Hidden:
			if err != nil {
				return nil, nil
			}
			if visible, verr := el.IsVisible(ctx); verr == nil && !visible {
				return el, nil
			}
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: text %q did not become %s within %s", browser.ErrWaitTimeout, substr, state, timeout)
		}
		browser.Sleep(ctx, 250*time.Millisecond)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}
