package genie

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bookgenie-qa/harness/internal/browser"
)

// textList is a locator over a fixed list of element texts.
type textList struct {
	texts   []string
	visible bool
	index   int
	single  bool
}

func (l *textList) Locator(string) browser.Locator { return l }
func (l *textList) Nth(i int) browser.Locator {
	return &textList{texts: l.texts, visible: l.visible, index: i, single: true}
}
func (l *textList) First() browser.Locator { return l.Nth(0) }
func (l *textList) Count(context.Context) (int, error) {
	if l.single {
		return 1, nil
	}
	return len(l.texts), nil
}
func (l *textList) TextContent(context.Context) (string, error) {
	if l.index < len(l.texts) {
		return l.texts[l.index], nil
	}
	return "", errors.New("out of range")
}
func (l *textList) IsVisible(context.Context) (bool, error) { return l.visible, nil }
func (l *textList) Click(context.Context) error             { return nil }
func (l *textList) Fill(context.Context, string) error      { return nil }
func (l *textList) Clear(context.Context) error             { return nil }
func (l *textList) PressEnter(context.Context) error        { return nil }
func (l *textList) InnerHTML(context.Context) (string, error) {
	return "", nil
}
func (l *textList) GetAttribute(context.Context, string) (string, bool, error) {
	return "", false, nil
}
func (l *textList) ScrollIntoView(context.Context) error { return nil }
func (l *textList) WaitFor(ctx context.Context, state browser.State, _ time.Duration) error {
	if (state == browser.Visible) == l.visible {
		return nil
	}
	return browser.ErrWaitTimeout
}

// chatUI scripts the response phase of the chat: a thinking indicator that
// clears after being observed once, and an optional follow-up prompt whose
// suggestion chip triggers a second generation round.
type chatUI struct {
	thinkingVisible bool
	promptVisible   bool
	chipClicked     bool
}

const (
	kindThinking = iota
	kindPrompt
	kindChip
	kindNone
)

type chatElement struct {
	ui   *chatUI
	kind int
}

func (ui *chatUI) page() browser.Page { return &chatPage{ui: ui} }

type chatPage struct{ ui *chatUI }

func (p *chatPage) Navigate(context.Context, string) error     { return nil }
func (p *chatPage) Screenshot(context.Context) ([]byte, error) { return nil, nil }
func (p *chatPage) Press(context.Context, string) error        { return nil }
func (p *chatPage) Locator(sel string) browser.Locator {
	switch sel {
	case selTextBlock:
		return &chatElement{ui: p.ui, kind: kindThinking}
	case selParagraph:
		return &chatElement{ui: p.ui, kind: kindPrompt}
	case selFollowUpChoice:
		return &chatElement{ui: p.ui, kind: kindChip}
	}
	return &chatElement{ui: p.ui, kind: kindNone}
}

func (e *chatElement) Locator(string) browser.Locator { return e }
func (e *chatElement) Nth(int) browser.Locator        { return e }
func (e *chatElement) First() browser.Locator         { return e }

func (e *chatElement) Count(context.Context) (int, error) {
	switch e.kind {
	case kindThinking:
		if e.ui.thinkingVisible {
			return 1, nil
		}
		return 0, nil
	case kindNone:
		return 0, nil
	}
	return 1, nil
}

func (e *chatElement) TextContent(context.Context) (string, error) {
	switch e.kind {
	case kindThinking:
		return textThinking + "...", nil
	case kindPrompt:
		return textNoneOfTheAbove + " show me book recommendations", nil
	case kindChip:
		return "just show me book recommendations", nil
	}
	return "", errors.New("no element")
}

func (e *chatElement) IsVisible(context.Context) (bool, error) {
	switch e.kind {
	case kindThinking:
		// Observed once, then the indicator clears.
		v := e.ui.thinkingVisible
		e.ui.thinkingVisible = false
		return v, nil
	case kindPrompt:
		return e.ui.promptVisible, nil
	case kindChip:
		return true, nil
	}
	return false, nil
}

func (e *chatElement) Click(context.Context) error {
	if e.kind == kindChip {
		e.ui.chipClicked = true
		e.ui.promptVisible = false
		// The selection starts another generation round.
		e.ui.thinkingVisible = true
	}
	return nil
}

func (e *chatElement) WaitFor(ctx context.Context, state browser.State, _ time.Duration) error {
	visible, _ := e.IsVisible(ctx)
	if (state == browser.Visible) == visible {
		return nil
	}
	return browser.ErrWaitTimeout
}

func (e *chatElement) Fill(context.Context, string) error { return nil }
func (e *chatElement) Clear(context.Context) error        { return nil }
func (e *chatElement) PressEnter(context.Context) error   { return nil }
func (e *chatElement) InnerHTML(context.Context) (string, error) {
	return "", nil
}
func (e *chatElement) GetAttribute(context.Context, string) (string, bool, error) {
	return "", false, nil
}
func (e *chatElement) ScrollIntoView(context.Context) error { return nil }

func fastWaits() Waits {
	return Waits{
		ThinkingAppear:         5 * time.Millisecond,
		ThinkingClear:          time.Second,
		FollowUpClear:          5 * time.Millisecond,
		FollowUpThinkingAppear: time.Second,
		FollowUpThinkingClear:  time.Second,
		FallbackSleep:          20 * time.Millisecond,
		Settle:                 time.Millisecond,
	}
}

func TestWaitForResponseThinkingIndicator(t *testing.T) {
	ui := &chatUI{thinkingVisible: true}
	p := NewPage(ui.page(), fastWaits(), nil)

	p.WaitForResponse(context.Background())

	if ui.thinkingVisible {
		t.Error("thinking indicator never cleared")
	}
	if ui.chipClicked {
		t.Error("no follow-up prompt was shown, chip must not be clicked")
	}
}

func TestWaitForResponseFallbackSleepHandlesFollowUp(t *testing.T) {
	// The indicator never appears: the wait degrades to the fixed sleep and
	// the follow-up prompt must still be handled afterwards.
	ui := &chatUI{promptVisible: true}
	p := NewPage(ui.page(), fastWaits(), nil)

	start := time.Now()
	p.WaitForResponse(context.Background())

	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("fallback sleep not taken: returned after %s", elapsed)
	}
	if !ui.chipClicked {
		t.Error("follow-up suggestion chip was not clicked")
	}
	if ui.promptVisible {
		t.Error("follow-up prompt still visible after handling")
	}
}

func TestFindByText(t *testing.T) {
	list := &textList{texts: []string{"Watch me work", "Creative Workspace AI is thinking...", "done"}, visible: true}

	el, err := findByText(context.Background(), list, textThinking)
	if err != nil {
		t.Fatal(err)
	}
	text, _ := el.TextContent(context.Background())
	if text != "Creative Workspace AI is thinking..." {
		t.Errorf("matched wrong element: %q", text)
	}

	if _, err := findByText(context.Background(), list, "no such text"); err == nil {
		t.Error("expected an error for absent text")
	}
}
