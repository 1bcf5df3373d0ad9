package genie

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bookgenie-qa/harness/internal/books"
	"github.com/bookgenie-qa/harness/internal/browser"
)

var numberedPrefix = regexp.MustCompile(`^\d+\.`)

const clickAttempts = 3

// Resolver reveals citation text hidden behind the accordion toggles. It
// must run against the live document: the quote text is only rendered after
// its citation button has been clicked.
type Resolver struct {
	b     browser.Page
	waits Waits
	log   *slog.Logger
}

func NewResolver(b browser.Page, waits Waits, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{b: b, waits: waits, log: log}
}

// Resolve walks every individual book section, expands it, toggles each
// citation control, and captures the revealed quote. Citation index i of a
// book pairs with reason i. A citation that cannot be captured is recorded
// as an error marker; a book section that cannot be expanded yields an
// empty citation list. Neither aborts the run.
func (r *Resolver) Resolve(ctx context.Context) (map[string][]books.CitationRecord, error) {
	r.log.Info("resolving citations")

	sections := r.b.Locator(selAccordion)
	if err := sections.First().WaitFor(ctx, browser.Visible, r.waits.CitationVisible); err != nil {
		return nil, fmt.Errorf("no accordion sections appeared: %w", err)
	}
	total, err := sections.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count accordion sections: %w", err)
	}
	r.log.Info("accordion sections found", "count", total)

	out := map[string][]books.CitationRecord{}
	for i := 0; i < total; i++ {
		sec := sections.Nth(i)
		heading := r.summaryTitle(ctx, sec)
		if !IsIndividualBookSection(heading) {
			continue
		}
		title := strings.TrimSpace(numberedPrefix.ReplaceAllString(heading, ""))
		r.log.Info("processing book section", "book", title)

		records, err := r.resolveBook(ctx, sec, title)
		if err != nil {
			r.log.Error("citation capture failed for book", "book", title, "error", err)
			out[title] = nil
			continue
		}
		out[title] = records
		r.log.Info("citations captured", "book", title, "count", len(records))
	}
	return out, nil
}

// IsIndividualBookSection applies the classification rule for accordion
// headings: a numbered prefix marks a book, but aggregate headings are
// excluded even when numbered. Ambiguous sections are skipped, not guessed.
func IsIndividualBookSection(heading string) bool {
	if heading == "" || !numberedPrefix.MatchString(heading) {
		return false
	}
	lower := strings.ToLower(heading)
	for _, phrase := range aggregateIndicators {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

func (r *Resolver) resolveBook(ctx context.Context, sec browser.Locator, title string) ([]books.CitationRecord, error) {
	if err := r.expandSection(ctx, sec, title); err != nil {
		return nil, err
	}
	if err := r.expandWhyMatch(ctx, sec, title); err != nil {
		r.log.Warn("why-match sub-section could not be expanded", "book", title, "error", err)
	}

	buttons := sec.Locator(selCitationButton)
	n, err := buttons.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count citation buttons: %w", err)
	}
	r.log.Info("citation buttons found", "book", title, "count", n)

	var records []books.CitationRecord
	for j := 0; j < n; j++ {
		text, ctype := r.captureCitation(ctx, buttons.Nth(j), title, j)
		records = append(records, books.CitationRecord{
			BookTitle:    title,
			ReasonIndex:  j,
			CitationText: text,
			CitationType: ctype,
		})
	}

	r.collapseSection(ctx, sec, title)
	return records, nil
}

// expandSection opens a collapsed accordion. The open attribute is checked
// first so an already-open section is never toggled shut.
func (r *Resolver) expandSection(ctx context.Context, sec browser.Locator, title string) error {
	if r.isOpen(ctx, sec) {
		r.log.Debug("section already expanded", "book", title)
		return nil
	}

	summary := sec.Locator(selSummary).First()
	if err := summary.ScrollIntoView(ctx); err != nil {
		return fmt.Errorf("failed to scroll to section %q: %w", title, err)
	}
	browser.Sleep(ctx, r.waits.Settle)

	for attempt := 1; attempt <= clickAttempts; attempt++ {
		if err := summary.Click(ctx); err == nil {
			browser.Sleep(ctx, 2*r.waits.Settle)
			if r.isOpen(ctx, sec) {
				return nil
			}
		}
		r.log.Warn("expand click did not open section, retrying", "book", title, "attempt", attempt)
		browser.Sleep(ctx, r.waits.Settle)
	}
	return fmt.Errorf("failed to expand book section %q after %d attempts", title, clickAttempts)
}

// expandWhyMatch opens the nested reasons collapsible inside a book section.
func (r *Resolver) expandWhyMatch(ctx context.Context, sec browser.Locator, title string) error {
	nested := sec.Locator(selNestedDetails)
	n, err := nested.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count nested sections: %w", err)
	}
	for i := 0; i < n; i++ {
		d := nested.Nth(i)
		heading, err := d.Locator(selSummary).First().TextContent(ctx)
		if err != nil || !strings.Contains(heading, textWhyMatch) {
			continue
		}
		if r.isOpen(ctx, d) {
			r.log.Debug("why-match already expanded", "book", title)
			return nil
		}

		summary := d.Locator(selSummary).First()
		if err := summary.ScrollIntoView(ctx); err == nil {
			browser.Sleep(ctx, r.waits.Settle)
		}
		for attempt := 1; attempt <= clickAttempts; attempt++ {
			if err := summary.Click(ctx); err == nil {
				browser.Sleep(ctx, 2*r.waits.Settle)
				if r.isOpen(ctx, d) {
					return nil
				}
			}
			r.log.Warn("why-match click did not open, retrying", "book", title, "attempt", attempt)
			browser.Sleep(ctx, r.waits.Settle)
		}
		return fmt.Errorf("failed to expand why-match section for %q after %d attempts", title, clickAttempts)
	}
	return fmt.Errorf("why-match section not found for %q", title)
}

// captureCitation toggles one citation control and reads the revealed quote.
// Failures become an error-marker string so index pairing with reasons is
// preserved.
func (r *Resolver) captureCitation(ctx context.Context, btn browser.Locator, title string, index int) (string, books.CitationType) {
	ctype := books.CitationMetadata
	if label, err := btn.Locator(selCitationType).First().TextContent(ctx); err == nil {
		if strings.Contains(strings.ToLower(label), "manuscript") {
			ctype = books.CitationManuscript
		}
	}

	text, err := r.toggleAndRead(ctx, btn, title, index)
	if err != nil {
		r.log.Error("citation capture failed", "book", title, "index", index, "error", err)
		return fmt.Sprintf("%s %v", books.ErrorMarkerPrefix, err), ctype
	}
	return text, ctype
}

func (r *Resolver) toggleAndRead(ctx context.Context, btn browser.Locator, title string, index int) (string, error) {
	if err := btn.ScrollIntoView(ctx); err != nil {
		return "", fmt.Errorf("failed to scroll to citation %d of %q: %w", index+1, title, err)
	}
	browser.Sleep(ctx, r.waits.Settle)

	// The arrow direction tells whether the citation is already open; close
	// it first so the flow always starts from a known state.
	arrow := btn.Locator(selCitationArrow)
	if n, err := arrow.Count(ctx); err == nil && n > 0 {
		if class, ok, err := arrow.First().GetAttribute(ctx, "class"); err == nil && ok && strings.Contains(class, "pi-angle-up") {
			r.log.Debug("citation already open, closing first", "book", title, "index", index)
			if err := btn.Click(ctx); err != nil {
				return "", fmt.Errorf("failed to reset citation %d of %q: %w", index+1, title, err)
			}
			browser.Sleep(ctx, r.waits.Settle+r.waits.Settle/2)
		}
	}

	if err := btn.Click(ctx); err != nil {
		return "", fmt.Errorf("failed to open citation %d of %q: %w", index+1, title, err)
	}
	browser.Sleep(ctx, 2*r.waits.Settle)

	quote := r.b.Locator(selCitationQuote).First()
	if err := quote.WaitFor(ctx, browser.Visible, r.waits.CitationVisible); err != nil {
		return "", fmt.Errorf("citation %d of %q did not appear: %w", index+1, title, err)
	}
	text, err := quote.TextContent(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read citation %d of %q: %w", index+1, title, err)
	}
	text = strings.TrimSpace(text)

	if err := btn.Click(ctx); err != nil {
		return "", fmt.Errorf("failed to close citation %d of %q: %w", index+1, title, err)
	}
	browser.Sleep(ctx, r.waits.Settle+r.waits.Settle/2)

	if err := quote.WaitFor(ctx, browser.Hidden, r.waits.CitationClose); err != nil {
		r.log.Warn("citation may not have closed, pressing escape", "book", title, "index", index)
		if err := r.b.Press(ctx, "Escape"); err != nil {
			r.log.Warn("escape fallback failed", "error", err)
		}
		browser.Sleep(ctx, r.waits.Settle)
	}
	return text, nil
}

// collapseSection folds a book section back up so DOM state does not
// compound across iterations. Best effort.
func (r *Resolver) collapseSection(ctx context.Context, sec browser.Locator, title string) {
	if !r.isOpen(ctx, sec) {
		return
	}
	summary := sec.Locator(selSummary).First()
	if err := summary.ScrollIntoView(ctx); err == nil {
		browser.Sleep(ctx, r.waits.Settle/2)
	}
	if err := summary.Click(ctx); err != nil {
		r.log.Warn("failed to collapse section", "book", title, "error", err)
		return
	}
	browser.Sleep(ctx, r.waits.Settle)
}

func (r *Resolver) isOpen(ctx context.Context, details browser.Locator) bool {
	_, ok, err := details.GetAttribute(ctx, "open")
	return err == nil && ok
}

func (r *Resolver) summaryTitle(ctx context.Context, sec browser.Locator) string {
	el := sec.Locator(selSummaryTitle)
	n, err := el.Count(ctx)
	if err != nil || n == 0 {
		return ""
	}
	text, err := el.First().TextContent(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
