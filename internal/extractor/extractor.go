// Package extractor turns the chat response markup into typed book records.
// The response is a nested accordion: an outer collapsible per question, one
// numbered collapsible per book, and inner collapsibles for the why-match
// reasons and the gap notes. Parsing walks the real DOM tree first and falls
// back to text patterns when the tree walk comes up empty, so a markup
// variation degrades one field instead of losing the record.
package extractor

import (
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/bookgenie-qa/harness/internal/books"
)

const (
	// minSectionLength guards against false-positive splits on decorative
	// markup that happens to look like a numbered heading.
	minSectionLength = 200

	// Field labels as they appear in the section metadata spans.
	labelTitle   = "Book Title:"
	labelAuthor  = "Author:"
	labelDate    = "Publishing Date:"
	labelImprint = "Imprint:"
	labelScore   = "Relevance Score:"

	// titleAnchor must appear in a section for it to count as a book entry.
	titleAnchor = labelTitle

	// minReasonLength drops list items that are markup residue rather than
	// real why-match bullets.
	minReasonLength = 10

	highlightClass = "text-[#d63384]"
	citationClass  = "BookCitation"
)

// Extractor parses response fragments. It holds no state beyond the logger;
// extraction is a pure function of the input markup.
type Extractor struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{log: log}
}

// Question pulls the query text from the outer accordion summary.
func (e *Extractor) Question(fragment string) string {
	root, err := parseFragment(fragment)
	if err == nil {
		if span := firstMatch(root, func(n *html.Node) bool {
			return n.DataAtom == atom.Span && n.Parent != nil && n.Parent.DataAtom == atom.Summary
		}); span != nil {
			if q := collapseSpace(nodeText(span, nil)); q != "" {
				return q
			}
		}
	}
	if m := reQuestion.FindStringSubmatch(fragment); m != nil {
		return strings.TrimSpace(m[1])
	}
	return "Unknown Query"
}

// Books extracts every book record from a response fragment. A section that
// cannot be parsed is logged and skipped; zero records is a valid result.
func (e *Extractor) Books(fragment string) []books.BookRecord {
	e.log.Debug("starting extraction", "length", len(fragment))

	question := e.Question(fragment)
	sections := e.splitSections(fragment)
	e.log.Debug("found book sections", "count", len(sections))

	var records []books.BookRecord
	for i, sec := range sections {
		rec, ok := e.extractSection(sec)
		if !ok {
			e.log.Warn("skipping section without a title", "section", i+1)
			continue
		}
		rec.Question = question
		records = append(records, rec)
		e.log.Debug("extracted book", "title", rec.Title, "reasons", len(rec.Reasons))
	}

	e.log.Info("extraction complete", "books", len(records))
	return records
}

// section carries both views of one book's markup: the parsed subtree for
// the primary strategies and the raw text for the fallbacks.
type section struct {
	node *html.Node
	raw  string
}

// splitSections isolates each numbered book collapsible. The DOM split looks
// for details elements whose summary heading starts with "N."; when the tree
// yields nothing the raw fragment is split on the same textual pattern.
func (e *Extractor) splitSections(fragment string) []section {
	root, err := parseFragment(fragment)
	if err != nil {
		e.log.Warn("fragment did not parse, using text split", "error", err)
		return splitSectionsRaw(fragment)
	}

	var out []section
	walk(root, func(n *html.Node) bool {
		if n.DataAtom != atom.Details {
			return true
		}
		heading := summaryHeading(n)
		if !reNumbered.MatchString(heading) {
			return true
		}
		raw := render(n)
		if len(raw) > minSectionLength && strings.Contains(raw, titleAnchor) {
			out = append(out, section{node: n, raw: raw})
		}
		return false
	})

	if len(out) == 0 {
		return splitSectionsRaw(fragment)
	}
	return out
}

func (e *Extractor) extractSection(sec section) (books.BookRecord, bool) {
	title := e.labelValue(sec, labelTitle)
	if title == "" {
		return books.BookRecord{}, false
	}

	reasons, highlights := e.reasons(sec)
	gap := e.gap(sec)
	if gap == "" {
		gap = books.NoGapMentioned
	}

	return books.BookRecord{
		Title:            title,
		Author:           e.labelValue(sec, labelAuthor),
		PublishingDate:   e.labelValue(sec, labelDate),
		Imprint:          e.labelValue(sec, labelImprint),
		RelevanceScore:   e.score(sec),
		Gap:              gap,
		WhyMatch:         strings.Join(reasons, books.ReasonSeparator),
		Reasons:          reasons,
		HighlightedTexts: highlights,
	}, true
}

// labelValue reads the text immediately following a field label. The label
// sits inside its own span, so in document order the value is the first
// non-empty text after the label text.
func (e *Extractor) labelValue(sec section, label string) string {
	if sec.node != nil {
		texts := textRuns(sec.node)
		for i, t := range texts {
			if !strings.Contains(t, label) {
				continue
			}
			for _, next := range texts[i+1:] {
				if v := strings.TrimSpace(next); v != "" {
					return v
				}
			}
			break
		}
	}
	return labelValueRaw(sec.raw, label)
}

func (e *Extractor) score(sec section) int {
	raw := e.labelValue(sec, labelScore)
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if m := reScorePercent.FindStringSubmatch(sec.raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	e.log.Debug("no relevance score found, defaulting to 0")
	return 0
}

// reasons walks the "Why this book is the match" list. Each list item yields
// the reason text with citation spans stripped, plus the highlighted span
// text at the same index (empty when the item carries no highlight).
func (e *Extractor) reasons(sec section) (reasons, highlights []string) {
	items := listItems(sec.node, func(heading string) bool {
		return strings.Contains(heading, "Why this book is the")
	})
	if items == nil {
		return reasonsRaw(sec.raw)
	}

	for _, li := range items {
		reason := collapseSpace(nodeText(li, isCitationSpan))
		if len(reason) < minReasonLength {
			continue
		}

		var spans []string
		walk(li, func(n *html.Node) bool {
			if n.Type == html.ElementNode && strings.Contains(attr(n, "class"), highlightClass) {
				if p := firstMatch(n, func(c *html.Node) bool { return c.DataAtom == atom.P }); p != nil {
					if t := collapseSpace(nodeText(p, nil)); t != "" {
						spans = append(spans, t)
					}
				}
				return false
			}
			return true
		})

		reasons = append(reasons, reason)
		highlights = append(highlights, strings.Join(spans, books.ReasonSeparator))
	}
	return reasons, highlights
}

// gap reads "The Gap" list and joins the cleaned items. Empty string means
// the section has no gap notes; the caller substitutes the sentinel.
func (e *Extractor) gap(sec section) string {
	items := listItems(sec.node, func(heading string) bool {
		return strings.Contains(heading, "The Gap")
	})
	if items == nil {
		return gapRaw(sec.raw)
	}

	var parts []string
	for _, li := range items {
		if t := collapseSpace(nodeText(li, isCitationSpan)); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, books.ReasonSeparator)
}

// listItems finds the nested collapsible whose summary heading satisfies
// match and returns the li nodes of its first ordered list. nil means the
// sub-section was not found (distinct from an empty list).
func listItems(root *html.Node, match func(string) bool) []*html.Node {
	if root == nil {
		return nil
	}
	var target *html.Node
	walk(root, func(n *html.Node) bool {
		if target != nil {
			return false
		}
		if n.DataAtom == atom.Details && n != root && match(summaryHeading(n)) {
			target = n
			return false
		}
		return true
	})
	if target == nil {
		return nil
	}
	ol := firstMatch(target, func(n *html.Node) bool { return n.DataAtom == atom.Ol })
	if ol == nil {
		return nil
	}
	items := []*html.Node{}
	for c := ol.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.Li {
			items = append(items, c)
		}
	}
	return items
}

func isCitationSpan(n *html.Node) bool {
	return n.DataAtom == atom.Span && strings.Contains(attr(n, "class"), citationClass)
}
