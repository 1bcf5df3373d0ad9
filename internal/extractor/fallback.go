package extractor

import (
	"regexp"
	"strings"

	"github.com/bookgenie-qa/harness/internal/books"
)

// Text-pattern fallbacks for when the DOM walk finds nothing. These mirror
// the markup shapes the tree strategies target: labels live in their own
// span-wrapped paragraph with the value as the following bare text.
var (
	reQuestion     = regexp.MustCompile(`<summary[^>]*>\s*<span[^>]*>([^<]+)</span>`)
	reNumbered     = regexp.MustCompile(`^\d+\.\s*`)
	reSectionStart = regexp.MustCompile(`(?i)<details[^>]*>\s*<summary[^>]*>\s*<span[^>]*>\d+\.\s*[^<]*</span>`)
	reScorePercent = regexp.MustCompile(`Relevance Score:.*?(\d+)%`)
	reWhySection   = regexp.MustCompile(`(?s)Why this book is the.*?Match</span></summary>\s*<ol[^>]*>(.*?)</ol>`)
	reGapSection   = regexp.MustCompile(`(?s)The Gap</span></summary>\s*<ol[^>]*>(.*?)</ol>`)
	reListItem     = regexp.MustCompile(`(?is)<li>(.*?)</li>`)
	reCitationSpan = regexp.MustCompile(`(?s)<span class="BookCitation[^>]*>.*?</span>`)
	reHighlight    = regexp.MustCompile(`(?s)<span[^>]*text-\[#d63384\][^>]*>.*?<p[^>]*>([^<]*)</p></span>`)
	reTag          = regexp.MustCompile(`<[^>]*>`)

	// One precompiled pattern per field label the sections carry.
	labelPatterns = map[string]*regexp.Regexp{
		labelTitle:   compileLabel(labelTitle),
		labelAuthor:  compileLabel(labelAuthor),
		labelDate:    compileLabel(labelDate),
		labelImprint: compileLabel(labelImprint),
		labelScore:   compileLabel(labelScore),
	}
)

func compileLabel(label string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(label) + `.*?</p></span>\s*([^<]+)`)
}

func labelPattern(label string) *regexp.Regexp {
	if re, ok := labelPatterns[label]; ok {
		return re
	}
	return compileLabel(label)
}

func labelValueRaw(raw, label string) string {
	if m := labelPattern(label).FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func splitSectionsRaw(fragment string) []section {
	starts := reSectionStart.FindAllStringIndex(fragment, -1)
	var out []section
	for i, loc := range starts {
		end := len(fragment)
		if i < len(starts)-1 {
			end = starts[i+1][0]
		}
		raw := fragment[loc[0]:end]
		if len(raw) > minSectionLength && strings.Contains(raw, titleAnchor) {
			out = append(out, section{raw: raw})
		}
	}
	return out
}

func stripMarkup(s string) string {
	s = reCitationSpan.ReplaceAllString(s, "")
	s = reTag.ReplaceAllString(s, "")
	return collapseSpace(s)
}

func reasonsRaw(raw string) (reasons, highlights []string) {
	m := reWhySection.FindStringSubmatch(raw)
	if m == nil {
		return nil, nil
	}
	for _, li := range reListItem.FindAllStringSubmatch(m[1], -1) {
		reason := stripMarkup(li[1])
		if len(reason) < minReasonLength {
			continue
		}
		var spans []string
		for _, h := range reHighlight.FindAllStringSubmatch(li[1], -1) {
			if t := strings.TrimSpace(h[1]); t != "" {
				spans = append(spans, t)
			}
		}
		reasons = append(reasons, reason)
		highlights = append(highlights, strings.Join(spans, books.ReasonSeparator))
	}
	return reasons, highlights
}

func gapRaw(raw string) string {
	m := reGapSection.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	var parts []string
	for _, li := range reListItem.FindAllStringSubmatch(m[1], -1) {
		if t := stripMarkup(li[1]); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, books.ReasonSeparator)
}
