// Package match implements the field-level comparison strategies used when
// reconciling extracted book records against reference data. All matchers are
// pure functions: they never error, they always return a populated
// FieldResult describing what was compared and how.
package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bookgenie-qa/harness/internal/books"
)

// Domain constants shared by every validation channel.
const (
	// ScoreTolerance is the allowed absolute difference between an extracted
	// and an expected relevance score.
	ScoreTolerance = 5

	// SimilarityThreshold is the minimum token-overlap ratio for free-text
	// fields (gap, reason text).
	SimilarityThreshold = 0.6

	// PassThreshold is the aggregate pass rate (percent) required for
	// citation, AI-relevance and database checks.
	PassThreshold = 80.0
)

// FieldResult is the outcome of comparing one field of one extracted record
// against one reference value.
type FieldResult struct {
	Field     string
	Extracted string
	Expected  string
	Valid     bool
	Method    string
	Message   string

	// Populated for reason/citation comparisons.
	MatchPercentage int
	AIValidated     bool
	AIConfidence    int
}

// Exact compares two values by trimmed string equality. Used for titles and
// authors.
func Exact(field, extracted, expected string) FieldResult {
	e := strings.TrimSpace(extracted)
	w := strings.TrimSpace(expected)
	r := FieldResult{Field: field, Extracted: e, Expected: w, Method: "exact"}
	if e == w {
		r.Valid = true
		r.Message = fmt.Sprintf("%s matches: %q", field, e)
	} else {
		r.Message = fmt.Sprintf("%s mismatch: expected %q, found %q", field, w, e)
	}
	return r
}

// ScoreWithin compares two relevance scores under the fixed tolerance band.
// The comparison is symmetric.
func ScoreWithin(extracted, expected int) FieldResult {
	r := FieldResult{
		Field:     "relevanceScore",
		Extracted: fmt.Sprintf("%d", extracted),
		Expected:  fmt.Sprintf("%d", expected),
		Method:    "tolerance",
	}
	diff := extracted - expected
	if diff < 0 {
		diff = -diff
	}
	if diff <= ScoreTolerance {
		r.Valid = true
		r.Message = fmt.Sprintf("score matches: %d%% (expected %d%%)", extracted, expected)
	} else {
		r.Message = fmt.Sprintf("score mismatch: expected %d%%, found %d%%", expected, extracted)
	}
	return r
}

// Similarity compares free text by token overlap: the number of shared
// lower-cased whitespace tokens divided by the larger token count.
func Similarity(field, extracted, expected string) FieldResult {
	sim := TokenOverlap(extracted, expected)
	r := FieldResult{
		Field:           field,
		Extracted:       extracted,
		Expected:        expected,
		Method:          "similarity",
		MatchPercentage: int(sim * 100),
	}
	if sim > SimilarityThreshold {
		r.Valid = true
		r.Message = fmt.Sprintf("%s matches (similarity: %.1f%%)", field, sim*100)
	} else {
		r.Message = fmt.Sprintf("%s mismatch (similarity: %.1f%%)", field, sim*100)
	}
	return r
}

// Containment reports whether the normalized needle appears inside the
// normalized haystack. It is the primary reason/citation check, tried before
// any similarity or AI fallback.
func Containment(field, haystack, needle string) FieldResult {
	r := FieldResult{Field: field, Extracted: haystack, Expected: needle, Method: "containment"}
	if strings.Contains(Normalize(haystack), Normalize(needle)) {
		r.Valid = true
		r.MatchPercentage = 100
		r.Message = fmt.Sprintf("%s: citation found in reason", field)
	} else {
		r.Message = fmt.Sprintf("%s: citation text not found in reason: %q", field, needle)
	}
	return r
}

// CountSufficiency validates why-match point counts: the extracted record
// must carry at least as many points as the reference. Counts come from
// splitting the joined form on the pipe separator, so spreadsheet rows and
// live extractions count identically.
func CountSufficiency(extracted, expected string) FieldResult {
	r := FieldResult{Field: "whyMatch", Extracted: extracted, Expected: expected, Method: "count"}
	if strings.TrimSpace(expected) == "" {
		r.Valid = true
		r.Method = "skipped"
		r.Message = "no why-match expected - validation skipped"
		return r
	}
	if strings.TrimSpace(extracted) == "" {
		r.Message = "why-match information missing"
		return r
	}
	got := len(strings.Split(extracted, "|"))
	want := len(strings.Split(expected, "|"))
	if got >= want {
		r.Valid = true
		r.Message = fmt.Sprintf("why-match points: %d (expected %d)", got, want)
	} else {
		r.Message = fmt.Sprintf("why-match points insufficient: found %d, expected %d", got, want)
	}
	return r
}

// Gap validates gap text under the special-case rule shared with the score:
// a perfect score forbids any gap regardless of the reference; a sentinel
// reference skips the check; otherwise token-overlap similarity applies.
func Gap(extractedGap, expectedGap string, relevanceScore int) FieldResult {
	r := FieldResult{Field: "gap", Extracted: extractedGap, Expected: expectedGap}

	if relevanceScore == 100 {
		r.Method = "perfect-score"
		rec := books.BookRecord{Gap: extractedGap}
		if rec.HasGap() {
			r.Message = fmt.Sprintf("perfect score (100%%) but gap is mentioned: %q", extractedGap)
		} else {
			r.Valid = true
			r.Message = "perfect score (100%) - no gap mentioned as expected"
		}
		return r
	}

	if expectedGap == "" || expectedGap == books.NoGapMentioned {
		r.Valid = true
		r.Method = "skipped"
		r.Message = "no gap expected - validation skipped"
		return r
	}
	if extractedGap == "" || extractedGap == books.NoGapMentioned {
		r.Method = "missing"
		r.Message = "gap information missing"
		return r
	}
	res := Similarity("gap", extractedGap, expectedGap)
	return res
}

// TokenOverlap computes |words(a) ∩ words(b)| / max(|words(a)|, |words(b)|)
// over lower-cased whitespace tokens. Empty inputs yield 0.
func TokenOverlap(a, b string) float64 {
	wa := strings.Fields(strings.ToLower(a))
	wb := strings.Fields(strings.ToLower(b))
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(wb))
	for _, w := range wb {
		set[w] = true
	}
	common := 0
	for _, w := range wa {
		if set[w] {
			common++
		}
	}
	max := len(wa)
	if len(wb) > max {
		max = len(wb)
	}
	return float64(common) / float64(max)
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Normalize lowercases text, strips punctuation and collapses whitespace so
// containment checks tolerate markup and punctuation drift.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
