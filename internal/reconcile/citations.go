// Package reconcile cross-validates extracted book records against the
// three reference sources: the expected-books spreadsheet (hard, positional),
// the backend title database (soft, containment), and the AI judge (soft,
// semantic). It owns aggregation and report rendering; it is rebuilt per
// scenario run and keeps no cross-run state.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bookgenie-qa/harness/internal/books"
	"github.com/bookgenie-qa/harness/internal/match"
	"github.com/bookgenie-qa/harness/internal/semantic"
)

// CitationJudge is the slice of the semantic judge the citation check needs.
type CitationJudge interface {
	ValidateCitation(ctx context.Context, reasonText, citationText string) semantic.CitationVerdict
}

// CitationResult is the outcome of comparing one reason with its citation.
type CitationResult struct {
	BookTitle       string
	ReasonNumber    int // 1-based
	ReasonText      string
	CitationText    string
	IsValid         bool
	SimilarityScore float64
	MatchPercentage int
	Errors          []string
	AIValidated     bool
	AIConfidence    int
	Fallback        bool
}

// CitationOutcome groups all per-reason results with their aggregate.
type CitationOutcome struct {
	Results   map[string][]CitationResult
	Aggregate match.Aggregate
}

// CitationCheck validates reason/citation pairs: containment first, then the
// AI judge for wording differences.
type CitationCheck struct {
	judge CitationJudge
	log   *slog.Logger
}

func NewCitationCheck(judge CitationJudge, log *slog.Logger) *CitationCheck {
	if log == nil {
		log = slog.Default()
	}
	return &CitationCheck{judge: judge, log: log}
}

// ValidateAll pairs each book's reasons with its resolved citations by index
// and validates every pair. Reasons beyond the captured citations get the
// missing-citation sentinel and fail input validation.
func (c *CitationCheck) ValidateAll(ctx context.Context, extracted []books.BookRecord, citations map[string][]books.CitationRecord) CitationOutcome {
	outcome := CitationOutcome{Results: map[string][]CitationResult{}}
	outcome.Aggregate.Name = "reason-citation"

	for _, book := range extracted {
		captured := citations[book.Title]
		c.log.Info("validating reasons", "book", book.Title, "reasons", len(book.Reasons), "citations", len(captured))

		for i, reason := range book.Reasons {
			citation := books.NoCitationFound
			if i < len(captured) {
				citation = captured[i].CitationText
			}

			res := c.Validate(ctx, reason, citation, i+1, book.Title)
			outcome.Results[book.Title] = append(outcome.Results[book.Title], res)
			outcome.Aggregate.Add(res.IsValid, res.Fallback)

			if res.IsValid {
				c.log.Info("citation check passed", "book", book.Title, "reason", i+1, "match", res.MatchPercentage)
			} else {
				c.log.Warn("citation check failed", "book", book.Title, "reason", i+1, "errors", strings.Join(res.Errors, "; "))
			}
		}
	}

	c.log.Info("citation validation summary",
		"passed", outcome.Aggregate.Passed,
		"total", outcome.Aggregate.TotalChecked,
		"rate", fmt.Sprintf("%.1f%%", outcome.Aggregate.PassRate()),
		"status", outcome.Aggregate.Status())
	return outcome
}

// Validate checks one reason/citation pair.
func (c *CitationCheck) Validate(ctx context.Context, reasonText, citationText string, reasonNumber int, bookTitle string) CitationResult {
	res := CitationResult{
		BookTitle:    bookTitle,
		ReasonNumber: reasonNumber,
		ReasonText:   reasonText,
		CitationText: citationText,
	}

	if strings.TrimSpace(reasonText) == "" {
		res.Errors = append(res.Errors, "reason text is empty or invalid")
	}
	if strings.TrimSpace(citationText) == "" {
		res.Errors = append(res.Errors, "citation text is empty or invalid")
	}
	if citationText == books.NoCitationFound || books.IsErrorMarker(citationText) {
		res.Errors = append(res.Errors, fmt.Sprintf("citation extraction failed: %s", citationText))
	}
	if len(res.Errors) > 0 {
		return res
	}

	if r := match.Containment("reason", reasonText, citationText); r.Valid {
		res.IsValid = true
		res.SimilarityScore = 1.0
		res.MatchPercentage = 100
		return res
	}

	res.Errors = append(res.Errors, fmt.Sprintf("citation text not found in reason: %q", citationText))

	verdict := c.judge.ValidateCitation(ctx, reasonText, citationText)
	res.Fallback = verdict.Fallback
	if verdict.IsValid {
		res.IsValid = true
		res.SimilarityScore = verdict.SimilarityScore
		res.MatchPercentage = verdict.MatchPercentage
		res.AIValidated = true
		res.AIConfidence = verdict.AIConfidence
		res.Errors = nil
	}
	return res
}
