package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// CitationVerdict is the judge's decision on whether a citation expresses
// the same concept as its reason text. Fallback marks a verdict produced
// locally because the judge was unreachable; aggregates report those
// separately from confident negatives.
type CitationVerdict struct {
	IsValid         bool    `json:"isValid"`
	SimilarityScore float64 `json:"similarityScore"`
	MatchPercentage int     `json:"matchPercentage"`
	AIConfidence    int     `json:"aiConfidence"`
	Explanation     string  `json:"explanation,omitempty"`
	Fallback        bool    `json:"-"`
}

// SectionScore grades one section of one book's presentation.
type SectionScore struct {
	Section  string `json:"section"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// BookAnalysis is the judge's per-book relevance assessment.
type BookAnalysis struct {
	BookTitle              string         `json:"bookTitle"`
	OverallScore           int            `json:"overallScore"`
	SectionScores          []SectionScore `json:"sectionScores"`
	DetailedFeedback       []string       `json:"detailedFeedback"`
	ImprovementSuggestions []string       `json:"improvementSuggestions"`
}

// Analysis is the whole-response relevance assessment.
type Analysis struct {
	Query                  string         `json:"query"`
	OverallScore           int            `json:"overallScore"`
	BookAnalyses           []BookAnalysis `json:"bookAnalyses"`
	SummaryFeedback        []string       `json:"summaryFeedback"`
	ImprovementSuggestions []string       `json:"improvementSuggestions"`
	Fallback               bool           `json:"-"`
}

// Judge wraps a TextGenerator with retry, prompt construction, and response
// parsing. All methods return well-formed results, never errors.
type Judge struct {
	gen   TextGenerator
	retry RetryPolicy
	log   *slog.Logger
}

func NewJudge(gen TextGenerator, retry RetryPolicy, log *slog.Logger) *Judge {
	if log == nil {
		log = slog.Default()
	}
	return &Judge{gen: gen, retry: retry, log: log}
}

// ValidateCitation asks whether reason and citation convey the same meaning.
func (j *Judge) ValidateCitation(ctx context.Context, reasonText, citationText string) CitationVerdict {
	var verdict CitationVerdict
	err := j.retry.Do(ctx, func() error {
		text, err := j.gen.Generate(ctx, citationPrompt(reasonText, citationText))
		if err != nil {
			return err
		}
		v, err := parseCitationVerdict(text)
		if err != nil {
			return err
		}
		verdict = v
		return nil
	})
	if err != nil {
		j.log.Warn("citation judge unavailable, using fallback verdict", "error", err)
		return CitationVerdict{Fallback: true}
	}
	return verdict
}

// AnalyzeRelevance grades the response and each extracted book against the
// original query.
func (j *Judge) AnalyzeRelevance(ctx context.Context, req RelevanceRequest) Analysis {
	var analysis Analysis
	err := j.retry.Do(ctx, func() error {
		text, err := j.gen.Generate(ctx, relevancePrompt(req))
		if err != nil {
			return err
		}
		a, err := parseAnalysis(text)
		if err != nil {
			return err
		}
		analysis = a
		return nil
	})
	if err != nil {
		j.log.Warn("relevance judge unavailable, using fallback analysis", "error", err)
		return fallbackAnalysis(req, err)
	}
	return analysis
}

// fallbackAnalysis produces the deterministic zero-scored result handed out
// when every attempt failed. It still carries one entry per book so report
// shapes stay stable.
func fallbackAnalysis(req RelevanceRequest, cause error) Analysis {
	a := Analysis{
		Query:    req.Query,
		Fallback: true,
		SummaryFeedback: []string{
			"AI analysis unavailable",
			fmt.Sprintf("Error: %v", cause),
		},
	}
	for _, b := range req.Books {
		a.BookAnalyses = append(a.BookAnalyses, BookAnalysis{
			BookTitle:        b.Title,
			DetailedFeedback: []string{"AI analysis unavailable"},
		})
	}
	return a
}

var fenceRe = regexp.MustCompile("```json\n?|\n?```")

// stripFence removes a ```json fenced block wrapper, if present.
func stripFence(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

func parseCitationVerdict(text string) (CitationVerdict, error) {
	var v CitationVerdict
	if err := json.Unmarshal([]byte(stripFence(text)), &v); err != nil {
		return CitationVerdict{}, fmt.Errorf("failed to parse citation verdict: %w", err)
	}
	// Missing scores on a positive verdict get conservative defaults.
	if v.IsValid {
		if v.SimilarityScore == 0 {
			v.SimilarityScore = 0.9
		}
		if v.MatchPercentage == 0 {
			v.MatchPercentage = 90
		}
	}
	if v.AIConfidence == 0 {
		v.AIConfidence = 80
	}
	return v, nil
}

func parseAnalysis(text string) (Analysis, error) {
	var a Analysis
	if err := json.Unmarshal([]byte(stripFence(text)), &a); err != nil {
		return Analysis{}, fmt.Errorf("failed to parse relevance analysis: %w", err)
	}
	if a.BookAnalyses == nil {
		return Analysis{}, fmt.Errorf("invalid analysis: missing bookAnalyses")
	}
	return a, nil
}
