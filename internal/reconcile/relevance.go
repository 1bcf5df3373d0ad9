package reconcile

import (
	"context"
	"log/slog"

	"github.com/bookgenie-qa/harness/internal/match"
	"github.com/bookgenie-qa/harness/internal/semantic"
)

// RelevanceJudge is the slice of the semantic judge the relevance check
// needs.
type RelevanceJudge interface {
	AnalyzeRelevance(ctx context.Context, req semantic.RelevanceRequest) semantic.Analysis
}

// RelevanceReport wraps the judge's analysis with the threshold decision.
// Soft assertion: a failing score is logged, never thrown.
type RelevanceReport struct {
	Analysis semantic.Analysis
	Passed   bool
}

// ValidateRelevance asks the AI judge to grade the response against the
// query and applies the fixed pass threshold. A fallback analysis scores
// zero and therefore fails, but is reported as unavailable rather than as a
// confident negative.
func ValidateRelevance(ctx context.Context, judge RelevanceJudge, req semantic.RelevanceRequest, log *slog.Logger) RelevanceReport {
	if log == nil {
		log = slog.Default()
	}
	log.Info("analyzing response relevance", "query", req.Query, "books", len(req.Books))

	analysis := judge.AnalyzeRelevance(ctx, req)
	report := RelevanceReport{
		Analysis: analysis,
		Passed:   !analysis.Fallback && float64(analysis.OverallScore) >= match.PassThreshold,
	}

	switch {
	case analysis.Fallback:
		log.Warn("AI relevance analysis unavailable, fallback result recorded")
	case report.Passed:
		log.Info("response relevant to query", "score", analysis.OverallScore)
	default:
		log.Warn("response relevance below threshold", "score", analysis.OverallScore, "threshold", match.PassThreshold)
	}

	for _, ba := range analysis.BookAnalyses {
		log.Info("book relevance", "book", ba.BookTitle, "score", ba.OverallScore)
		for _, s := range ba.SectionScores {
			if float64(s.Score) >= match.PassThreshold {
				log.Info("section score", "book", ba.BookTitle, "section", s.Section, "score", s.Score)
			} else {
				log.Warn("section below threshold", "book", ba.BookTitle, "section", s.Section, "score", s.Score, "feedback", s.Feedback)
			}
		}
	}
	return report
}
