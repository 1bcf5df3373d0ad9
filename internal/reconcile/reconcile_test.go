package reconcile

import (
	"context"
	"strings"
	"testing"

	"github.com/bookgenie-qa/harness/internal/books"
	"github.com/bookgenie-qa/harness/internal/semantic"
)

// cannedJudge returns a fixed verdict/analysis without touching the network.
type cannedJudge struct {
	verdict  semantic.CitationVerdict
	analysis semantic.Analysis
	calls    int
}

func (j *cannedJudge) ValidateCitation(ctx context.Context, reason, citation string) semantic.CitationVerdict {
	j.calls++
	return j.verdict
}

func (j *cannedJudge) AnalyzeRelevance(ctx context.Context, req semantic.RelevanceRequest) semantic.Analysis {
	j.calls++
	return j.analysis
}

func TestCitationContainmentPassesWithoutJudge(t *testing.T) {
	judge := &cannedJudge{}
	check := NewCitationCheck(judge, nil)

	res := check.Validate(context.Background(),
		"It gathers tales of some of the worst Christmases ever from great writers.",
		"worst Christmases ever", 1, "A Literary Christmas")

	if !res.IsValid || res.MatchPercentage != 100 || res.AIValidated {
		t.Errorf("containment should pass without AI: %+v", res)
	}
	if judge.calls != 0 {
		t.Error("judge must not be consulted when containment passes")
	}
}

func TestCitationFallsBackToJudge(t *testing.T) {
	judge := &cannedJudge{verdict: semantic.CitationVerdict{
		IsValid: true, SimilarityScore: 0.92, MatchPercentage: 92, AIConfidence: 88,
	}}
	check := NewCitationCheck(judge, nil)

	res := check.Validate(context.Background(),
		"during the Christmas season even cynical hearts open to wondrous occurences",
		"cynical hearts become open to wondrous occurrences", 1, "A Christmas Carol")

	if !res.IsValid || !res.AIValidated || res.AIConfidence != 88 {
		t.Errorf("AI override not applied: %+v", res)
	}
	if len(res.Errors) != 0 {
		t.Errorf("errors must be cleared after AI pass: %v", res.Errors)
	}
	if judge.calls != 1 {
		t.Errorf("judge calls = %d, want 1", judge.calls)
	}
}

func TestCitationSentinelAndMarkerFailFast(t *testing.T) {
	judge := &cannedJudge{verdict: semantic.CitationVerdict{IsValid: true}}
	check := NewCitationCheck(judge, nil)

	for _, citation := range []string{books.NoCitationFound, "Error: toggle never opened", ""} {
		res := check.Validate(context.Background(), "a perfectly good reason here", citation, 1, "B")
		if res.IsValid {
			t.Errorf("citation %q must fail input validation", citation)
		}
	}
	if judge.calls != 0 {
		t.Error("judge must not be consulted for failed inputs")
	}
}

func TestValidateAllPairsByIndexWithSentinel(t *testing.T) {
	judge := &cannedJudge{verdict: semantic.CitationVerdict{Fallback: true}}
	check := NewCitationCheck(judge, nil)

	extracted := []books.BookRecord{{
		Title:   "The Giver",
		Reasons: []string{"centers on a dystopian society", "widely taught in schools"},
	}}
	citations := map[string][]books.CitationRecord{
		"The Giver": {{BookTitle: "The Giver", ReasonIndex: 0, CitationText: "a dystopian society"}},
	}

	outcome := check.ValidateAll(context.Background(), extracted, citations)
	results := outcome.Results["The Giver"]
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].IsValid {
		t.Errorf("first pair should pass via containment: %+v", results[0])
	}
	if results[1].CitationText != books.NoCitationFound || results[1].IsValid {
		t.Errorf("unmatched reason must get the sentinel and fail: %+v", results[1])
	}
	if outcome.Aggregate.TotalChecked != 2 || outcome.Aggregate.Passed != 1 {
		t.Errorf("aggregate wrong: %+v", outcome.Aggregate)
	}
}

func TestSpreadsheetValidationPositional(t *testing.T) {
	expected := []books.BookRecord{
		{Title: "The Giver", RelevanceScore: 90, Gap: "predates modern themes", WhyMatch: "a | b"},
		{Title: "1984", RelevanceScore: 85, Gap: books.NoGapMentioned, WhyMatch: "x"},
	}
	extracted := []books.BookRecord{
		{Title: "The Giver", RelevanceScore: 88, Gap: "predates modern themes overall", WhyMatch: "a | b | c"},
		{Title: "1984", RelevanceScore: 84, Gap: books.NoGapMentioned, WhyMatch: "x"},
	}

	report, err := ValidateAgainstSpreadsheet(extracted, expected, nil)
	if err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
	if !report.Passed || len(report.Books) != 2 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestSpreadsheetMissingRecordIsHardFailure(t *testing.T) {
	expected := []books.BookRecord{
		{Title: "The Giver", RelevanceScore: 90},
		{Title: "1984", RelevanceScore: 85},
	}
	extracted := []books.BookRecord{
		{Title: "The Giver", RelevanceScore: 90},
	}

	report, err := ValidateAgainstSpreadsheet(extracted, expected, nil)
	if err == nil {
		t.Fatal("missing positional record must be an error")
	}
	if !strings.Contains(err.Error(), "1984") {
		t.Errorf("error must name the missing book: %v", err)
	}
	if !report.Books[1].Missing {
		t.Errorf("second book must be marked missing: %+v", report.Books[1])
	}
}

func TestRelevanceThresholdAndFallback(t *testing.T) {
	pass := &cannedJudge{analysis: semantic.Analysis{OverallScore: 85}}
	if r := ValidateRelevance(context.Background(), pass, semantic.RelevanceRequest{Query: "q"}, nil); !r.Passed {
		t.Errorf("85%% must pass: %+v", r)
	}

	low := &cannedJudge{analysis: semantic.Analysis{OverallScore: 79}}
	if r := ValidateRelevance(context.Background(), low, semantic.RelevanceRequest{Query: "q"}, nil); r.Passed {
		t.Error("79% must fail")
	}

	fb := &cannedJudge{analysis: semantic.Analysis{Fallback: true}}
	if r := ValidateRelevance(context.Background(), fb, semantic.RelevanceRequest{Query: "q"}, nil); r.Passed {
		t.Error("fallback analysis must not pass")
	}
}

func TestRenderCitationReport(t *testing.T) {
	outcome := CitationOutcome{Results: map[string][]CitationResult{
		"The Giver": {
			{BookTitle: "The Giver", ReasonNumber: 1, IsValid: true, MatchPercentage: 100},
			{BookTitle: "The Giver", ReasonNumber: 2, ReasonText: "r", CitationText: "c",
				Errors: []string{"citation text not found in reason"}},
		},
	}}
	outcome.Aggregate.Name = "reason-citation"
	outcome.Aggregate.Add(true, false)
	outcome.Aggregate.Add(false, false)

	text := RenderCitationReport(outcome)
	for _, want := range []string{"BOOK: The Giver", "Reason 1: PASS (100%)", "Reason 2: FAIL", "SUMMARY: 1/2 reasons passed (50.0%)", "OVERALL STATUS: FAIL"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}

	html := RenderCitationHTML(outcome)
	for _, want := range []string{"<h2>The Giver</h2>", "Pass Rate: 50.0%", "Overall Status: FAIL"} {
		if !strings.Contains(html, want) {
			t.Errorf("html report missing %q", want)
		}
	}
}

func TestBuildRunResults(t *testing.T) {
	extracted := []books.BookRecord{{Title: "The Giver", RelevanceScore: 92, Gap: books.NoGapMentioned, Reasons: []string{"a", "b"}}}
	sheet := &SpreadsheetReport{Passed: true}
	citations := &CitationOutcome{}
	citations.Aggregate.Add(true, false)

	res := BuildRunResults(RunConfig{Query: "q"}, extracted, sheet, citations, nil, nil)
	if res.Spreadsheet != "PASS" {
		t.Errorf("spreadsheet status = %q", res.Spreadsheet)
	}
	if len(res.Books) != 1 || res.Books[0].ReasonCount != 2 {
		t.Errorf("books section wrong: %+v", res.Books)
	}
	if res.Citations.PassRate != 100.0 {
		t.Errorf("citation pass rate = %v", res.Citations.PassRate)
	}
}
