package semantic

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/bookgenie-qa/harness/internal/books"
)

// scriptedGenerator returns canned responses (or errors) in sequence.
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "", errors.New("script exhausted")
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Retryable: IsRetryable}
}

func TestValidateCitationParsesFencedVerdict(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"```json\n{\"isValid\": true, \"similarityScore\": 0.95, \"matchPercentage\": 95, \"aiConfidence\": 90}\n```",
	}}
	j := NewJudge(gen, fastRetry(), nil)

	v := j.ValidateCitation(context.Background(), "centers on a dystopian society", "a dystopian society where memory is suppressed")
	if !v.IsValid || v.MatchPercentage != 95 || v.AIConfidence != 90 {
		t.Errorf("unexpected verdict: %+v", v)
	}
	if v.Fallback {
		t.Error("successful verdict must not be marked fallback")
	}
}

func TestValidateCitationDefaultsMissingScores(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"isValid": true}`}}
	j := NewJudge(gen, fastRetry(), nil)

	v := j.ValidateCitation(context.Background(), "a", "b")
	if v.SimilarityScore != 0.9 || v.MatchPercentage != 90 || v.AIConfidence != 80 {
		t.Errorf("defaults not applied: %+v", v)
	}
}

func TestValidateCitationRetriesThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{
		errs:      []error{&googleapi.Error{Code: 503}, nil},
		responses: []string{"", `{"isValid": true, "similarityScore": 0.9, "matchPercentage": 90, "aiConfidence": 85}`},
	}
	j := NewJudge(gen, fastRetry(), nil)

	v := j.ValidateCitation(context.Background(), "a", "b")
	if !v.IsValid {
		t.Errorf("expected success after retry: %+v", v)
	}
	if gen.calls != 2 {
		t.Errorf("calls = %d, want 2", gen.calls)
	}
}

func TestValidateCitationFallbackWellFormed(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{
		errors.New("model is overloaded"),
		errors.New("model is overloaded"),
		errors.New("model is overloaded"),
	}}
	j := NewJudge(gen, fastRetry(), nil)

	v := j.ValidateCitation(context.Background(), "a", "b")
	if v.IsValid || v.SimilarityScore != 0 || v.MatchPercentage != 0 || v.AIConfidence != 0 {
		t.Errorf("fallback verdict must be zeroed: %+v", v)
	}
	if !v.Fallback {
		t.Error("fallback verdict must be labeled")
	}
	if gen.calls != 3 {
		t.Errorf("calls = %d, want 3 attempts", gen.calls)
	}
}

func TestValidateCitationNonRetryableFailsOnce(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{errors.New("invalid api key")}}
	j := NewJudge(gen, fastRetry(), nil)

	v := j.ValidateCitation(context.Background(), "a", "b")
	if !v.Fallback {
		t.Error("expected fallback verdict")
	}
	if gen.calls != 1 {
		t.Errorf("non-retryable error must not be retried, calls = %d", gen.calls)
	}
}

func TestValidateCitationMalformedResponseIsFailure(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"I think they match!"}}
	j := NewJudge(gen, fastRetry(), nil)

	v := j.ValidateCitation(context.Background(), "a", "b")
	if !v.Fallback || v.IsValid {
		t.Errorf("malformed response must yield fallback verdict: %+v", v)
	}
}

func TestAnalyzeRelevanceParsesAnalysis(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"```json\n" + `{
		"query": "dystopian novels",
		"overallScore": 85,
		"bookAnalyses": [{"bookTitle": "The Giver", "overallScore": 90, "sectionScores": [], "detailedFeedback": [], "improvementSuggestions": []}],
		"summaryFeedback": ["good"],
		"improvementSuggestions": []
	}` + "\n```"}}
	j := NewJudge(gen, fastRetry(), nil)

	a := j.AnalyzeRelevance(context.Background(), RelevanceRequest{
		Query: "dystopian novels",
		Books: []books.BookRecord{{Title: "The Giver"}},
	})
	if a.OverallScore != 85 || len(a.BookAnalyses) != 1 || a.Fallback {
		t.Errorf("unexpected analysis: %+v", a)
	}
}

func TestAnalyzeRelevanceFallbackKeepsBookShape(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{
		errors.New("rate limit"), errors.New("rate limit"), errors.New("rate limit"),
	}}
	j := NewJudge(gen, fastRetry(), nil)

	a := j.AnalyzeRelevance(context.Background(), RelevanceRequest{
		Query: "q",
		Books: []books.BookRecord{{Title: "A"}, {Title: "B"}},
	})
	if !a.Fallback || a.OverallScore != 0 {
		t.Errorf("fallback analysis must be labeled and zero-scored: %+v", a)
	}
	if len(a.BookAnalyses) != 2 {
		t.Errorf("fallback must keep one analysis per book, got %d", len(a.BookAnalyses))
	}
}

func TestRetryPolicyStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute, Retryable: func(error) bool { return true }}
	err := p.Do(ctx, func() error { return errors.New("overloaded") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context cancellation, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", &googleapi.Error{Code: 429}, true},
		{"http 503", &googleapi.Error{Code: 503}, true},
		{"http 400", &googleapi.Error{Code: 400}, false},
		{"overloaded message", errors.New("the model is Overloaded"), true},
		{"rate limit message", errors.New("rate limit exceeded"), true},
		{"auth failure", errors.New("invalid api key"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
