package semantic

import (
	"fmt"
	"strings"

	"github.com/bookgenie-qa/harness/internal/books"
)

// RelevanceRequest carries everything the relevance prompt needs.
type RelevanceRequest struct {
	Query    string
	Response string
	Books    []books.BookRecord
}

// maxResponseChars bounds the raw response excerpt in the prompt to stay
// clear of token limits.
const maxResponseChars = 2000

func citationPrompt(reasonText, citationText string) string {
	return fmt.Sprintf(`
You are a citation validation assistant. Your task is to determine if the REASON text and CITATION text convey the same meaning despite minor wording differences.

REASON TEXT:
%q

CITATION TEXT:
%q

ANALYSIS CRITERIA:
1. Check if both texts are talking about the same concept/idea
2. Allow for minor wording variations, synonyms, and grammatical differences
3. Focus on semantic similarity rather than exact text matching

VALIDATION RULES:
- PASS if the citation text represents the same core idea as the reason text
- PASS if there are minor wording differences but the meaning is identical
- FAIL only if the citation text describes a completely different concept

RESPONSE FORMAT (JSON only):
{
    "isValid": true,
    "similarityScore": 0.95,
    "matchPercentage": 95,
    "aiConfidence": 90,
    "explanation": "Brief explanation of why they match despite differences"
}

Provide your analysis in the specified JSON format only.
`, reasonText, citationText)
}

func relevancePrompt(req RelevanceRequest) string {
	var info strings.Builder
	for i, b := range req.Books {
		fmt.Fprintf(&info, "\nBOOK %d: %q\n- Relevance Score: %d%%\n- Why Match: %s\n- Gap: %s\n- Reasons: %s\n",
			i+1, b.Title, b.RelevanceScore, b.WhyMatch, b.Gap, strings.Join(b.Reasons, "; "))
	}

	response := req.Response
	if len(response) > maxResponseChars {
		response = response[:maxResponseChars] + "... [response truncated]"
	}

	return fmt.Sprintf(`
You are a QA validation assistant analyzing BookGenie responses.
Evaluate how well EACH INDIVIDUAL BOOK addresses the original query.
Focus on these sections for EACH BOOK: Author information, Publishing date, "Why this is a match" explanations, Relevance scores.

QUERY: %q

RESPONSE TO ANALYZE:
%s

BOOKS TO ANALYZE INDIVIDUALLY:
%s

Please analyze EACH BOOK separately and provide:
1. Overall relevance score for each book (0-100%%)
2. For each book, section-specific scores:
   - Author Information: completeness and relevance to query
   - Publishing Date: appropriateness and accuracy
   - Why Match Explanations: quality and justification
   - Relevance Scores: proper justification with respect to query
3. Detailed feedback for each book
4. Specific improvement suggestions for each book
5. Overall summary and general improvement suggestions

Return your analysis in the following JSON format ONLY, no other text:
{
    "query": %q,
    "overallScore": 85,
    "bookAnalyses": [
        {
            "bookTitle": "Book 1",
            "overallScore": 90,
            "sectionScores": [
                {"section": "Author Information", "score": 95, "feedback": "..."},
                {"section": "Publishing Date", "score": 85, "feedback": "..."},
                {"section": "Why Match Explanations", "score": 90, "feedback": "..."},
                {"section": "Relevance Scores", "score": 90, "feedback": "..."}
            ],
            "detailedFeedback": ["..."],
            "improvementSuggestions": ["..."]
        }
    ],
    "summaryFeedback": ["..."],
    "improvementSuggestions": ["..."]
}

Ensure the response is valid JSON and all scores are between 0-100.
Analyze all %d books individually.
`, req.Query, response, info.String(), req.Query, len(req.Books))
}
