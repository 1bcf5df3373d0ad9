package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderCitationReport produces the plain-text citation validation report
// attached to the run artifacts.
func RenderCitationReport(outcome CitationOutcome) string {
	var b strings.Builder
	b.WriteString("CITATION VALIDATION DETAILED REPORT\n")
	b.WriteString(strings.Repeat("=", 80) + "\n\n")

	aiValidated := 0
	for _, title := range sortedTitles(outcome.Results) {
		b.WriteString(fmt.Sprintf("BOOK: %s\n", title))
		b.WriteString(strings.Repeat("-", 60) + "\n")

		for _, r := range outcome.Results[title] {
			status := "FAIL"
			if r.IsValid {
				status = "PASS"
			}
			b.WriteString(fmt.Sprintf("Reason %d: %s (%d%%)", r.ReasonNumber, status, r.MatchPercentage))
			if r.AIValidated {
				b.WriteString(fmt.Sprintf(" [AI validated, confidence: %d%%]", r.AIConfidence))
				aiValidated++
			}
			if r.Fallback {
				b.WriteString(" [judge unavailable]")
			}
			b.WriteString("\n")

			switch {
			case !r.IsValid:
				b.WriteString(fmt.Sprintf("   reason:   %s\n", truncate(r.ReasonText, 100)))
				b.WriteString(fmt.Sprintf("   citation: %s\n", truncate(r.CitationText, 100)))
				for _, e := range r.Errors {
					b.WriteString(fmt.Sprintf("   error: %s\n", e))
				}
			case r.AIValidated:
				b.WriteString("   judge determined texts convey the same meaning despite wording differences\n")
			default:
				b.WriteString("   citation found in reason\n")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	agg := outcome.Aggregate
	b.WriteString(fmt.Sprintf("SUMMARY: %d/%d reasons passed (%.1f%%)\n", agg.Passed, agg.TotalChecked, agg.PassRate()))
	b.WriteString(fmt.Sprintf("AI VALIDATED: %d reasons\n", aiValidated))
	if agg.FallbackCount > 0 {
		b.WriteString(fmt.Sprintf("JUDGE UNAVAILABLE: %d reasons\n", agg.FallbackCount))
	}
	b.WriteString(fmt.Sprintf("OVERALL STATUS: %s\n", agg.Status()))
	return b.String()
}

// RenderCitationHTML produces the simple-markup rendering of the same
// results for the report sink.
func RenderCitationHTML(outcome CitationOutcome) string {
	var b strings.Builder
	b.WriteString(`<html>
<head>
<style>
body { font-family: Arial, sans-serif; margin: 20px; background: #f5f5f5; }
.header { background: #6932E2; color: white; padding: 20px; border-radius: 10px; }
.book { background: white; margin: 15px 0; padding: 15px; border-radius: 5px; border-left: 5px solid #6932E2; }
.pass { color: #28a745; margin: 8px 0; padding: 5px; border-left: 3px solid #28a745; }
.fail { color: #dc3545; margin: 8px 0; padding: 5px; border-left: 3px solid #dc3545; }
.error { color: #fd7e14; margin-left: 20px; font-size: 0.9em; }
.summary { background: #e8f4fd; padding: 20px; border-radius: 5px; margin: 20px 0; }
.metric { font-size: 1.2em; font-weight: bold; margin: 10px 0; }
</style>
</head>
<body>
`)
	b.WriteString(fmt.Sprintf("<div class=\"header\"><h1>Citation Validation Report</h1><p>Generated on %s</p></div>\n",
		time.Now().Format("2006-01-02 15:04:05")))

	for _, title := range sortedTitles(outcome.Results) {
		b.WriteString(fmt.Sprintf("<div class=\"book\"><h2>%s</h2>\n", htmlEscape(title)))
		for _, r := range outcome.Results[title] {
			class, status := "fail", "FAIL"
			if r.IsValid {
				class, status = "pass", "PASS"
			}
			b.WriteString(fmt.Sprintf("<div class=\"%s\"><strong>Reason %d: %s (%d%% match)</strong>", class, r.ReasonNumber, status, r.MatchPercentage))
			if r.AIValidated {
				b.WriteString(fmt.Sprintf(" <em>AI validated, confidence %d%%</em>", r.AIConfidence))
			}
			for _, e := range r.Errors {
				b.WriteString(fmt.Sprintf("<div class=\"error\">%s</div>", htmlEscape(e)))
			}
			b.WriteString("</div>\n")
		}
		b.WriteString("</div>\n")
	}

	agg := outcome.Aggregate
	b.WriteString("<div class=\"summary\"><h2>Validation Summary</h2>\n")
	b.WriteString(fmt.Sprintf("<div class=\"metric\">Total Reasons Validated: %d</div>\n", agg.TotalChecked))
	b.WriteString(fmt.Sprintf("<div class=\"metric\">Passed: %d</div>\n", agg.Passed))
	b.WriteString(fmt.Sprintf("<div class=\"metric\">Failed: %d</div>\n", agg.Failed))
	b.WriteString(fmt.Sprintf("<div class=\"metric\">Pass Rate: %.1f%%</div>\n", agg.PassRate()))
	b.WriteString(fmt.Sprintf("<div class=\"metric\">Overall Status: %s</div>\n", agg.Status()))
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

func sortedTitles(results map[string][]CitationResult) []string {
	titles := make([]string, 0, len(results))
	for t := range results {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
