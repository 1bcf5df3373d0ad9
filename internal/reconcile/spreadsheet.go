package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/bookgenie-qa/harness/internal/books"
	"github.com/bookgenie-qa/harness/internal/match"
)

// BookValidation holds the field-level results for one extracted/expected
// record pair.
type BookValidation struct {
	Index    int // position in the reference sheet
	Title    string
	Fields   []match.FieldResult
	Missing  bool // no extracted record at this index
	AllValid bool
}

// SpreadsheetReport is the outcome of the positional reference validation.
type SpreadsheetReport struct {
	Books  []BookValidation
	Passed bool
}

// ValidateAgainstSpreadsheet compares extracted records against the
// reference sheet by position: extracted[i] versus expected[i]. This is the
// hard check; a failed report should stop the scenario, so the caller gets
// an error alongside it with enough context to locate the failure.
func ValidateAgainstSpreadsheet(extracted, expected []books.BookRecord, log *slog.Logger) (SpreadsheetReport, error) {
	if log == nil {
		log = slog.Default()
	}
	report := SpreadsheetReport{Passed: true}

	for i, want := range expected {
		bv := BookValidation{Index: i + 1, Title: want.Title}

		if i >= len(extracted) {
			bv.Missing = true
			report.Books = append(report.Books, bv)
			report.Passed = false
			log.Error("expected book missing from extraction", "index", i+1, "title", want.Title)
			continue
		}
		got := extracted[i]

		bv.Fields = append(bv.Fields,
			match.Exact("title", got.Title, want.Title),
			match.ScoreWithin(got.RelevanceScore, want.RelevanceScore),
			match.Gap(got.Gap, want.Gap, got.RelevanceScore),
			match.CountSufficiency(got.WhyMatch, want.WhyMatch),
		)

		bv.AllValid = true
		for _, f := range bv.Fields {
			if f.Valid {
				log.Info("field check passed", "book", want.Title, "field", f.Field, "method", f.Method)
			} else {
				log.Error("field check failed", "book", want.Title, "field", f.Field, "detail", f.Message)
				bv.AllValid = false
			}
		}
		if !bv.AllValid {
			report.Passed = false
		}
		report.Books = append(report.Books, bv)
	}

	if !report.Passed {
		for _, bv := range report.Books {
			if bv.Missing {
				return report, fmt.Errorf("spreadsheet validation failed: book %d (%q) missing from extraction", bv.Index, bv.Title)
			}
			if !bv.AllValid {
				for _, f := range bv.Fields {
					if !f.Valid {
						return report, fmt.Errorf("spreadsheet validation failed: book %d (%q), field %s: %s", bv.Index, bv.Title, f.Field, f.Message)
					}
				}
			}
		}
	}
	return report, nil
}
