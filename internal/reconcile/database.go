package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/bookgenie-qa/harness/internal/books"
	"github.com/bookgenie-qa/harness/internal/match"
	"github.com/bookgenie-qa/harness/internal/refdata"
)

// DatabaseReport is the outcome of the title-existence check against the
// backend catalog. This channel is a soft assertion: a low match rate is
// logged and reported, not thrown.
type DatabaseReport struct {
	Found     []string // "extracted -> catalog" pairs
	Missing   []string
	Aggregate match.Aggregate
}

// ValidateAgainstDatabase checks every extracted title for existence in the
// catalog using bidirectional case-insensitive containment.
func ValidateAgainstDatabase(db *refdata.TitleDB, extracted []books.BookRecord, log *slog.Logger) DatabaseReport {
	if log == nil {
		log = slog.Default()
	}
	log.Info("validating titles against database", "catalog_size", len(db.Titles()), "extracted", len(extracted))

	titles := make([]string, 0, len(extracted))
	for _, b := range extracted {
		titles = append(titles, b.Title)
	}

	report := DatabaseReport{}
	report.Aggregate.Name = "database"
	report.Found, report.Missing = db.FindMatching(titles)
	for range report.Found {
		report.Aggregate.Add(true, false)
	}
	for range report.Missing {
		report.Aggregate.Add(false, false)
	}

	for i, m := range report.Found {
		log.Info("title found in database", "n", i+1, "match", m)
	}
	for i, t := range report.Missing {
		log.Warn("title missing from database", "n", i+1, "title", t)
	}

	rate := report.Aggregate.PassRate()
	if report.Aggregate.Passing() {
		log.Info("database match rate", "rate", fmt.Sprintf("%.1f%%", rate), "status", "PASS")
	} else {
		log.Warn("low database match rate", "rate", fmt.Sprintf("%.1f%%", rate), "threshold", match.PassThreshold)
	}
	return report
}
