package reconcile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bookgenie-qa/harness/internal/books"
	"github.com/bookgenie-qa/harness/internal/runlog"
)

// RunConfig is the configuration section of the results YAML.
type RunConfig struct {
	BaseURL   string `yaml:"baseurl"`
	Mode      string `yaml:"mode"`
	Query     string `yaml:"query"`
	Model     string `yaml:"model"`
	Timestamp string `yaml:"timestamp"`
}

// ChannelResult summarizes one validation channel in the results YAML.
type ChannelResult struct {
	TotalChecked int     `yaml:"totalchecked"`
	Passed       int     `yaml:"passed"`
	Failed       int     `yaml:"failed"`
	Fallbacks    int     `yaml:"fallbacks,omitempty"`
	PassRate     float64 `yaml:"passrate"`
	Status       string  `yaml:"status"`
}

// BookResult is one extracted record in the results YAML.
type BookResult struct {
	Title          string `yaml:"title"`
	Author         string `yaml:"author,omitempty"`
	PublishingDate string `yaml:"publishingdate,omitempty"`
	Imprint        string `yaml:"imprint,omitempty"`
	RelevanceScore int    `yaml:"relevancescore"`
	Gap            string `yaml:"gap"`
	ReasonCount    int    `yaml:"reasoncount"`
}

// RunResults is the complete structured artifact for one scenario run.
type RunResults struct {
	Config      RunConfig     `yaml:"config"`
	Books       []BookResult  `yaml:"books"`
	Spreadsheet string        `yaml:"spreadsheet"` // PASS/FAIL/SKIPPED
	Citations   ChannelResult `yaml:"citations"`
	Database    ChannelResult `yaml:"database"`
	Relevance   ChannelResult `yaml:"relevance"`
}

// BuildRunResults assembles the YAML artifact from the channel outcomes.
func BuildRunResults(cfg RunConfig, extracted []books.BookRecord, sheet *SpreadsheetReport, citations *CitationOutcome, database *DatabaseReport, relevance *RelevanceReport) RunResults {
	res := RunResults{Config: cfg, Spreadsheet: "SKIPPED"}

	for _, b := range extracted {
		res.Books = append(res.Books, BookResult{
			Title:          b.Title,
			Author:         b.Author,
			PublishingDate: b.PublishingDate,
			Imprint:        b.Imprint,
			RelevanceScore: b.RelevanceScore,
			Gap:            b.Gap,
			ReasonCount:    b.ReasonCount(),
		})
	}

	if sheet != nil {
		res.Spreadsheet = "FAIL"
		if sheet.Passed {
			res.Spreadsheet = "PASS"
		}
	}
	if citations != nil {
		a := citations.Aggregate
		res.Citations = ChannelResult{
			TotalChecked: a.TotalChecked,
			Passed:       a.Passed,
			Failed:       a.Failed,
			Fallbacks:    a.FallbackCount,
			PassRate:     a.PassRate(),
			Status:       a.Status(),
		}
	}
	if database != nil {
		a := database.Aggregate
		res.Database = ChannelResult{
			TotalChecked: a.TotalChecked,
			Passed:       a.Passed,
			Failed:       a.Failed,
			PassRate:     a.PassRate(),
			Status:       a.Status(),
		}
	}
	if relevance != nil {
		status := "FAIL"
		if relevance.Passed {
			status = "PASS"
		}
		res.Relevance = ChannelResult{
			TotalChecked: len(relevance.Analysis.BookAnalyses),
			PassRate:     float64(relevance.Analysis.OverallScore),
			Status:       status,
		}
	}
	return res
}

// AttachYAML marshals the run results and hands them to the report sink.
func AttachYAML(res RunResults, sink runlog.Sink, name string) error {
	data, err := yaml.Marshal(&res)
	if err != nil {
		return fmt.Errorf("failed to marshal run results: %w", err)
	}
	if err := sink.Attach(name, "application/yaml", data); err != nil {
		return fmt.Errorf("failed to attach run results: %w", err)
	}
	return nil
}
