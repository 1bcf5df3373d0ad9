// Package scenario orchestrates one end-to-end run: drive the chat UI,
// extract the recommendation records, resolve citations, and reconcile
// everything against the reference sources. The runner owns no browser or
// judge state of its own; every run builds its collaborators fresh.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookgenie-qa/harness/internal/books"
	"github.com/bookgenie-qa/harness/internal/browser"
	"github.com/bookgenie-qa/harness/internal/extractor"
	"github.com/bookgenie-qa/harness/internal/genie"
	"github.com/bookgenie-qa/harness/internal/reconcile"
	"github.com/bookgenie-qa/harness/internal/refdata"
	"github.com/bookgenie-qa/harness/internal/runlog"
	"github.com/bookgenie-qa/harness/internal/semantic"
)

// Params configures one scenario run.
type Params struct {
	BaseURL string
	Mode    string
	Query   string

	// SpreadsheetPath is the expected-books reference sheet. Empty skips the
	// positional check.
	SpreadsheetPath string
	// DatabasePath is the backend title catalog (xlsx, parquet or jsonl).
	// Empty skips the existence check.
	DatabasePath string
	// ExportPath, when set, receives the extracted records as a spreadsheet.
	ExportPath string

	Model    string
	Headless bool
	SlowMo   time.Duration
	Waits    genie.Waits
}

// Result carries everything a run produced. Soft-channel failures live in the
// reports; only hard failures surface as the runner's error.
type Result struct {
	Question    string
	Extracted   []books.BookRecord
	Citations   map[string][]books.CitationRecord
	Spreadsheet *reconcile.SpreadsheetReport
	CitationOut *reconcile.CitationOutcome
	Database    *reconcile.DatabaseReport
	Relevance   *reconcile.RelevanceReport
}

// Runner executes scenarios and files their artifacts.
type Runner struct {
	collector *runlog.Collector
	sink      runlog.Sink
	log       *slog.Logger
}

func NewRunner(collector *runlog.Collector, sink runlog.Sink) *Runner {
	return &Runner{collector: collector, sink: sink, log: collector.Logger()}
}

// Run drives the full flow. The returned Result is populated as far as the
// run got, even when an error is returned.
func (r *Runner) Run(ctx context.Context, p Params) (*Result, error) {
	r.collector.Reset()
	defer r.flush()

	r.log.Info("BookGenie scenario starting", runlog.CategoryKey, runlog.CategoryHeader)
	r.log.Info("run parameters", "url", p.BaseURL, "mode", p.Mode, "query", p.Query)

	res := &Result{}

	chrome, err := browser.Launch(ctx, browser.Options{Headless: p.Headless, SlowMo: p.SlowMo})
	if err != nil {
		return res, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer chrome.Close()

	page := genie.NewPage(chrome.Page(), p.Waits, r.log)
	if err := r.drive(ctx, page, p); err != nil {
		return res, err
	}

	if err := r.extract(ctx, page, res); err != nil {
		return res, err
	}

	resolver := genie.NewResolver(page.Browser(), p.Waits, r.log)
	res.Citations, err = resolver.Resolve(ctx)
	if err != nil {
		r.log.Warn("citation resolution incomplete", "error", err)
	}

	if p.ExportPath != "" {
		if err := refdata.WriteRecords(res.Extracted, p.ExportPath); err != nil {
			r.log.Warn("failed to export extracted records", "error", err)
		} else {
			r.log.Info("extracted records exported", "path", p.ExportPath)
		}
	}

	judge := semantic.NewJudge(semantic.NewGemini(p.Model), semantic.DefaultRetryPolicy(), r.log)
	hardErr := r.reconcileAll(ctx, page, judge, p, res)

	if err := r.fileResults(p, res); err != nil {
		r.log.Warn("failed to write results summary", "error", err)
	}
	return res, hardErr
}

// drive performs the UI conversation up to a settled AI response.
func (r *Runner) drive(ctx context.Context, page *genie.Page, p Params) error {
	if err := page.Open(ctx, p.BaseURL); err != nil {
		return fmt.Errorf("failed to open application: %w", err)
	}
	if err := page.SelectMode(ctx, p.Mode); err != nil {
		return err
	}
	if err := page.TypeQuery(ctx, p.Query); err != nil {
		return err
	}
	page.WaitForResponse(ctx)
	return nil
}

// extract pulls the response markup and parses the recommendation records.
// Zero extracted books is a hard failure with a screenshot attached for
// diagnosis.
func (r *Runner) extract(ctx context.Context, page *genie.Page, res *Result) error {
	html, err := page.LatestResponseHTML(ctx)
	if err != nil {
		r.screenshot(ctx, page, "no-response")
		return fmt.Errorf("failed to capture response: %w", err)
	}

	ex := extractor.New(r.log)
	res.Question = ex.Question(html)
	res.Extracted = ex.Books(html)
	r.log.Info("extraction complete", "question", res.Question, "books", len(res.Extracted))

	for i, b := range res.Extracted {
		r.log.Info("extracted book", runlog.CategoryKey, runlog.CategoryBook,
			"n", i+1, "title", b.Title, "score", b.RelevanceScore, "reasons", b.ReasonCount())
	}

	if len(res.Extracted) == 0 {
		r.screenshot(ctx, page, "extraction-failure")
		return fmt.Errorf("no book records extracted from response")
	}
	return nil
}

// reconcileAll runs the three validation channels. The spreadsheet check is
// the only hard one; its error is returned after the soft channels have run
// and the artifacts are written, so a hard failure still yields full reports.
func (r *Runner) reconcileAll(ctx context.Context, page *genie.Page, judge *semantic.Judge, p Params, res *Result) error {
	var hardErr error

	if p.SpreadsheetPath != "" {
		r.log.Info("spreadsheet validation", runlog.CategoryKey, runlog.CategoryHeader)
		expected, err := refdata.ReadRecords(p.SpreadsheetPath)
		if err != nil {
			return fmt.Errorf("failed to load reference spreadsheet: %w", err)
		}
		report, err := reconcile.ValidateAgainstSpreadsheet(res.Extracted, expected, r.log)
		res.Spreadsheet = &report
		hardErr = err
	}

	r.log.Info("citation validation", runlog.CategoryKey, runlog.CategoryHeader)
	check := reconcile.NewCitationCheck(judge, r.log)
	outcome := check.ValidateAll(ctx, res.Extracted, res.Citations)
	res.CitationOut = &outcome
	r.attach("citation_validation_report", "text/plain", []byte(reconcile.RenderCitationReport(outcome)))
	r.attach("citation_validation_report", "text/html", []byte(reconcile.RenderCitationHTML(outcome)))

	if p.DatabasePath != "" {
		r.log.Info("database validation", runlog.CategoryKey, runlog.CategoryHeader)
		db, err := refdata.LoadTitleDB(p.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to load title database: %w", err)
		}
		report := reconcile.ValidateAgainstDatabase(db, res.Extracted, r.log)
		res.Database = &report
	}

	r.log.Info("relevance validation", runlog.CategoryKey, runlog.CategoryHeader)
	text, err := page.LatestResponseText(ctx)
	if err != nil {
		r.log.Warn("failed to read response text for relevance analysis", "error", err)
	} else {
		report := reconcile.ValidateRelevance(ctx, judge, semantic.RelevanceRequest{
			Query:    res.Question,
			Response: text,
			Books:    res.Extracted,
		}, r.log)
		res.Relevance = &report
	}

	return hardErr
}

// flush writes the transcript. Deferred from Run so partial runs still leave
// it behind.
func (r *Runner) flush() {
	if err := r.collector.Flush(r.sink, "run_transcript"); err != nil {
		r.log.Warn("failed to write run transcript", "error", err)
	}
}

// fileResults builds and attaches the structured YAML summary.
func (r *Runner) fileResults(p Params, res *Result) error {
	cfg := reconcile.RunConfig{
		BaseURL:   p.BaseURL,
		Mode:      p.Mode,
		Query:     p.Query,
		Model:     p.Model,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	results := reconcile.BuildRunResults(cfg, res.Extracted, res.Spreadsheet, res.CitationOut, res.Database, res.Relevance)
	return reconcile.AttachYAML(results, r.sink, "run_results")
}

func (r *Runner) attach(name, mime string, content []byte) {
	if err := r.sink.Attach(name, mime, content); err != nil {
		r.log.Warn("failed to attach artifact", "name", name, "error", err)
	}
}

func (r *Runner) screenshot(ctx context.Context, page *genie.Page, name string) {
	shot, err := page.Screenshot(ctx)
	if err != nil {
		r.log.Warn("failed to capture screenshot", "error", err)
		return
	}
	r.attach(name, "image/png", shot)
}
