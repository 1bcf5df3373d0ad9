package scenario

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bookgenie-qa/harness/internal/runlog"
	"github.com/bookgenie-qa/harness/internal/semantic"
)

func testRunner(t *testing.T) *Runner {
	t.Helper()
	sink, err := runlog.NewDirSink(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(runlog.NewCollector(nil), sink)
}

func TestMissingDatabaseFileStopsRun(t *testing.T) {
	r := testRunner(t)
	judge := semantic.NewJudge(semantic.NewGemini(""), semantic.DefaultRetryPolicy(), nil)

	res := &Result{}
	err := r.reconcileAll(context.Background(), nil, judge, Params{
		DatabasePath: filepath.Join(t.TempDir(), "missing_titles.xlsx"),
	}, res)
	if err == nil {
		t.Fatal("missing title database must stop the run")
	}
	if !strings.Contains(err.Error(), "title database") {
		t.Errorf("error must name the failing reference: %v", err)
	}
	if res.Database != nil {
		t.Errorf("no database report expected on load failure: %+v", res.Database)
	}
}

func TestMissingSpreadsheetFileStopsRun(t *testing.T) {
	r := testRunner(t)
	judge := semantic.NewJudge(semantic.NewGemini(""), semantic.DefaultRetryPolicy(), nil)

	err := r.reconcileAll(context.Background(), nil, judge, Params{
		SpreadsheetPath: filepath.Join(t.TempDir(), "missing_expected.xlsx"),
	}, &Result{})
	if err == nil {
		t.Fatal("missing reference spreadsheet must stop the run")
	}
	if !strings.Contains(err.Error(), "spreadsheet") {
		t.Errorf("error must name the failing reference: %v", err)
	}
}
