package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookgenie-qa/harness/internal/config"
	"github.com/bookgenie-qa/harness/internal/genie"
	"github.com/bookgenie-qa/harness/internal/runlog"
	"github.com/bookgenie-qa/harness/internal/scenario"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		url        string
		mode       string
		query      string
		sheet      string
		database   string
		model      string
		artifacts  string
		export     string
		headful    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full browser scenario against a live deployment",
		Example: `  # Run with the built-in defaults plus a custom query
  bookgenie-harness run --query "suggest me some books like Animal Farm"

  # Run against staging, watching the browser
  bookgenie-harness run --config staging.yaml --headful`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlag(&cfg.BaseURL, url)
			applyFlag(&cfg.Mode, mode)
			applyFlag(&cfg.Query, query)
			applyFlag(&cfg.Spreadsheet, sheet)
			applyFlag(&cfg.Database, database)
			applyFlag(&cfg.Model, model)
			applyFlag(&cfg.ArtifactsDir, artifacts)
			if headful {
				cfg.Headless = false
			}

			sink, err := runlog.NewDirSink(cfg.ArtifactsDir)
			if err != nil {
				return err
			}
			collector := runlog.NewCollector(slog.NewTextHandler(os.Stderr, nil))
			runner := scenario.NewRunner(collector, sink)

			_, err = runner.Run(cmd.Context(), scenario.Params{
				BaseURL:         cfg.BaseURL,
				Mode:            cfg.Mode,
				Query:           cfg.Query,
				SpreadsheetPath: cfg.Spreadsheet,
				DatabasePath:    cfg.Database,
				ExportPath:      export,
				Model:           cfg.Model,
				Headless:        cfg.Headless,
				SlowMo:          cfg.SlowMo(),
				Waits:           waitsFrom(cfg.Timeouts),
			})
			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	cmd.Flags().StringVar(&url, "url", "", "Application base URL")
	cmd.Flags().StringVar(&mode, "mode", "", "Chat mode to select")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Query to submit")
	cmd.Flags().StringVar(&sheet, "spreadsheet", "", "Expected-books spreadsheet path")
	cmd.Flags().StringVar(&database, "database", "", "Backend title database path (xlsx, parquet or jsonl)")
	cmd.Flags().StringVar(&model, "model", "", "Gemini model for the AI judge")
	cmd.Flags().StringVar(&artifacts, "artifacts", "", "Artifacts output directory")
	cmd.Flags().StringVar(&export, "export", "", "Export extracted records to this xlsx path")
	cmd.Flags().BoolVar(&headful, "headful", false, "Run the browser with a visible window")

	return cmd
}

func applyFlag(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// waitsFrom maps the config timeout overrides onto the default wait classes.
func waitsFrom(t config.Timeouts) genie.Waits {
	w := genie.DefaultWaits()
	if t.ThinkingAppearMin > 0 {
		w.ThinkingAppear = time.Duration(t.ThinkingAppearMin) * time.Minute
	}
	if t.ThinkingClearMin > 0 {
		w.ThinkingClear = time.Duration(t.ThinkingClearMin) * time.Minute
	}
	if t.FallbackSleepMin > 0 {
		w.FallbackSleep = time.Duration(t.FallbackSleepMin) * time.Minute
	}
	if t.CitationVisibleS > 0 {
		w.CitationVisible = time.Duration(t.CitationVisibleS) * time.Second
	}
	return w
}
