package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bookgenie-qa/harness/internal/reconcile"
	"github.com/bookgenie-qa/harness/internal/refdata"
)

func newValidateCmd() *cobra.Command {
	var (
		sheet    string
		database string
	)

	cmd := &cobra.Command{
		Use:   "validate <extraction.xlsx>",
		Short: "Reconcile an exported extraction against the references offline",
		Long: `Validates a previously exported extraction spreadsheet against the
expected-books spreadsheet and the backend title database without driving a
browser. Citation and AI-relevance checks need a live session and are not
run here.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))

			extracted, err := refdata.ReadRecords(args[0])
			if err != nil {
				return fmt.Errorf("failed to load extraction: %w", err)
			}
			log.Info("extraction loaded", "records", len(extracted))

			var hardErr error
			if sheet != "" {
				expected, err := refdata.ReadRecords(sheet)
				if err != nil {
					return fmt.Errorf("failed to load reference spreadsheet: %w", err)
				}
				report, err := reconcile.ValidateAgainstSpreadsheet(extracted, expected, log)
				hardErr = err
				status := "PASS"
				if !report.Passed {
					status = "FAIL"
				}
				fmt.Printf("spreadsheet: %s (%d books)\n", status, len(report.Books))
			}

			if database != "" {
				db, err := refdata.LoadTitleDB(database)
				if err != nil {
					return fmt.Errorf("failed to load title database: %w", err)
				}
				report := reconcile.ValidateAgainstDatabase(db, extracted, log)
				fmt.Printf("database: %s (%.1f%% of titles found)\n",
					report.Aggregate.Status(), report.Aggregate.PassRate())
			}

			return hardErr
		},
	}

	cmd.Flags().StringVar(&sheet, "spreadsheet", "", "Expected-books spreadsheet path")
	cmd.Flags().StringVar(&database, "database", "", "Backend title database path")

	return cmd
}
