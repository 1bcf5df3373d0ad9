package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookgenie-harness",
		Short: "End-to-end validation harness for the BookGenie recommendation chat",
		Long: `bookgenie-harness drives the BookGenie chat application through a real
browser, extracts the recommended book records from the response, resolves
their citations, and validates everything against the expected-books
spreadsheet, the backend title database, and an AI judge.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newValidateCmd())

	return cmd
}
