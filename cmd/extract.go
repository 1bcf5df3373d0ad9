package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bookgenie-qa/harness/internal/extractor"
	"github.com/bookgenie-qa/harness/internal/refdata"
)

func newExtractCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract <response.html>",
		Short: "Parse a saved response fragment into book records",
		Long: `Parses a saved BookGenie response HTML fragment without a browser and
prints the extracted records. Useful for debugging extraction against
captured markup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read fragment: %w", err)
			}

			ex := extractor.New(slog.Default())
			fragment := string(data)
			question := ex.Question(fragment)
			records := ex.Books(fragment)

			fmt.Printf("Question: %s\n", question)
			fmt.Printf("Books extracted: %d\n\n", len(records))
			for i, b := range records {
				fmt.Printf("%d. %s\n", i+1, b.Title)
				fmt.Printf("   author: %s\n", b.Author)
				fmt.Printf("   published: %s  imprint: %s\n", b.PublishingDate, b.Imprint)
				fmt.Printf("   relevance: %d%%  reasons: %d\n", b.RelevanceScore, b.ReasonCount())
				fmt.Printf("   gap: %s\n", b.Gap)
			}

			if output != "" {
				for i := range records {
					records[i].Question = question
				}
				if err := refdata.WriteRecords(records, output); err != nil {
					return err
				}
				fmt.Printf("\nRecords written to %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write extracted records to this xlsx path")

	return cmd
}
