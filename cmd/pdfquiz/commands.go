package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pdfquiz"

	"github.com/spf13/cobra"
)

func newSummarizeCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summarize FILE",
		Short: "Print a structured summary of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			text, err := extractFile(ctx, args[0])
			if err != nil {
				return err
			}
			summary := c.generator().GenerateSummary(ctx, text)

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(out, filepath.Base(args[0]), summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func extractFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	pdfquiz.VerboseLog("Read %d bytes from %s", len(data), path)
	return pdfquiz.ExtractText(ctx, data)
}

func printSummary(out io.Writer, documentName string, summary []pdfquiz.SummarySection) {
	fmt.Fprintf(out, "📄 Summary of %s\n\n", documentName)
	for _, section := range summary {
		fmt.Fprintf(out, "%s\n", section.Title)
		for _, point := range section.Points {
			fmt.Fprintf(out, "  • %s\n", point)
		}
		fmt.Fprintln(out)
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished quizzes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := c.requireArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			attempts, err := archive.ListAttempts(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(attempts) == 0 {
				fmt.Fprintln(out, "No finished quizzes yet.")
				return nil
			}
			for _, attempt := range attempts {
				fmt.Fprintf(out, "%s  %s  %d/%d (%d%%)  %s\n",
					attempt.ID, attempt.CreatedAt.Format("2006-01-02 15:04"),
					attempt.Correct, attempt.Total, attempt.Percentage, attempt.DocumentName)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of attempts to list (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Print the report of a finished quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := c.requireArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			attempt, err := archive.GetAttempt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), attempt.Report)
			return nil
		},
	})
	return cmd
}

func (c *cli) requireArchive() (*pdfquiz.Archive, error) {
	archive, err := c.openArchive()
	if err != nil {
		return nil, err
	}
	if archive == nil {
		return nil, errors.New("history is disabled: set archive.path in the config or ARCHIVE_PATH")
	}
	return archive, nil
}
