package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webscrape/internal/config"
	"github.com/nao1215/webscrape/internal/database"
	"github.com/nao1215/webscrape/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List previous scrape runs",
		Long: `History lists the runs recorded in the local history database.

With a run id (or a unique prefix of one) the summary of that run is
printed as Markdown, including its downloaded files and error lines.

Examples:
  # The ten most recent runs
  webscrape history

  # Details of one run
  webscrape history 3f2a9c`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", 10, "Number of runs to list (0 for all)")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the run history database")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return fmt.Errorf("no run history yet: %w", err)
	}
	defer db.Close()

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := db.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = report.NewMarkdownWriter(out).WriteSummary(run)
		return err
	}

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSEED\tPAGES\tFAILED\tFILES\tSTATUS")
	for _, r := range runs {
		status := "completed"
		if r.Cancelled {
			status = "cancelled"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID[:min(8, len(r.ID))],
			r.StartedAt.Local().Format(time.DateTime),
			r.Seed, r.Pages, r.Failed, r.Files, status)
	}
	return tw.Flush()
}
