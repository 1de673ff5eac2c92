package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kadcrawl/kadcrawl/internal/config"
	"github.com/kadcrawl/kadcrawl/internal/database"
	"github.com/kadcrawl/kadcrawl/internal/model"
)

// newHistoryCmd builds the history subcommand.
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <case-number>",
		Short: "List recorded crawl runs for a case",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().String("db-dir", config.XDGDataDir(), "history database directory")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	caseNumber, err := model.ParseCaseNumber(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q", err, args[0])
	}

	dbDir, _ := cmd.Flags().GetString("db-dir")
	archive, err := database.Open(dbDir)
	if err != nil {
		return err
	}
	defer archive.Close()

	runs, err := archive.History(cmd.Context(), caseNumber)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no recorded runs for %s\n", caseNumber)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tFETCHED\tSKIPPED\tRUN")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.Status, r.Fetched, r.Skipped, r.ID)
	}
	return w.Flush()
}
