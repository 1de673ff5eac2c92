package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kadcrawl/kadcrawl/internal/config"
	"github.com/kadcrawl/kadcrawl/internal/database"
	"github.com/kadcrawl/kadcrawl/internal/model"
)

// newDiffCmd builds the diff subcommand.
func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <case-number>",
		Short: "Compare the two most recent snapshots of a case",
		Long: `Diff compares the case structure recorded by the last two crawl runs:
per-instance and per-tab fingerprints plus the total document count.
A changed fingerprint means new documents appeared at the head of that
instance or tab since the previous run.`,
		Args: cobra.ExactArgs(1),
		RunE: runDiff,
	}
	cmd.Flags().String("db-dir", config.XDGDataDir(), "history database directory")
	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
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

	snaps, err := archive.LatestSnapshots(cmd.Context(), caseNumber, 2)
	if err != nil {
		return err
	}
	if len(snaps) < 2 {
		fmt.Fprintf(cmd.OutOrStdout(), "only one snapshot recorded for %s, nothing to compare\n", caseNumber)
		return nil
	}

	d := database.DiffSnapshots(snaps[1], snaps[0])
	out := cmd.OutOrStdout()
	if !d.Changed() {
		fmt.Fprintf(out, "%s: no structural changes between runs %s and %s\n",
			caseNumber, d.Older, d.Newer)
		return nil
	}

	fmt.Fprintf(out, "%s: changes between runs %s and %s\n", caseNumber, d.Older, d.Newer)
	if d.DocumentDelta != 0 {
		fmt.Fprintf(out, "  documents: %+d\n", d.DocumentDelta)
	}
	for _, k := range d.ChangedKeys {
		fmt.Fprintf(out, "  changed: %s\n", k)
	}
	for _, k := range d.AddedKeys {
		fmt.Fprintf(out, "  added: %s\n", k)
	}
	for _, k := range d.RemovedKeys {
		fmt.Fprintf(out, "  removed: %s\n", k)
	}
	return nil
}
