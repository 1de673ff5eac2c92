package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kadcrawl/kadcrawl/internal/browser"
	"github.com/kadcrawl/kadcrawl/internal/model"
	"github.com/kadcrawl/kadcrawl/internal/navigate"
	"github.com/kadcrawl/kadcrawl/internal/ratelimit"
)

// Exit codes. Scripts drive the crawler, so each failure class gets a
// distinct code; in particular a rate-limit pause (3) is resumable and
// scripted callers retry it later, unlike a challenge failure (2).
const (
	exitOK              = 0
	exitInvalidCase     = 1
	exitChallengeFailed = 2
	exitRateLimited     = 3
	exitNotFound        = 4
	exitFatal           = 5
)

// execute runs the CLI and returns the process exit code.
func execute(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kadcrawl: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps an error to its failure class.
func exitCode(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidCaseNumber):
		return exitInvalidCase
	case errors.Is(err, browser.ErrChallengeFailed):
		return exitChallengeFailed
	case errors.Is(err, ratelimit.ErrRateLimited):
		return exitRateLimited
	case errors.Is(err, navigate.ErrNotFound), errors.Is(err, navigate.ErrAmbiguousResult):
		return exitNotFound
	default:
		return exitFatal
	}
}

// newRootCmd builds the root command and its subcommands.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kadcrawl",
		Short: "Crawler for the arbitration case archive",
		Long: `kadcrawl collects the full document set of an arbitration court case:
it searches the archive for the case, walks every tab of its record
card, downloads each unique document once, extracts the text, and
writes a per-case output directory that can be resumed and re-crawled
incrementally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}
