package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kadcrawl/kadcrawl/internal/browser"
	"github.com/kadcrawl/kadcrawl/internal/config"
	"github.com/kadcrawl/kadcrawl/internal/crawl"
	"github.com/kadcrawl/kadcrawl/internal/database"
	"github.com/kadcrawl/kadcrawl/internal/log"
	"github.com/kadcrawl/kadcrawl/internal/model"
	"github.com/kadcrawl/kadcrawl/internal/navigate"
	"github.com/kadcrawl/kadcrawl/internal/output"
	"github.com/kadcrawl/kadcrawl/internal/progress"
)

// newCrawlCmd builds the crawl subcommand.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <case-number>",
		Short: "Crawl one case end to end",
		Long: `Crawl searches the archive for the case number, opens its record
card, collects document references from every tab, and downloads each
unique document. Interrupted crawls resume from the checkpoint in the
case output directory.`,
		Example: `  kadcrawl crawl А60-21280/2023
  kadcrawl crawl A40-12345/2024 --output ./cases --concurrency 1
  kadcrawl crawl А60-21280/2023 --resume=false`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawl,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutputRoot, "output root directory")
	cmd.Flags().Bool("resume", true, "resume from an existing checkpoint")
	cmd.Flags().Bool("headless", true, "run the browser headless")
	cmd.Flags().Duration("browser-timeout", config.DefaultChallengeTimeout, "challenge handshake timeout")
	cmd.Flags().Duration("fetch-timeout", config.DefaultFetchTimeout, "per-document capture timeout")
	cmd.Flags().Int("max-retries", config.DefaultMaxFetchRetries, "per-document retry budget")
	cmd.Flags().Int("concurrency", config.DefaultFetchConcurrency, "parallel document fetches")
	cmd.Flags().StringP("config", "c", "", "configuration file path")
	cmd.Flags().Bool("no-archive", false, "skip recording the run in the history database")
	return cmd
}

// runCrawl wires the crawl from flags and runs it.
func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	caseNumber, err := model.ParseCaseNumber(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q", err, args[0])
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := log.NewLogger(os.Stderr, level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := browser.NewSession(cfg, logger)
	engine := navigate.NewEngine(session, cfg, logger,
		navigate.WithPageDelay(crawl.PageDelayFunc(cfg)))
	writer := output.NewWriter(cfg.OutputRoot, caseNumber)
	store := progress.NewStore(writer.Dir())

	opts := []crawl.Option{}
	noArchive, _ := cmd.Flags().GetBool("no-archive")
	if !noArchive && cfg.DBDir != "" {
		archive, err := database.Open(cfg.DBDir)
		if err != nil {
			logger.Warn("history database unavailable", slog.String("error", err.Error()))
		} else {
			defer archive.Close()
			opts = append(opts, crawl.WithArchive(archive))
		}
	}

	o := crawl.NewOrchestrator(cfg, logger, session, engine, writer, store, opts...)
	start := time.Now()
	if err := o.Run(ctx, caseNumber); err != nil {
		return err
	}
	logger.Info("done",
		slog.String("case", caseNumber),
		slog.String("output", writer.Dir()),
		slog.Duration("elapsed", time.Since(start).Round(time.Second)))
	return nil
}

// buildConfig layers configuration: defaults, then the YAML file, then
// explicitly set flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.New()

	explicit, _ := cmd.Flags().GetString("config")
	if path := config.FindConfigFile(explicit); path != "" {
		cf, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
		cf.Apply(cfg)
	} else if explicit != "" {
		return nil, fmt.Errorf("load config file %s: %w", explicit, config.ErrConfigNotFound)
	}

	flags := cmd.Flags()
	cfg.OutputRoot, _ = flags.GetString("output")
	cfg.Resume, _ = flags.GetBool("resume")
	cfg.Headless, _ = flags.GetBool("headless")
	cfg.Verbose, _ = cmd.Root().PersistentFlags().GetBool("verbose")
	// Flags shared with the YAML file only override when set, so a file
	// value is not clobbered by a flag default.
	if flags.Changed("browser-timeout") {
		cfg.ChallengeTimeout, _ = flags.GetDuration("browser-timeout")
	}
	if flags.Changed("fetch-timeout") {
		cfg.FetchTimeout, _ = flags.GetDuration("fetch-timeout")
	}
	if flags.Changed("max-retries") {
		cfg.MaxFetchRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("concurrency") {
		cfg.FetchConcurrency, _ = flags.GetInt("concurrency")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
