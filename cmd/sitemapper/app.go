package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemapper/internal/config"
	"github.com/nao1215/sitemapper/internal/crawler"
	"github.com/nao1215/sitemapper/internal/engine"
	"github.com/nao1215/sitemapper/internal/log"
	"github.com/nao1215/sitemapper/internal/model"
	"github.com/nao1215/sitemapper/internal/report"
	"github.com/nao1215/sitemapper/internal/repository"
	"github.com/nao1215/sitemapper/internal/scheduler"
	"github.com/nao1215/sitemapper/internal/transport"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	repo      repository.Repository
	client    *http.Client
	sched     *scheduler.Scheduler
	engine    *engine.Engine

	// onSnapshot, when set, observes every snapshot of every crawl.
	onSnapshot crawler.SnapshotHandler
}

// appOption configures newApp.
type appOption func(*app)

// withSnapshotHandler forwards crawler snapshots to h.
func withSnapshotHandler(h crawler.SnapshotHandler) appOption {
	return func(a *app) {
		a.onSnapshot = h
	}
}

// getFlagString reads a string flag from the command or the root's
// persistent flags.
func getFlagString(cmd *cobra.Command, name string) (string, bool) {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		flag = cmd.Root().PersistentFlags().Lookup(name)
	}
	if flag == nil {
		return "", false
	}
	return flag.Value.String(), flag.Changed
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig loads the configuration file and applies the global flags.
// If the user explicitly specified a config file path, it must exist.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := getFlagString(cmd, "config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if v, changed := getFlagString(cmd, "data-dir"); changed {
		cfg.DataDir = v
	}
	if v, changed := getFlagString(cmd, "storage"); changed {
		cfg.Storage = v
	}
	if v, changed := getFlagString(cmd, "log-format"); changed {
		cfg.LogFormat = v
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// newApp builds the logger, repository, HTTP client, scheduler and engine
// from cfg. The caller must call close.
func newApp(cfg *config.Config, opts ...appOption) (*app, error) {
	a := &app{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}

	logger, logCloser, err := log.NewLogger(log.Options{
		Verbose:    cfg.Verbose,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		return nil, err
	}
	a.logger, a.logCloser = logger, logCloser
	slog.SetDefault(logger)

	a.repo, err = repository.Open(cfg.Storage, cfg.ResolvedDataDir())
	if err != nil {
		_ = a.logCloser.Close()
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}
	logger.Debug("storage opened", "storage", cfg.Storage, "dir", cfg.ResolvedDataDir())

	a.client, err = transport.NewClient(clientOptions(cfg))
	if err != nil {
		a.closeStorage()
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	a.sched, err = scheduler.New(a.crawl,
		scheduler.WithMaxCapacity(cfg.MaxCapacity),
		scheduler.WithLogger(logger),
	)
	if err != nil {
		a.closeStorage()
		return nil, err
	}

	a.engine, err = engine.New(a.repo, a.sched,
		engine.WithRefreshPolicy(engine.RefreshPolicy{
			RefreshPeriod: cfg.RefreshPeriod,
			ProblemRetry:  cfg.ProblemRetry,
			StuckRetry:    cfg.StuckRetry,
		}),
		engine.WithLogger(logger),
	)
	if err != nil {
		a.closeStorage()
		return nil, err
	}

	return a, nil
}

// clientOptions derives the HTTP client settings from cfg. Idle
// connections per host never drop below the transport default.
func clientOptions(cfg *config.Config) transport.Options {
	opts := transport.DefaultOptions()
	opts.Timeout = max(cfg.PageTimeout, cfg.RobotsTimeout)
	opts.ProxyAddress = cfg.ProxyAddress
	opts.DNSCacheSize = cfg.DNSCacheSize
	opts.MaxIdleConnsPerHost = max(opts.MaxIdleConnsPerHost, cfg.MaxSimultaneousRequests)
	return opts
}

// crawl is the scheduler's CrawlFunc: one SiteCrawler per run, configured
// from the global settings and the site's entry in the config file.
func (a *app) crawl(ctx context.Context, domain string) error {
	policy, err := a.cfg.Policy()
	if err != nil {
		return err
	}
	site := a.cfg.SiteConfig(domain)

	opts := []crawler.Option{
		crawler.WithHTTPClient(a.client),
		crawler.WithDesiredPages(site.DesiredPages),
		crawler.WithMaxSimultaneousRequests(a.cfg.MaxSimultaneousRequests),
		crawler.WithCrawlDelay(a.cfg.CrawlDelay),
		crawler.WithMaxRobotsDelay(a.cfg.MaxRobotsDelay),
		crawler.WithPageTimeout(a.cfg.PageTimeout),
		crawler.WithRobotsTimeout(a.cfg.RobotsTimeout),
		crawler.WithMaxBodySize(a.cfg.MaxBodySize),
		crawler.WithUserAgent(a.cfg.UserAgent),
		crawler.WithRobotsAgent(a.cfg.RobotsAgent),
		crawler.WithRobotsPolicy(policy),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithLogger(a.logger),
	}
	if a.onSnapshot != nil {
		opts = append(opts, crawler.WithSnapshotHandler(a.onSnapshot))
	}

	c, err := crawler.New(domain, a.repo, opts...)
	if err != nil {
		return err
	}
	return c.Crawl(ctx)
}

// close cancels running crawls, waits for them within ctx and releases
// the storage and the log file.
func (a *app) close(ctx context.Context) error {
	err := a.engine.Close(ctx)
	a.closeStorage()
	return err
}

func (a *app) closeStorage() {
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("failed to close storage", "error", err)
	}
	_ = a.logCloser.Close()
}

// reportFlags registers the report format and output flags.
func reportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("tee", false,
		"With --output, also print the text report to stdout")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
}

// withReportWriter opens the report destination selected by the report
// flags and passes a writer of the selected format to fn.
func withReportWriter(cmd *cobra.Command, fn func(report.Writer) error) error {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	tee, err := cmd.Flags().GetBool("tee")
	if err != nil {
		return err
	}

	var output io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(outputPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	verbose := getVerboseFlag(cmd)
	var w report.Writer
	switch {
	case jsonOut:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case markdownOut:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(verbose))
	}
	if tee && outputPath != "" {
		w = report.NewMultiWriter(w, report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(verbose)))
	}
	return fn(w)
}

// loadSite reads the stored site of domain with its contents.
func (a *app) loadSite(ctx context.Context, domain string) (*model.Site, error) {
	domain, err := model.ParseDomain(domain)
	if err != nil {
		return nil, err
	}
	site, err := a.repo.GetSite(ctx, domain, true, 0)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, domain)
	}
	return site, nil
}
