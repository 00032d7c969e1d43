package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitemapper/internal/model"
	"github.com/nao1215/sitemapper/internal/report"
	"github.com/nao1215/sitemapper/internal/scheduler"
)

// shutdownTimeout bounds how long cancelled crawls may take to clean up.
const shutdownTimeout = 30 * time.Second

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <domain>...",
		Short: "Crawl web sites and print their reports",
		Long: `Crawl maps each domain in the foreground and prints a report once every
crawl has finished.

Stored results are replaced. Pressing Ctrl-C cancels the running crawls
and removes their partial records.

Examples:
  # Crawl a single site
  sitemapper crawl example.com

  # Crawl several sites and write a Markdown report
  sitemapper crawl --markdown -o report.md example.com example.org

  # Crawl up to 50 pages per site
  sitemapper crawl -p 50 example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().IntP("desired-pages", "p", 0,
		"Number of pages to store per site (default: from configuration)")
	cmd.Flags().BoolP("quiet", "q", false, "Do not show the progress bar")
	reportFlags(cmd)

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if pages, _ := cmd.Flags().GetInt("desired-pages"); pages > 0 {
		cfg.DesiredPages = pages
		for domain, site := range cfg.Sites {
			site.DesiredPages = 0
			cfg.Sites[domain] = site
		}
		cfg.Defaults.DesiredPages = 0
	}

	domains := make([]string, 0, len(args))
	seen := make(map[string]struct{}, len(args))
	for _, arg := range args {
		domain, err := model.ParseDomain(arg)
		if err != nil {
			return err
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}
		domains = append(domains, domain)
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}
	progress := newCrawlProgress(domains, quiet)

	a, err := newApp(cfg, withSnapshotHandler(progress.update))
	if err != nil {
		return err
	}

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	crawlErr := crawlDomains(ctx, a, domains)
	progress.finish()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	closeErr := a.engine.Close(shutdownCtx)

	if crawlErr == nil && ctx.Err() != nil {
		crawlErr = fmt.Errorf("crawl interrupted: %w", ctx.Err())
	}
	if crawlErr != nil {
		a.closeStorage()
		return errors.Join(crawlErr, closeErr)
	}

	err = withReportWriter(cmd, func(w report.Writer) error {
		for _, domain := range domains {
			site, err := a.loadSite(context.Background(), domain)
			if err != nil {
				return err
			}
			if _, err := w.Write(site); err != nil {
				return err
			}
		}
		return nil
	})
	a.closeStorage()
	return errors.Join(err, closeErr)
}

// crawlDomains runs one crawl per domain, at most MaxCapacity at a time,
// and waits for all of them.
func crawlDomains(ctx context.Context, a *app, domains []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxCapacity)

	for _, domain := range domains {
		g.Go(func() error {
			return crawlOne(ctx, a, domain)
		})
	}
	return g.Wait()
}

// crawlOne starts a crawl of domain and waits until it exits. When ctx is
// cancelled the crawl is cancelled too.
func crawlOne(ctx context.Context, a *app, domain string) error {
	for {
		started, err := a.engine.ProcessSite(ctx, domain)
		if errors.Is(err, scheduler.ErrNoCapacity) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
				continue
			}
		}
		if err != nil {
			return fmt.Errorf("failed to start crawl of %s: %w", domain, err)
		}
		if !started {
			a.logger.Info("crawl already running, waiting for it", "domain", domain)
		}
		break
	}

	done := a.sched.Done(domain)
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		a.sched.Cancel(domain)
		<-done
		return nil
	}
}

// crawlProgress renders the aggregated progress of all crawls as a single
// bar. Snapshots arrive from several crawls concurrently.
type crawlProgress struct {
	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	progress map[string]int
}

func newCrawlProgress(domains []string, quiet bool) *crawlProgress {
	p := &crawlProgress{progress: make(map[string]int, len(domains))}
	if quiet {
		return p
	}
	p.bar = progressbar.NewOptions(len(domains)*100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(fmt.Sprintf("crawling %d site(s)", len(domains))),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return p
}

// update is the crawler snapshot handler.
func (p *crawlProgress) update(info model.SiteInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	progress := info.Progress
	if info.Status != model.SiteProcessing {
		progress = 100
	}
	p.progress[info.Domain] = progress
	if p.bar == nil {
		return
	}

	total := 0
	for _, v := range p.progress {
		total += v
	}
	p.bar.Describe(fmt.Sprintf("%s: %d page(s)", info.Domain, info.PageCount))
	_ = p.bar.Set(total)
}

func (p *crawlProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
