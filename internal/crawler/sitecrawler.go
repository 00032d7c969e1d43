package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/sitemapper/internal/model"
	"github.com/nao1215/sitemapper/internal/repository"
	"github.com/nao1215/sitemapper/internal/robots"
)

// Defaults applied by New.
const (
	DefaultDesiredPages                  = 220
	DefaultMaxSimultaneousRequests       = 20
	DefaultCrawlDelay                    = 100 * time.Millisecond
	DefaultMaxRobotsDelay                = 10 * time.Second
	DefaultPageTimeout                   = 40 * time.Second
	DefaultRobotsTimeout                 = 30 * time.Second
	DefaultMaxBodySize             int64 = 5 * 1024 * 1024
	DefaultUserAgent                     = "Mozilla/5.0 (compatible; SiteMapper/1.0; +https://github.com/nao1215/sitemapper)"
	DefaultRobotsAgent                   = "SiteMapper"
)

// snapshotEvery is the number of processed pages between incremental
// snapshots.
const snapshotEvery = 20

// Status descriptions written to SiteInfo.StatusDescription.
const (
	descHomePageUnavailable = "Cannot get the home page of this site"
	descRobotsForbidden     = "Cannot process the site because of the robots.txt settings"
	descRedirectedFmt       = "Home page of this site is redirected to another domain (%s)"
	descPageErrorsFmt       = "Some pages of this site could not be processed (%d)"
)

// SnapshotHandler observes every SiteInfo the crawler has saved.
type SnapshotHandler func(info model.SiteInfo)

// SiteCrawler crawls one domain breadth-first and persists the resulting
// graph through a repository.Repository.
//
// A SiteCrawler holds configuration only; every Crawl call starts from an
// empty frontier, so one instance may be reused for later refreshes.
type SiteCrawler struct {
	domain string
	repo   repository.Repository

	// client fetches robots.txt and follows redirects.
	client *http.Client
	// pageClient is client with redirect following disabled.
	pageClient *http.Client

	desiredPages    int
	maxSimultaneous int
	crawlDelay      time.Duration
	maxRobotsDelay  time.Duration
	pageTimeout     time.Duration
	robotsTimeout   time.Duration
	maxBodySize     int64

	userAgent    string
	robotsAgent  string
	robotsPolicy robots.Policy

	ignorePatterns []string
	followPatterns []string
	filter         Filter

	logger     *slog.Logger
	onSnapshot SnapshotHandler
	now        func() time.Time
}

// Option configures a SiteCrawler.
type Option func(*SiteCrawler)

// WithHTTPClient sets the client used for all requests. Its redirect
// policy is kept for robots.txt and replaced for page fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(c *SiteCrawler) {
		c.client = client
	}
}

// WithDesiredPages sets the target number of persisted pages.
func WithDesiredPages(n int) Option {
	return func(c *SiteCrawler) {
		c.desiredPages = n
	}
}

// WithMaxSimultaneousRequests caps the number of in-flight page fetches.
func WithMaxSimultaneousRequests(n int) Option {
	return func(c *SiteCrawler) {
		c.maxSimultaneous = n
	}
}

// WithCrawlDelay sets the minimum interval between two page dispatches.
func WithCrawlDelay(d time.Duration) Option {
	return func(c *SiteCrawler) {
		c.crawlDelay = d
	}
}

// WithMaxRobotsDelay caps the Crawl-delay a robots.txt may impose.
func WithMaxRobotsDelay(d time.Duration) Option {
	return func(c *SiteCrawler) {
		c.maxRobotsDelay = d
	}
}

// WithPageTimeout sets the timeout of a single page fetch.
func WithPageTimeout(d time.Duration) Option {
	return func(c *SiteCrawler) {
		c.pageTimeout = d
	}
}

// WithRobotsTimeout sets the timeout of the robots.txt fetch.
func WithRobotsTimeout(d time.Duration) Option {
	return func(c *SiteCrawler) {
		c.robotsTimeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *SiteCrawler) {
		c.userAgent = ua
	}
}

// WithRobotsAgent sets the token matched against robots.txt groups.
func WithRobotsAgent(agent string) Option {
	return func(c *SiteCrawler) {
		c.robotsAgent = agent
	}
}

// WithRobotsPolicy selects how conflicting Allow/Disallow rules resolve.
func WithRobotsPolicy(p robots.Policy) Option {
	return func(c *SiteCrawler) {
		c.robotsPolicy = p
	}
}

// WithMaxBodySize limits how much of a response body is read.
func WithMaxBodySize(n int64) Option {
	return func(c *SiteCrawler) {
		c.maxBodySize = n
	}
}

// WithIgnorePatterns sets path globs that are never enqueued.
func WithIgnorePatterns(patterns []string) Option {
	return func(c *SiteCrawler) {
		c.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts enqueueing to paths matching one of the
// globs. The root page is always crawled.
func WithFollowPatterns(patterns []string) Option {
	return func(c *SiteCrawler) {
		c.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *SiteCrawler) {
		c.logger = logger
	}
}

// WithSnapshotHandler registers a callback run after every saved snapshot.
func WithSnapshotHandler(h SnapshotHandler) Option {
	return func(c *SiteCrawler) {
		c.onSnapshot = h
	}
}

// WithClock replaces time.Now for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *SiteCrawler) {
		c.now = now
	}
}

// New creates a crawler for domain. The domain is normalized and
// validated; an invalid one yields model.ErrInvalidDomain.
func New(domain string, repo repository.Repository, opts ...Option) (*SiteCrawler, error) {
	domain, err := model.ParseDomain(domain)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, ErrNilRepository
	}

	c := &SiteCrawler{
		domain:          domain,
		repo:            repo,
		desiredPages:    DefaultDesiredPages,
		maxSimultaneous: DefaultMaxSimultaneousRequests,
		crawlDelay:      DefaultCrawlDelay,
		maxRobotsDelay:  DefaultMaxRobotsDelay,
		pageTimeout:     DefaultPageTimeout,
		robotsTimeout:   DefaultRobotsTimeout,
		maxBodySize:     DefaultMaxBodySize,
		userAgent:       DefaultUserAgent,
		robotsAgent:     DefaultRobotsAgent,
		robotsPolicy:    robots.DefaultPolicy,
		logger:          slog.Default(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		c.client = &http.Client{}
	}
	pageClient := *c.client
	pageClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.pageClient = &pageClient

	if c.desiredPages < 1 {
		c.desiredPages = 1
	}
	if c.maxSimultaneous < 1 {
		c.maxSimultaneous = 1
	}
	if c.robotsAgent == "" {
		c.robotsAgent = DefaultRobotsAgent
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	c.filter = NewFilter(c.ignorePatterns, c.followPatterns)

	return c, nil
}

// Domain returns the normalized domain.
func (c *SiteCrawler) Domain() string {
	return c.domain
}

// rootURL is the first page of every crawl.
func (c *SiteCrawler) rootURL() string {
	return "http://" + c.domain + "/"
}

// Crawl runs one complete crawl.
//
// The flow is:
//  1. Save a Processing record so observers see the crawl start
//  2. Fetch robots.txt (failures mean no restrictions)
//  3. Dispatch pages shallowest first, throttled and bounded
//  4. Save a snapshot every few processed pages
//  5. Save the final record with the outcome status
//
// When ctx is cancelled the in-flight fetches are drained, the stored
// record is removed and ctx.Err() is returned. A non-nil error otherwise
// means the repository could not store the final record.
func (c *SiteCrawler) Crawl(ctx context.Context) error {
	r := &run{
		c:              c,
		logger:         c.logger.With("domain", c.domain, "run_id", uuid.NewString()),
		frontier:       NewFrontier(),
		refreshEnabled: true,
		wake:           make(chan struct{}, 1),
	}
	r.logger.Info("crawl started")

	if err := r.snapshot(ctx, model.SiteProcessing, ""); err != nil {
		if ctx.Err() != nil {
			return r.abort(ctx)
		}
		return err
	}

	if text, ok := c.fetchRobots(ctx); ok {
		r.robots = robots.Parse(text, robots.WithPolicy(c.robotsPolicy))
		if r.robots.Malformed() {
			r.logger.Debug("robots.txt is malformed, using the rules that parsed")
		}
	}
	if ctx.Err() != nil {
		return r.abort(ctx)
	}

	delay := c.effectiveDelay(r.robots)
	r.logger.Debug("dispatch delay", "delay", delay)

	r.frontier.Add(c.rootURL(), 0)
	r.loop(ctx, delay)

	if ctx.Err() != nil {
		return r.abort(ctx)
	}
	return r.finish(ctx)
}

// storedRefreshEnabled reads the refresh flag of the stored record, so a
// snapshot never undoes a change made while the crawl is running. It
// returns fallback when there is no record or it cannot be read.
func (c *SiteCrawler) storedRefreshEnabled(ctx context.Context, fallback bool) bool {
	stored, err := c.repo.GetSite(ctx, c.domain, false, 0)
	if err != nil {
		c.logger.Warn("failed to read stored site record", "domain", c.domain, "error", err)
		return fallback
	}
	if stored == nil {
		return fallback
	}
	return stored.Info.RefreshEnabled
}

// effectiveDelay raises the configured delay to the robots.txt
// Crawl-delay, which is itself capped at maxRobotsDelay.
func (c *SiteCrawler) effectiveDelay(rb *robots.Robots) time.Duration {
	delay := c.crawlDelay
	if rb == nil {
		return delay
	}
	if d, err := rb.CrawlDelay(c.robotsAgent); err == nil && d > 0 {
		delay = max(delay, min(d, c.maxRobotsDelay))
	}
	return delay
}

// run is the mutable state of one Crawl call. mu guards every field
// below it and is never held across network or repository I/O.
type run struct {
	c      *SiteCrawler
	logger *slog.Logger
	robots *robots.Robots
	wake   chan struct{}

	mu                sync.Mutex
	frontier          *Frontier
	refreshEnabled    bool // last flag read from the stored record
	processed         int
	inFlight          int
	lastSaved         int
	lastSnapshotAt    int
	pageErrors        int
	cannotProcessRoot bool
	connectionProblem bool
	robotsProblem     bool
	problem           string
}

// loop dispatches pages until the frontier is exhausted, the page budget
// is spent or ctx is cancelled, then waits for every dispatched worker.
func (r *run) loop(ctx context.Context, delay time.Duration) {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	var g errgroup.Group
	g.SetLimit(r.c.maxSimultaneous)

	for ctx.Err() == nil {
		r.mu.Lock()
		if r.budgetSpent() {
			r.mu.Unlock()
			break
		}
		ids := r.frontier.Next(r.c.maxSimultaneous - r.inFlight)
		r.inFlight += len(ids)
		idle := len(ids) == 0 && r.inFlight == 0
		r.mu.Unlock()

		if idle {
			break
		}

		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				r.release(ids[i:])
				break
			}
			g.Go(func() error {
				r.process(ctx, id)
				return nil
			})
		}

		if len(ids) == 0 {
			select {
			case <-r.wake:
			case <-ctx.Done():
			}
		}

		r.maybeSnapshot(ctx)
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors
}

// budgetSpent reports whether enough pages were saved or processed.
// Callers hold mu.
func (r *run) budgetSpent() bool {
	return r.lastSaved >= r.c.desiredPages || r.processed >= 2*r.c.desiredPages
}

// release returns claimed but undispatched pages to the frontier.
func (r *run) release(ids []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.frontier.Release(id)
	}
	r.inFlight -= len(ids)
}

func (r *run) workerDone() {
	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// process handles one claimed page.
func (r *run) process(ctx context.Context, id int) {
	defer r.workerDone()

	r.mu.Lock()
	page := r.frontier.Page(id)
	pageURL := page.URL
	r.processed++
	over := r.processed > 2*r.c.desiredPages
	if over {
		r.frontier.Release(id)
	}
	r.mu.Unlock()

	if over || ctx.Err() != nil {
		return
	}

	isRoot := id == 0
	u, err := url.Parse(pageURL)
	if err != nil {
		r.apply(id, isRoot, fetchResult{outcome: outcomeParseError, err: err})
		return
	}

	if r.robots != nil {
		allowed, err := r.robots.IsPathAllowed(r.c.robotsAgent, u.EscapedPath())
		if err == nil && !allowed {
			r.disallow(id, isRoot)
			return
		}
	}

	res := r.c.fetchPage(ctx, pageURL)
	if ctx.Err() != nil {
		// The partial graph is discarded on cancellation.
		return
	}
	if res.err != nil {
		r.logger.Debug("page failed", "url", pageURL, "status", res.httpStatus, "error", res.err)
	}
	r.apply(id, isRoot, res)
}

// disallow records a page rejected by robots.txt.
func (r *run) disallow(id int, isRoot bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frontier.Page(id).Status = model.PageRobotsDisallowed
	pagesTotal.WithLabelValues(model.PageRobotsDisallowed.String()).Inc()
	if isRoot {
		r.robotsProblem = true
		r.rootFailed(descRobotsForbidden)
	}
}

// apply stores a fetch result in the frontier and enqueues its links.
func (r *run) apply(id int, isRoot bool, res fetchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	page := r.frontier.Page(id)
	page.HTTPStatus = res.httpStatus

	switch res.outcome {
	case outcomeTransportError:
		page.Status = model.PageError
		if isRoot {
			r.connectionProblem = true
			r.rootFailed(descHomePageUnavailable)
		} else {
			r.pageErrors++
		}

	case outcomeHTTPError, outcomeParseError:
		page.Status = model.PageError
		if isRoot {
			r.rootFailed(descHomePageUnavailable)
		} else {
			r.pageErrors++
		}

	case outcomeBinary:
		page.Status = model.PageBinary
		if isRoot {
			r.rootFailed(descHomePageUnavailable)
		}

	case outcomeRedirect:
		page.Status = model.PageProcessed
		if isRoot && len(res.links) > 0 && !r.internal(res.links[0]) {
			r.rootFailed(fmt.Sprintf(descRedirectedFmt, res.links[0]))
		}
		r.addLinks(id, res.links)

	case outcomeHTML:
		page.Status = model.PageProcessed
		page.Title = res.title
		r.addLinks(id, res.links)
	}

	pagesTotal.WithLabelValues(page.Status.String()).Inc()
}

// rootFailed marks the crawl as unable to process its home page. Callers
// hold mu.
func (r *run) rootFailed(description string) {
	r.cannotProcessRoot = true
	r.problem = description
}

// internal reports whether link belongs to the crawled site.
func (r *run) internal(link string) bool {
	u, err := url.Parse(link)
	return err == nil && model.SameSite(u.Host, r.c.domain)
}

// addLinks adds the site-internal links of page from to the frontier.
// Callers hold mu.
func (r *run) addLinks(from int, links []string) {
	distance := r.frontier.Page(from).DistanceFromRoot + 1
	for _, link := range links {
		if to, ok := r.frontier.Lookup(link); ok {
			r.frontier.Add(link, distance)
			r.frontier.AddLink(from, to)
			continue
		}
		u, err := url.Parse(link)
		if err != nil || !model.SameSite(u.Host, r.c.domain) {
			continue
		}
		if isBinaryPath(u.Path) || !r.c.filter.Allows(u.Path) {
			continue
		}
		to, _ := r.frontier.Add(link, distance)
		r.frontier.AddLink(from, to)
	}
}

// maybeSnapshot writes an incremental snapshot every snapshotEvery
// processed pages. Failures are logged; the crawl goes on.
func (r *run) maybeSnapshot(ctx context.Context) {
	r.mu.Lock()
	due := r.processed >= r.lastSnapshotAt+snapshotEvery
	if due {
		r.lastSnapshotAt = r.processed
	}
	r.mu.Unlock()

	if !due || ctx.Err() != nil {
		return
	}
	if err := r.snapshot(ctx, model.SiteProcessing, ""); err != nil {
		r.logger.Warn("failed to save snapshot", "error", err)
	}
}

// snapshot consolidates the frontier and saves it with the given status.
func (r *run) snapshot(ctx context.Context, status model.SiteStatus, description string) error {
	r.mu.Lock()
	pages, links := r.frontier.Snapshot()
	infoOnly := r.cannotProcessRoot
	fallback := r.refreshEnabled
	r.mu.Unlock()

	refreshEnabled := r.c.storedRefreshEnabled(ctx, fallback)
	r.mu.Lock()
	r.refreshEnabled = refreshEnabled
	r.mu.Unlock()

	site := &model.Site{
		Info: model.SiteInfo{
			Domain:            r.c.domain,
			Progress:          100,
			Status:            status,
			StatusDescription: description,
			StatusTime:        r.c.now(),
			RefreshEnabled:    refreshEnabled,
		},
	}
	if !infoOnly {
		contents := Consolidate(r.c.domain, pages, links)
		site.Contents = &contents
		site.Info.PageCount = len(contents.Pages)
		site.Info.LinkCount = len(contents.Links)
	}
	// Progress counts merged pages, so www duplicates do not inflate it.
	if status == model.SiteProcessing {
		site.Info.Progress = min(99, site.Info.PageCount*100/r.c.desiredPages)
	}

	if err := r.c.repo.SaveSite(ctx, site, true); err != nil {
		snapshotsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to save site %s: %w", r.c.domain, err)
	}
	snapshotsTotal.WithLabelValues("ok").Inc()

	if !infoOnly {
		r.mu.Lock()
		r.lastSaved = site.Info.PageCount
		r.mu.Unlock()
	}
	if r.c.onSnapshot != nil {
		r.c.onSnapshot(site.Info)
	}
	return nil
}

// finish saves the final record.
func (r *run) finish(ctx context.Context) error {
	r.mu.Lock()
	status, description := r.outcome()
	r.mu.Unlock()

	if err := r.snapshot(ctx, status, description); err != nil {
		if ctx.Err() != nil {
			return r.abort(ctx)
		}
		return err
	}
	crawlsTotal.WithLabelValues(status.String()).Inc()

	r.mu.Lock()
	processed, saved, discovered := r.processed, r.lastSaved, r.frontier.Len()
	r.mu.Unlock()
	r.logger.Info("crawl finished",
		"status", status.String(),
		"discovered", discovered,
		"processed", processed,
		"saved_pages", saved,
	)
	return nil
}

// outcome picks the final status: robots.txt problems win over connection
// problems, which win over partial failures. Callers hold mu.
func (r *run) outcome() (model.SiteStatus, string) {
	switch {
	case r.robotsProblem:
		return model.SiteRobotsTxtProblem, r.problem
	case r.connectionProblem:
		return model.SiteConnectionProblem, r.problem
	case r.problem != "":
		return model.SiteProcessedWithProblems, r.problem
	case r.pageErrors > 0:
		return model.SiteProcessedWithProblems, fmt.Sprintf(descPageErrorsFmt, r.pageErrors)
	default:
		return model.SiteProcessed, ""
	}
}

// abort removes the partial record of a cancelled crawl.
func (r *run) abort(ctx context.Context) error {
	err := r.c.repo.RemoveSite(context.WithoutCancel(ctx), r.c.domain)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		r.logger.Warn("failed to remove cancelled site", "error", err)
	}
	crawlsTotal.WithLabelValues("canceled").Inc()
	r.logger.Info("crawl cancelled")
	return ctx.Err()
}
