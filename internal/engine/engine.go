package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitemapper/internal/model"
	"github.com/nao1215/sitemapper/internal/repository"
	"github.com/nao1215/sitemapper/internal/scheduler"
)

// Scheduler is the part of *scheduler.Scheduler the engine depends on.
type Scheduler interface {
	Start(domain string) (bool, error)
	Cancel(domain string) bool
	Running(domain string) bool
	Done(domain string) <-chan struct{}
	RemainingCapacity() int
	Shutdown(ctx context.Context) error
}

// Engine coordinates the repository and the scheduler.
type Engine struct {
	repo   repository.Repository
	sched  Scheduler
	policy RefreshPolicy
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRefreshPolicy replaces DefaultRefreshPolicy.
func WithRefreshPolicy(p RefreshPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock replaces time.Now for refresh decisions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine.
func New(repo repository.Repository, sched Scheduler, opts ...Option) (*Engine, error) {
	if repo == nil {
		return nil, ErrNilRepository
	}
	if sched == nil {
		return nil, ErrNilScheduler
	}

	e := &Engine{
		repo:   repo,
		sched:  sched,
		policy: DefaultRefreshPolicy(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the refresh policy in use.
func (e *Engine) Policy() RefreshPolicy {
	return e.policy
}

// GetSite returns the stored site of domain and starts a crawl when the
// record is stale.
//
// When no record exists and create is true, an Added record is stored
// and a crawl is started for it. When no record exists and create is
// false, GetSite returns nil without error. Contents are loaded as by
// repository.Repository.GetSite.
func (e *Engine) GetSite(ctx context.Context, domain string, includeContents bool, contentsTimestamp int64, create bool) (*model.Site, error) {
	domain, err := model.ParseDomain(domain)
	if err != nil {
		return nil, err
	}

	site, err := e.repo.GetSite(ctx, domain, includeContents, contentsTimestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to get site %s: %w", domain, err)
	}

	if site == nil {
		if !create {
			return nil, nil
		}
		site, err = e.create(ctx, domain, includeContents, contentsTimestamp)
		if err != nil {
			return nil, err
		}
		if site.Info.Status == model.SiteAdded {
			e.start(domain)
		}
		return site, nil
	}

	if e.policy.NeedsCrawl(&site.Info, e.now()) {
		e.start(domain)
	}
	return site, nil
}

// create stores a new Added record. A concurrent creator winning the race
// is not an error; its record is returned instead.
func (e *Engine) create(ctx context.Context, domain string, includeContents bool, contentsTimestamp int64) (*model.Site, error) {
	site := &model.Site{Info: *model.NewSiteInfo(domain, e.now())}
	err := e.repo.SaveSite(ctx, site, false)
	switch {
	case err == nil:
		e.logger.Info("site added", "domain", domain)
		return site, nil
	case errors.Is(err, repository.ErrSiteExists):
		existing, err := e.repo.GetSite(ctx, domain, includeContents, contentsTimestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to get site %s: %w", domain, err)
		}
		if existing == nil {
			return site, nil
		}
		return existing, nil
	default:
		return nil, fmt.Errorf("failed to add site %s: %w", domain, err)
	}
}

// start asks the scheduler for a crawl and logs why it did not happen.
func (e *Engine) start(domain string) bool {
	started, err := e.sched.Start(domain)
	switch {
	case err == nil:
		if started {
			e.logger.Debug("crawl started", "domain", domain)
		}
		return started
	case errors.Is(err, scheduler.ErrNoCapacity):
		e.logger.Debug("no capacity for crawl, will retry on next refresh", "domain", domain)
	default:
		e.logger.Warn("failed to start crawl", "domain", domain, "error", err)
	}
	return false
}

// ProcessSite starts a crawl of domain regardless of the refresh policy.
// It reports false without error when a crawl is already running.
func (e *Engine) ProcessSite(_ context.Context, domain string) (bool, error) {
	domain, err := model.ParseDomain(domain)
	if err != nil {
		return false, err
	}
	return e.sched.Start(domain)
}

// DeleteSite cancels a running crawl of domain, waits for it to exit and
// removes the stored record. It returns repository.ErrNotFound when the
// domain was neither crawling nor stored.
func (e *Engine) DeleteSite(ctx context.Context, domain string) error {
	domain, err := model.ParseDomain(domain)
	if err != nil {
		return err
	}

	done := e.sched.Done(domain)
	wasRunning := e.sched.Cancel(domain)
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("waiting for crawl of %s to stop: %w", domain, ctx.Err())
		}
	}

	err = e.repo.RemoveSite(ctx, domain)
	if errors.Is(err, repository.ErrNotFound) && wasRunning {
		// The cancelled crawl already removed its partial record.
		err = nil
	}
	if err != nil {
		return err
	}
	e.logger.Info("site deleted", "domain", domain)
	return nil
}

// GetDomains returns every stored domain in sorted order.
func (e *Engine) GetDomains(ctx context.Context) ([]string, error) {
	return e.repo.GetDomains(ctx)
}

// GetSites returns the status record of every stored domain.
func (e *Engine) GetSites(ctx context.Context) ([]*model.SiteInfo, error) {
	return e.repo.GetSites(ctx)
}

// SetRefreshEnabled toggles periodic refresh of domain.
func (e *Engine) SetRefreshEnabled(ctx context.Context, domain string, enabled bool) error {
	domain, err := model.ParseDomain(domain)
	if err != nil {
		return err
	}
	return e.repo.UpdateRefreshEnabled(ctx, domain, enabled)
}

// RemainingCapacity returns how many more crawls may start.
func (e *Engine) RemainingCapacity() int {
	return e.sched.RemainingCapacity()
}

// Refresh starts crawls for every stored site that needs one, stopping
// quietly when the scheduler runs out of capacity. It returns the number
// of crawls started.
func (e *Engine) Refresh(ctx context.Context) (int, error) {
	sites, err := e.repo.GetSites(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sites: %w", err)
	}

	now := e.now()
	started := 0
	for _, info := range sites {
		if ctx.Err() != nil {
			return started, ctx.Err()
		}
		if e.sched.RemainingCapacity() == 0 {
			break
		}
		if e.sched.Running(info.Domain) || !e.policy.NeedsCrawl(info, now) {
			continue
		}
		ok, err := e.sched.Start(info.Domain)
		if errors.Is(err, scheduler.ErrNoCapacity) {
			break
		}
		if err != nil {
			return started, err
		}
		if ok {
			started++
		}
	}

	if started > 0 {
		e.logger.Info("refresh sweep started crawls", "started", started)
	}
	return started, nil
}

// Run sweeps stored sites every interval until ctx is done. The first
// sweep happens immediately.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := e.Refresh(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("refresh sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Close shuts the scheduler down and waits for running crawls to exit.
func (e *Engine) Close(ctx context.Context) error {
	return e.sched.Shutdown(ctx)
}
