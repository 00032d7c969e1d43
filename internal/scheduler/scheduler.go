package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
)

// Capacity bounds.
const (
	DefaultMaxCapacity = 10
	MinCapacity        = 1
	MaxCapacityLimit   = 10000
)

// CrawlFunc crawls one domain until it finishes or ctx is cancelled.
type CrawlFunc func(ctx context.Context, domain string) error

// task is one running crawl.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler tracks one cancellable crawl per domain under a capacity
// ceiling.
//
// Start never queues. A caller that hits the ceiling gets ErrNoCapacity
// and retries later itself; the engine's refresh sweep does.
type Scheduler struct {
	crawl  CrawlFunc
	logger *slog.Logger

	// base is the parent of every task context; shutdown cancels it.
	base     context.Context
	shutdown context.CancelFunc

	mu          sync.Mutex
	tasks       map[string]*task
	maxCapacity int
	closed      bool
	wg          sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxCapacity sets the maximum number of concurrent crawls.
// New rejects values outside MinCapacity..MaxCapacityLimit.
func WithMaxCapacity(n int) Option {
	return func(s *Scheduler) {
		s.maxCapacity = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a scheduler that runs crawl for every started domain.
func New(crawl CrawlFunc, opts ...Option) (*Scheduler, error) {
	if crawl == nil {
		return nil, ErrNilCrawlFunc
	}

	s := &Scheduler{
		crawl:       crawl,
		logger:      slog.Default(),
		tasks:       make(map[string]*task),
		maxCapacity: DefaultMaxCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := validateCapacity(s.maxCapacity); err != nil {
		return nil, err
	}

	s.base, s.shutdown = context.WithCancel(context.Background())
	return s, nil
}

func validateCapacity(n int) error {
	if n < MinCapacity || n > MaxCapacityLimit {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidCapacity, n, MinCapacity, MaxCapacityLimit)
	}
	return nil
}

// Start launches a crawl of domain in the background. It reports false
// without error when a crawl of domain is already running.
func (s *Scheduler) Start(domain string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	if _, running := s.tasks[domain]; running {
		return false, nil
	}
	if len(s.tasks) >= s.maxCapacity {
		return false, ErrNoCapacity
	}

	ctx, cancel := context.WithCancel(s.base)
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.tasks[domain] = t
	s.wg.Add(1)

	runningCrawls.Inc()
	startedTotal.Inc()
	s.logger.Debug("crawl scheduled", "domain", domain)

	go s.supervise(ctx, domain, t)
	return true, nil
}

// supervise runs one task and owns its cleanup.
func (s *Scheduler) supervise(ctx context.Context, domain string, t *task) {
	result := resultOK
	defer func() {
		if r := recover(); r != nil {
			result = resultPanic
			s.logger.Error("crawl panicked",
				"domain", domain,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}

		s.mu.Lock()
		if s.tasks[domain] == t {
			delete(s.tasks, domain)
		}
		s.mu.Unlock()

		t.cancel()
		close(t.done)
		runningCrawls.Dec()
		finishedTotal.WithLabelValues(result).Inc()
		s.wg.Done()
	}()

	err := s.crawl(ctx, domain)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		result = resultCanceled
		s.logger.Debug("crawl cancelled", "domain", domain)
	default:
		result = resultError
		s.logger.Error("crawl failed", "domain", domain, "error", err)
	}
}

// Cancel signals the crawl of domain to stop. It reports whether a crawl
// was running. The crawl may still be draining when Cancel returns; use
// Done to wait for it.
func (s *Scheduler) Cancel(domain string) bool {
	s.mu.Lock()
	t, ok := s.tasks[domain]
	s.mu.Unlock()

	if ok {
		t.cancel()
	}
	return ok
}

// Running reports whether a crawl of domain is in progress.
func (s *Scheduler) Running(domain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[domain]
	return ok
}

// Done returns a channel closed when the running crawl of domain exits,
// or nil when none is running.
func (s *Scheduler) Done(domain string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[domain]; ok {
		return t.done
	}
	return nil
}

// Domains returns the running domains in sorted order.
func (s *Scheduler) Domains() []string {
	s.mu.Lock()
	domains := make([]string, 0, len(s.tasks))
	for domain := range s.tasks {
		domains = append(domains, domain)
	}
	s.mu.Unlock()

	sort.Strings(domains)
	return domains
}

// RemainingCapacity returns how many more crawls may be started.
func (s *Scheduler) RemainingCapacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return max(0, s.maxCapacity-len(s.tasks))
}

// MaxCapacity returns the concurrency ceiling.
func (s *Scheduler) MaxCapacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxCapacity
}

// SetMaxCapacity changes the ceiling. Lowering it below the number of
// running crawls does not stop any of them; new starts fail until enough
// have finished.
func (s *Scheduler) SetMaxCapacity(n int) error {
	if err := validateCapacity(n); err != nil {
		return err
	}
	s.mu.Lock()
	s.maxCapacity = n
	s.mu.Unlock()
	return nil
}

// Shutdown cancels every running crawl, rejects new ones and waits until
// all crawls have exited or ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.shutdown()

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		s.logger.Debug("scheduler drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}
