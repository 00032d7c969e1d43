// Package scheduler runs site crawls as cancellable background tasks.
//
// A Scheduler keeps at most one task per domain and at most MaxCapacity
// tasks overall. Each task gets its own context derived from a
// scheduler-wide base context, so cancelling one domain or shutting the
// whole scheduler down is a matter of cancelling the right context.
//
// # Usage
//
//	s, err := scheduler.New(func(ctx context.Context, domain string) error {
//		c, err := crawler.New(domain, repo)
//		if err != nil {
//			return err
//		}
//		return c.Crawl(ctx)
//	}, scheduler.WithMaxCapacity(4))
//	if err != nil {
//		return err
//	}
//	defer s.Shutdown(context.Background())
//
//	started, err := s.Start("example.com")
package scheduler
