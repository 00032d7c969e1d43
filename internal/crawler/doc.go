// Package crawler maps a single web site into a page/link graph.
//
// # Architecture
//
// The package is designed around the SiteCrawler type, which coordinates
// one crawl of one domain. A Frontier holds the graph under construction
// and hands out unprocessed pages shallowest first. Workers fetch pages
// through an errgroup bounded by the maximum number of simultaneous
// requests, while a rate limiter spaces out dispatches by the crawl delay.
// Snapshots are written while the crawl is running, and the www and bare
// spellings of a domain are merged into one graph.
//
// # Components
//
//   - SiteCrawler: drives the crawl and persists snapshots
//   - Frontier: pages keyed by URL and id, with deduplicated links
//   - Parser: HTML title and link extraction with charset detection
//   - Consolidate: builds the persisted graph from a frontier snapshot
//   - Filter: per-site ignore/follow path patterns
//
// # Politeness
//
// The crawler is designed to be polite:
//   - Respects robots.txt, including Crawl-delay up to a cap
//   - Delays between page dispatches (configurable)
//   - Limits concurrent requests
//   - Stops once enough pages were saved
//
// # Usage
//
//	c, err := crawler.New("example.com", repo, crawler.WithDesiredPages(100))
//	if err != nil {
//		return err
//	}
//	err = c.Crawl(ctx)
package crawler
