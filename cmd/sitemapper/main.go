// Package main provides the entry point for the SiteMapper CLI.
//
// SiteMapper crawls web sites and stores their page/link graph. Crawls
// honour robots.txt, and stored sites are refreshed when they become
// stale.
//
// Usage:
//
//	sitemapper crawl <domain>...
//	sitemapper sites list
//	sitemapper run
//
// See --help for all available options.
package main

// main is the entry point for SiteMapper.
func main() {
	Execute()
}
