// Package engine decides when sites are crawled.
//
// The Engine sits between the command line (or any other front end) and
// the scheduler. It looks up stored sites, creates records for new
// domains, applies a RefreshPolicy to decide which sites are stale and
// starts crawls for them. A periodic sweep started with Run keeps every
// stored site fresh.
//
// The Engine is constructed once and passed to whoever needs it; there is
// no package-level instance.
package engine
