// Package repository persists crawl results, one Site per domain.
//
// Three implementations share the Repository contract:
//   - SQLite: the default, a single database file (via modernc.org/sqlite)
//   - File: one JSON document per domain for info and one for contents
//   - Memory: for tests and throwaway runs
//
// SQLite is the default store. It runs in WAL mode so the CLI can read
// while a daemon crawl is writing.
//
// Every method takes a normalized domain; callers are expected to pass the
// output of model.ParseDomain.
package repository
