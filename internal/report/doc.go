// Package report renders crawled sites for people and tools.
//
// A Writer turns one model.Site, or a listing of model.SiteInfo records,
// into one of three formats:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: the stored model as JSON
//   - MarkdownWriter: tables and a status chart for sharing
//
// MultiWriter sends the same report to several writers.
package report
