// Package robots parses robots.txt documents and answers path and
// crawl-delay queries for a given user agent.
//
// # Parsing
//
// Parse never fails. Lines that cannot be understood mark the document as
// Malformed, and every rule that did parse stays usable. Rules that appear
// before any User-agent line are orphans: they mark the document as
// Malformed and never apply to any agent. Sitemap lines are collected
// regardless of where they appear.
//
// # Matching
//
// A rule group applies to a user agent when its agent token is "*" or
// occurs, case-insensitively, inside the queried user-agent string. Named
// groups take precedence over "*". Paths are matched case-sensitively with
// "*" (any run of characters) and a trailing "$" (end anchor).
//
// How an Allow rule interacts with a Disallow rule that matches the same
// path is selected by Policy:
//   - Standard: the first matching rule in file order wins
//   - AllowOverrides: any matching Allow wins over every Disallow
//   - MoreSpecific: the rule with the longest literal pattern wins
//
// # Usage
//
//	r := robots.Parse(body)
//	ok, err := r.IsPathAllowed("SiteMapper", "/private/index.html")
package robots
