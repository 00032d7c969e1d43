// Package model defines the data structures shared by the crawler, the
// repositories and the report writers.
//
// This package contains the following main types:
//   - Page: A page discovered during a crawl, addressed by a stable integer id
//   - Link: A directed edge between two page ids
//   - SiteContents: The page/link graph of one domain
//   - SiteInfo: The persisted status record of one domain
//   - Site: SiteInfo plus optional SiteContents, the unit of persistence
//
// Pages refer to each other only by id. The crawler keeps pages in an arena
// indexed by id and links as id pairs.
//
// Every layer that accepts a domain passes it through the domain helpers
// (NormalizeDomain, ValidateDomain, WWWVariant, SameSite) first.
package model
