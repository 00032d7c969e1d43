package config

import "github.com/nao1215/sitemapper/internal/model"

// SiteConfig holds site-specific configuration for a single domain.
// This allows customizing crawl behavior per site.
type SiteConfig struct {
	// DesiredPages overrides the global page target for this site.
	// If zero, the global DesiredPages is used.
	DesiredPages int `yaml:"desired_pages,omitempty"`

	// IgnorePatterns are URL patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty"`

	// FollowPatterns are URL patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"follow_patterns,omitempty"`
}

// SiteConfig returns the effective configuration of domain: Defaults
// overridden by the entry of domain in Sites. Entries are looked up under
// the normalized domain and its www variant. DesiredPages is always
// filled in.
func (c *Config) SiteConfig(domain string) SiteConfig {
	result := c.Defaults

	if site, ok := c.lookupSite(domain); ok {
		if site.DesiredPages != 0 {
			result.DesiredPages = site.DesiredPages
		}
		if len(site.IgnorePatterns) > 0 {
			result.IgnorePatterns = site.IgnorePatterns
		}
		if len(site.FollowPatterns) > 0 {
			result.FollowPatterns = site.FollowPatterns
		}
	}

	if result.DesiredPages == 0 {
		result.DesiredPages = c.DesiredPages
	}
	return result
}

func (c *Config) lookupSite(domain string) (SiteConfig, bool) {
	domain = model.NormalizeDomain(domain)
	for key, site := range c.Sites {
		k := model.NormalizeDomain(key)
		if k == domain || k == model.WWWVariant(domain) {
			return site, true
		}
	}
	return SiteConfig{}, false
}
