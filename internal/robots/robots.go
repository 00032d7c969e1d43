package robots

import (
	"bufio"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Field names recognized in robots.txt, lower-cased.
const (
	fieldUserAgent  = "user-agent"
	fieldAllow      = "allow"
	fieldDisallow   = "disallow"
	fieldCrawlDelay = "crawl-delay"
	fieldSitemap    = "sitemap"

	// wildcardAgent matches every user agent.
	wildcardAgent = "*"
)

// AccessRule is a single Allow or Disallow directive bound to one user agent.
type AccessRule struct {
	// UserAgent is the agent token from the User-agent line.
	UserAgent string
	// Path is the normalized pattern. Empty means the rule matches nothing.
	Path string
	// Allowed is true for Allow and false for Disallow.
	Allowed bool
	// Order is the position of the rule in the document, starting at 0.
	Order int
}

// CrawlDelayRule is a Crawl-delay directive bound to one user agent.
type CrawlDelayRule struct {
	UserAgent string
	Delay     time.Duration
	Order     int
}

// Sitemap is a Sitemap directive. URL is nil when Value is not an
// absolute URL.
type Sitemap struct {
	Value string
	URL   *url.URL
}

// Robots is a parsed robots.txt document. It is immutable after Parse and
// safe for concurrent use.
type Robots struct {
	policy    Policy
	access    []AccessRule
	delays    []CrawlDelayRule
	sitemaps  []Sitemap
	malformed bool
}

// Option configures Parse.
type Option func(*Robots)

// WithPolicy selects the Allow/Disallow resolution policy.
func WithPolicy(p Policy) Option {
	return func(r *Robots) {
		r.policy = p
	}
}

// Parse parses a robots.txt document. It never fails; see Malformed.
func Parse(text string, opts ...Option) *Robots {
	r := &Robots{policy: DefaultPolicy}
	for _, opt := range opts {
		opt(r)
	}
	r.parse(text)
	return r
}

// parse walks the document line by line.
//
// Consecutive User-agent lines form one group. The group stays open until
// a User-agent line follows a rule line, which starts a new group.
func (r *Robots) parse(text string) {
	var (
		agents        []string
		lastWasAgent  bool
		order         int
		firstLineSeen bool
	)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !firstLineSeen {
			line = strings.TrimPrefix(line, "\ufeff")
			firstLineSeen = true
		}
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			r.malformed = true
			continue
		}
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)

		switch field {
		case fieldUserAgent:
			if value == "" {
				// An unnamed group swallows its rules.
				r.malformed = true
				agents = nil
				lastWasAgent = false
				continue
			}
			if !lastWasAgent {
				agents = nil
			}
			agents = append(agents, value)
			lastWasAgent = true

		case fieldAllow, fieldDisallow:
			lastWasAgent = false
			if len(agents) == 0 {
				r.malformed = true
				continue
			}
			path := normalizePattern(value)
			for _, agent := range agents {
				r.access = append(r.access, AccessRule{
					UserAgent: agent,
					Path:      path,
					Allowed:   field == fieldAllow,
					Order:     order,
				})
			}
			order++

		case fieldCrawlDelay:
			lastWasAgent = false
			if len(agents) == 0 {
				r.malformed = true
				continue
			}
			delay, ok := parseDelay(value)
			if !ok {
				continue
			}
			for _, agent := range agents {
				r.delays = append(r.delays, CrawlDelayRule{
					UserAgent: agent,
					Delay:     delay,
					Order:     order,
				})
			}
			order++

		case fieldSitemap:
			if value == "" {
				r.malformed = true
				continue
			}
			sm := Sitemap{Value: value}
			if u, err := url.Parse(value); err == nil && u.IsAbs() {
				sm.URL = u
			}
			r.sitemaps = append(r.sitemaps, sm)

		default:
			r.malformed = true
		}
	}
	if scanner.Err() != nil {
		r.malformed = true
	}
}

// normalizePattern prefixes a non-empty pattern with "/" unless it already
// starts with "/" or "*".
func normalizePattern(value string) string {
	if value == "" || strings.HasPrefix(value, "/") || strings.HasPrefix(value, "*") {
		return value
	}
	return "/" + value
}

// parseDelay converts fractional seconds into a duration with millisecond
// precision. Negative and non-numeric values are rejected.
func parseDelay(value string) (time.Duration, bool) {
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds*1000) * time.Millisecond, true
}

// Policy returns the resolution policy the document was parsed with.
func (r *Robots) Policy() Policy {
	return r.policy
}

// Malformed reports whether any line could not be understood or any rule
// appeared outside a User-agent group.
func (r *Robots) Malformed() bool {
	return r.malformed
}

// HasRules reports whether at least one access or crawl-delay rule was
// attached to a user agent.
func (r *Robots) HasRules() bool {
	return len(r.access) > 0 || len(r.delays) > 0
}

// Sitemaps returns the Sitemap directives in document order.
func (r *Robots) Sitemaps() []Sitemap {
	out := make([]Sitemap, len(r.sitemaps))
	copy(out, r.sitemaps)
	return out
}

// AccessRules returns all access rules in document order.
func (r *Robots) AccessRules() []AccessRule {
	out := make([]AccessRule, len(r.access))
	copy(out, r.access)
	return out
}

// IsAnyPathDisallowed reports whether some Disallow rule rejects at least
// one path. An empty Disallow value disallows nothing.
func (r *Robots) IsAnyPathDisallowed() bool {
	for _, rule := range r.access {
		if !rule.Allowed && rule.Path != "" {
			return true
		}
	}
	return false
}

// IsPathAllowed reports whether userAgent may fetch path. Paths without
// applicable or matching rules are allowed.
func (r *Robots) IsPathAllowed(userAgent, path string) (bool, error) {
	if strings.TrimSpace(userAgent) == "" {
		return false, ErrInvalidUserAgent
	}

	rules := selectRules(r.access, userAgent, func(rule AccessRule) string { return rule.UserAgent })
	if len(rules) == 0 {
		return true, nil
	}

	path = NormalizePath(path)
	switch r.policy {
	case Standard:
		return resolveStandard(rules, path), nil
	case AllowOverrides:
		return resolveAllowOverrides(rules, path), nil
	default:
		return resolveMoreSpecific(rules, path), nil
	}
}

// CrawlDelay returns the crawl delay requested for userAgent, or zero when
// no rule applies. A named group wins over "*"; within a group the first
// rule wins.
func (r *Robots) CrawlDelay(userAgent string) (time.Duration, error) {
	if strings.TrimSpace(userAgent) == "" {
		return 0, ErrInvalidUserAgent
	}

	rules := selectRules(r.delays, userAgent, func(rule CrawlDelayRule) string { return rule.UserAgent })
	if len(rules) == 0 {
		return 0, nil
	}
	return rules[0].Delay, nil
}

// selectRules returns the rules addressed to userAgent. Rules naming the
// agent explicitly are preferred; the wildcard group is the fallback.
func selectRules[T any](rules []T, userAgent string, agentOf func(T) string) []T {
	ua := strings.ToLower(userAgent)
	var named, wildcard []T
	for _, rule := range rules {
		agent := agentOf(rule)
		if agent == wildcardAgent {
			wildcard = append(wildcard, rule)
			continue
		}
		if strings.Contains(ua, strings.ToLower(agent)) {
			named = append(named, rule)
		}
	}
	if len(named) > 0 {
		return named
	}
	return wildcard
}

func resolveStandard(rules []AccessRule, path string) bool {
	for _, rule := range rules {
		if matchPattern(rule.Path, path) {
			return rule.Allowed
		}
	}
	return true
}

func resolveAllowOverrides(rules []AccessRule, path string) bool {
	disallowed := false
	for _, rule := range rules {
		if !matchPattern(rule.Path, path) {
			continue
		}
		if rule.Allowed {
			return true
		}
		disallowed = true
	}
	return !disallowed
}

func resolveMoreSpecific(rules []AccessRule, path string) bool {
	var (
		best    *AccessRule
		bestLen int
	)
	for i := range rules {
		rule := &rules[i]
		if !matchPattern(rule.Path, path) {
			continue
		}
		n := literalLength(rule.Path)
		switch {
		case best == nil, n > bestLen:
			best, bestLen = rule, n
		case n == bestLen && rule.Allowed && !best.Allowed:
			best = rule
		}
	}
	if best == nil {
		return true
	}
	return best.Allowed
}
