package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
var (
	// ErrInvalidStorage is returned for an unknown storage kind.
	ErrInvalidStorage = errors.New("invalid storage: must be sqlite, file or memory")

	// ErrInvalidCapacity is returned when max_capacity is outside 1..10000.
	ErrInvalidCapacity = errors.New("invalid max capacity: must be between 1 and 10000")

	// ErrInvalidDesiredPages is returned when desired_pages is not positive,
	// globally or for a site.
	ErrInvalidDesiredPages = errors.New("invalid desired pages: must be positive")

	// ErrInvalidConcurrency is returned when max_simultaneous_requests is
	// not positive.
	ErrInvalidConcurrency = errors.New("invalid max simultaneous requests: must be positive")

	// ErrInvalidCrawlDelay is returned when a crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	// A timeout of zero would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when max_body_size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidRefreshPeriod is returned when a refresh period, retry
	// interval or sweep interval is not positive.
	ErrInvalidRefreshPeriod = errors.New("invalid refresh period: must be positive")

	// ErrInvalidRobotsPolicy is returned for an unknown robots_policy.
	ErrInvalidRobotsPolicy = errors.New("invalid robots policy: must be standard, allow-overrides or more-specific")

	// ErrInvalidLogFormat is returned for an unknown log_format.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrInvalidDomain is returned when a domain in domains or sites is
	// not a valid domain name.
	ErrInvalidDomain = errors.New("invalid domain in configuration")
)
