package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/sitemapper/internal/model"
	"github.com/nao1215/sitemapper/internal/robots"
)

// Default configuration values.
// The crawl limits and timeouts match those of the crawler package, so an
// empty configuration file behaves like no configuration file.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitemapper"

	// DefaultStorage is the repository kind used when none is configured.
	DefaultStorage = StorageSQLite

	// DefaultMaxCapacity is the number of sites crawled at the same time.
	DefaultMaxCapacity = 10

	// DefaultDesiredPages is the number of pages a crawl tries to persist.
	DefaultDesiredPages = 220

	// DefaultMaxSimultaneousRequests caps in-flight page fetches per site.
	DefaultMaxSimultaneousRequests = 20

	// DefaultCrawlDelay is the minimum pause between two page dispatches.
	// robots.txt may raise it, never lower it.
	DefaultCrawlDelay = 100 * time.Millisecond

	// DefaultPageTimeout bounds one page fetch.
	DefaultPageTimeout = 40 * time.Second

	// DefaultRobotsTimeout bounds the robots.txt fetch.
	DefaultRobotsTimeout = 30 * time.Second

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultMaxRobotsDelay caps the Crawl-delay a robots.txt may impose.
	DefaultMaxRobotsDelay = 10 * time.Second

	// DefaultRefreshPeriod is the age after which a site is re-crawled.
	DefaultRefreshPeriod = 7 * 24 * time.Hour

	// DefaultProblemRetry is the age after which a failed site is retried.
	DefaultProblemRetry = 10 * time.Minute

	// DefaultStuckRetry is the age after which an unfinished crawl is
	// considered abandoned.
	DefaultStuckRetry = time.Hour

	// DefaultSweepInterval is how often the daemon looks for stale sites.
	DefaultSweepInterval = time.Minute

	// DefaultRobotsPolicy resolves Allow/Disallow conflicts by specificity.
	DefaultRobotsPolicy = "more-specific"

	// DefaultUserAgent identifies SiteMapper in HTTP requests.
	DefaultUserAgent = "Mozilla/5.0 (compatible; SiteMapper/1.0; +https://github.com/nao1215/sitemapper)"

	// DefaultRobotsAgent is the token matched against robots.txt groups.
	DefaultRobotsAgent = "SiteMapper"

	// DefaultDNSCacheSize is the number of hosts kept in the DNS cache.
	DefaultDNSCacheSize = 256

	// DefaultLogFormat is the log output format.
	DefaultLogFormat = "text"

	// Log rotation defaults, used only when LogFile is set.
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28

	// MaxCapacityLimit is the largest accepted max_capacity.
	MaxCapacityLimit = 10000
)

// Storage kinds.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageMemory = "memory"
)

// Config holds all configuration options for SiteMapper.
// It is populated from the configuration file and CLI flags and passed
// through the application rather than kept in global state.
type Config struct {
	// Storage selects the repository: sqlite, file or memory.
	Storage string `yaml:"storage"`

	// DataDir is where the sqlite database or the JSON files are kept.
	// Empty means the XDG data directory.
	DataDir string `yaml:"data_dir"`

	// MaxCapacity is the number of sites crawled concurrently.
	MaxCapacity int `yaml:"max_capacity"`

	// DesiredPages is the number of pages a crawl tries to persist.
	// Sites may override it.
	DesiredPages int `yaml:"desired_pages"`

	// MaxSimultaneousRequests caps in-flight page fetches per site.
	MaxSimultaneousRequests int `yaml:"max_simultaneous_requests"`

	// CrawlDelay is the minimum interval between two page dispatches of
	// one site.
	CrawlDelay time.Duration `yaml:"crawl_delay"`

	// PageTimeout bounds a single page fetch.
	PageTimeout time.Duration `yaml:"page_timeout"`

	// RobotsTimeout bounds the robots.txt fetch.
	RobotsTimeout time.Duration `yaml:"robots_timeout"`

	// MaxBodySize is the maximum response body size in bytes to read.
	// Larger responses are truncated.
	MaxBodySize int64 `yaml:"max_body_size"`

	// MaxRobotsDelay caps the Crawl-delay honoured from robots.txt.
	MaxRobotsDelay time.Duration `yaml:"max_robots_delay"`

	// RefreshPeriod is the age after which a site is re-crawled.
	RefreshPeriod time.Duration `yaml:"refresh_period"`

	// ProblemRetry is the age after which a site with a connection or
	// robots.txt problem is retried.
	ProblemRetry time.Duration `yaml:"problem_retry"`

	// StuckRetry is the age after which an Added or Processing site is
	// crawled again.
	StuckRetry time.Duration `yaml:"stuck_retry"`

	// SweepInterval is how often `sitemapper run` checks for stale sites.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// RobotsPolicy is one of standard, allow-overrides, more-specific.
	RobotsPolicy string `yaml:"robots_policy"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `yaml:"user_agent"`

	// RobotsAgent is the agent token looked up in robots.txt.
	RobotsAgent string `yaml:"robots_agent"`

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string `yaml:"proxy_address"`

	// DNSCacheSize is the number of cached host lookups. 0 disables the
	// cache.
	DNSCacheSize int `yaml:"dns_cache_size"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`

	// LogFile, when set, sends logs to a rotating file instead of stderr.
	LogFile       string `yaml:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`

	// MetricsAddr is the listen address of the Prometheus endpoint of
	// `sitemapper run`. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	// Domains are crawled and kept fresh by `sitemapper run`.
	Domains []string `yaml:"domains,omitempty"`

	// Defaults apply to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps domains to their site-specific configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Verbose enables debug logging. It is a CLI flag only.
	Verbose bool `yaml:"-"`

	// ConfigFilePath is the file the configuration was loaded from, empty
	// when only defaults are in use.
	ConfigFilePath string `yaml:"-"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Storage:                 DefaultStorage,
		MaxCapacity:             DefaultMaxCapacity,
		DesiredPages:            DefaultDesiredPages,
		MaxSimultaneousRequests: DefaultMaxSimultaneousRequests,
		CrawlDelay:              DefaultCrawlDelay,
		PageTimeout:             DefaultPageTimeout,
		RobotsTimeout:           DefaultRobotsTimeout,
		MaxBodySize:             DefaultMaxBodySize,
		MaxRobotsDelay:          DefaultMaxRobotsDelay,
		RefreshPeriod:           DefaultRefreshPeriod,
		ProblemRetry:            DefaultProblemRetry,
		StuckRetry:              DefaultStuckRetry,
		SweepInterval:           DefaultSweepInterval,
		RobotsPolicy:            DefaultRobotsPolicy,
		UserAgent:               DefaultUserAgent,
		RobotsAgent:             DefaultRobotsAgent,
		DNSCacheSize:            DefaultDNSCacheSize,
		LogFormat:               DefaultLogFormat,
		LogMaxSizeMB:            DefaultLogMaxSizeMB,
		LogMaxBackups:           DefaultLogMaxBackups,
		LogMaxAgeDays:           DefaultLogMaxAgeDays,
		Sites:                   make(map[string]SiteConfig),
	}
}

// XDGDataDir returns the XDG data directory for SiteMapper.
// On Linux: ~/.local/share/sitemapper
// On macOS: ~/Library/Application Support/sitemapper
// On Windows: %LOCALAPPDATA%\sitemapper
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ResolvedDataDir returns DataDir, or the XDG data directory when unset.
func (c *Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return XDGDataDir()
}

// Policy returns the parsed robots.txt policy.
func (c *Config) Policy() (robots.Policy, error) {
	p, err := robots.ParsePolicy(c.RobotsPolicy)
	if err != nil {
		return robots.DefaultPolicy, fmt.Errorf("%w: %q", ErrInvalidRobotsPolicy, c.RobotsPolicy)
	}
	return p, nil
}

// Validate checks if the configuration is valid.
// It returns the first problem found, wrapping one of the sentinel errors.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageSQLite, StorageFile, StorageMemory:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStorage, c.Storage)
	}

	if c.MaxCapacity < 1 || c.MaxCapacity > MaxCapacityLimit {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, c.MaxCapacity)
	}
	if c.DesiredPages < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidDesiredPages, c.DesiredPages)
	}
	if c.MaxSimultaneousRequests < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.MaxSimultaneousRequests)
	}
	if c.CrawlDelay < 0 || c.MaxRobotsDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.PageTimeout <= 0 || c.RobotsTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.RefreshPeriod <= 0 || c.ProblemRetry <= 0 || c.StuckRetry <= 0 || c.SweepInterval <= 0 {
		return ErrInvalidRefreshPeriod
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}

	for _, d := range c.Domains {
		if _, err := model.ParseDomain(d); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDomain, d)
		}
	}
	for d, site := range c.Sites {
		if _, err := model.ParseDomain(d); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDomain, d)
		}
		if site.DesiredPages < 0 {
			return fmt.Errorf("%w: site %s: %d", ErrInvalidDesiredPages, d, site.DesiredPages)
		}
	}
	if c.Defaults.DesiredPages < 0 {
		return fmt.Errorf("%w: defaults: %d", ErrInvalidDesiredPages, c.Defaults.DesiredPages)
	}

	return nil
}
