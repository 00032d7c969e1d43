package model

import (
	"fmt"
	"strings"
	"time"
)

// unknownStr is the string representation for unknown enum values.
const unknownStr = "unknown"

// SiteStatus is the outcome of the most recent crawl of a domain.
// The numeric values are persisted and must not be reordered.
type SiteStatus int

const (
	// SiteAdded means the domain is known but has never been crawled.
	SiteAdded SiteStatus = 0
	// SiteProcessed means the last crawl finished without problems.
	SiteProcessed SiteStatus = 1
	// SiteProcessedWithProblems means the last crawl finished but some
	// pages could not be processed.
	SiteProcessedWithProblems SiteStatus = 2
	// SiteProcessing means a crawl is running (or died without finishing).
	SiteProcessing SiteStatus = 3
	// SiteConnectionProblem means the home page could not be fetched.
	SiteConnectionProblem SiteStatus = 4
	// SiteRobotsTxtProblem means robots.txt forbids crawling the home page.
	SiteRobotsTxtProblem SiteStatus = 5
)

var siteStatusNames = map[SiteStatus]string{
	SiteAdded:                 "added",
	SiteProcessed:             "processed",
	SiteProcessedWithProblems: "processed_with_problems",
	SiteProcessing:            "processing",
	SiteConnectionProblem:     "connection_problem",
	SiteRobotsTxtProblem:      "robots_txt_problem",
}

// String returns the snake_case name of the status.
func (s SiteStatus) String() string {
	if name, ok := siteStatusNames[s]; ok {
		return name
	}
	return unknownStr
}

// MarshalText encodes the status as its name.
func (s SiteStatus) MarshalText() ([]byte, error) {
	if _, ok := siteStatusNames[s]; !ok {
		return nil, fmt.Errorf("unknown site status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *SiteStatus) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for status, n := range siteStatusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown site status %q", string(text))
}

// IsProblem reports whether the status is one of the fatal crawl outcomes
// that are retried sooner than a regular refresh.
func (s SiteStatus) IsProblem() bool {
	return s == SiteConnectionProblem || s == SiteRobotsTxtProblem
}

// SiteContents is the page/link graph of one domain.
type SiteContents struct {
	Pages []Page `json:"pages"`
	Links []Link `json:"links"`
}

// SiteInfo is the status record of one domain. It survives across crawl
// runs; refresh decisions are made from the previous SiteInfo.
type SiteInfo struct {
	// Domain is the normalized domain name.
	Domain string `json:"domain"`

	// Progress is the crawl completion percentage (0-100).
	Progress int `json:"progress"`

	Status            SiteStatus `json:"status"`
	StatusDescription string     `json:"status_description,omitempty"`

	// StatusTime is when Status was last written.
	StatusTime time.Time `json:"status_time"`

	PageCount int `json:"page_count"`
	LinkCount int `json:"link_count"`

	// RefreshEnabled controls whether the domain is re-crawled when its
	// record becomes stale.
	RefreshEnabled bool `json:"refresh_enabled"`

	// ContentsTime is the Unix millisecond timestamp of the stored
	// contents, zero when no contents are stored. Readers pass it back to
	// skip downloading an unchanged graph.
	ContentsTime int64 `json:"contents_time,omitempty"`
}

// NewSiteInfo returns the record of a newly added domain.
func NewSiteInfo(domain string, now time.Time) *SiteInfo {
	return &SiteInfo{
		Domain:         domain,
		Status:         SiteAdded,
		StatusTime:     now,
		RefreshEnabled: true,
	}
}

// Site is the unit of persistence: the status record plus, optionally, the
// consolidated page graph.
type Site struct {
	Info     SiteInfo      `json:"info"`
	Contents *SiteContents `json:"contents,omitempty"`
}
