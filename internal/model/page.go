package model

import (
	"fmt"
	"strings"
)

// PageStatus is the lifecycle state of a single page within a crawl.
// The numeric values are persisted and must not be reordered.
type PageStatus int

const (
	// PageUnprocessed means the page was discovered but not fetched yet.
	PageUnprocessed PageStatus = 0
	// PageProcessed means the page was fetched and parsed successfully.
	PageProcessed PageStatus = 1
	// PageError means the fetch failed or returned a non-2xx status.
	PageError PageStatus = 2
	// PageRobotsDisallowed means robots.txt forbids fetching the page.
	PageRobotsDisallowed PageStatus = 3
	// PageBinary means the page returned a non-HTML content type.
	PageBinary PageStatus = 4
	// PageProcessing means a worker is fetching the page right now.
	PageProcessing PageStatus = 5
)

var pageStatusNames = map[PageStatus]string{
	PageUnprocessed:      "unprocessed",
	PageProcessed:        "processed",
	PageError:            "error",
	PageRobotsDisallowed: "robots_disallowed",
	PageBinary:           "binary",
	PageProcessing:       "processing",
}

// String returns the snake_case name of the status.
func (s PageStatus) String() string {
	if name, ok := pageStatusNames[s]; ok {
		return name
	}
	return unknownStr
}

// MarshalText encodes the status as its name.
func (s PageStatus) MarshalText() ([]byte, error) {
	if _, ok := pageStatusNames[s]; !ok {
		return nil, fmt.Errorf("unknown page status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *PageStatus) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for status, n := range pageStatusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown page status %q", string(text))
}

// Page is a single resource discovered during a crawl.
//
// ID is assigned at first discovery and never reused within a crawl run.
// DistanceFromRoot is the minimum hop count observed over all discovered
// paths from the root page.
type Page struct {
	ID               int        `json:"id"`
	URL              string     `json:"url"`
	Title            string     `json:"title,omitempty"`
	DistanceFromRoot int        `json:"distance_from_root"`
	HTTPStatus       int        `json:"http_status"`
	Status           PageStatus `json:"status"`
}

// Link is a directed edge between two pages of the same snapshot.
type Link struct {
	StartPageID int `json:"start_page_id"`
	EndPageID   int `json:"end_page_id"`
}
