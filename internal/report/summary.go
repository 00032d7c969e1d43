package report

import (
	"sort"

	"github.com/nao1215/sitemapper/internal/model"
)

// timeFormat is used for every timestamp in text and markdown reports.
const timeFormat = "2006-01-02 15:04:05 MST"

// defaultTopPages is the number of pages listed by the text report.
const defaultTopPages = 20

// pageStatusOrder is the display order of page statuses.
var pageStatusOrder = []model.PageStatus{
	model.PageProcessed,
	model.PageError,
	model.PageRobotsDisallowed,
	model.PageBinary,
	model.PageUnprocessed,
	model.PageProcessing,
}

// StatusCount is the number of pages in one status.
type StatusCount struct {
	Status model.PageStatus `json:"status"`
	Count  int              `json:"count"`
}

// Summary aggregates the page graph of a site for display.
type Summary struct {
	// StatusCounts lists the non-zero page statuses in display order.
	StatusCounts []StatusCount

	// MaxDistance is the largest DistanceFromRoot among the pages.
	MaxDistance int

	// Pages are sorted by distance from the root, then by URL.
	Pages []model.Page
}

// Summarize computes the Summary of site. A site without contents yields
// an empty summary.
func Summarize(site *model.Site) Summary {
	var s Summary
	if site == nil || site.Contents == nil {
		return s
	}

	counts := make(map[model.PageStatus]int)
	for _, p := range site.Contents.Pages {
		counts[p.Status]++
		if p.DistanceFromRoot > s.MaxDistance {
			s.MaxDistance = p.DistanceFromRoot
		}
	}
	for _, status := range pageStatusOrder {
		if n := counts[status]; n > 0 {
			s.StatusCounts = append(s.StatusCounts, StatusCount{Status: status, Count: n})
		}
	}

	s.Pages = append([]model.Page(nil), site.Contents.Pages...)
	sort.SliceStable(s.Pages, func(i, j int) bool {
		if s.Pages[i].DistanceFromRoot != s.Pages[j].DistanceFromRoot {
			return s.Pages[i].DistanceFromRoot < s.Pages[j].DistanceFromRoot
		}
		return s.Pages[i].URL < s.Pages[j].URL
	})
	return s
}

// statusLabel returns a display string for a site status.
func statusLabel(info model.SiteInfo) string {
	switch info.Status {
	case model.SiteAdded:
		return "Added"
	case model.SiteProcessing:
		return "Processing"
	case model.SiteProcessed:
		return "Processed"
	case model.SiteProcessedWithProblems:
		return "Processed with problems"
	case model.SiteConnectionProblem:
		return "Connection problem"
	case model.SiteRobotsTxtProblem:
		return "robots.txt problem"
	default:
		return info.Status.String()
	}
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
