package engine

import (
	"time"

	"github.com/nao1215/sitemapper/internal/model"
)

// Refresh policy defaults.
const (
	DefaultRefreshPeriod = 7 * 24 * time.Hour
	DefaultProblemRetry  = 10 * time.Minute
	DefaultStuckRetry    = time.Hour
)

// RefreshPolicy decides whether a stored site is due for another crawl.
type RefreshPolicy struct {
	// RefreshPeriod is the age after which any record is re-crawled.
	RefreshPeriod time.Duration

	// ProblemRetry is the age after which a ConnectionProblem or
	// RobotsTxtProblem record is retried.
	ProblemRetry time.Duration

	// StuckRetry is the age after which an Added or Processing record is
	// assumed abandoned and crawled again.
	StuckRetry time.Duration
}

// DefaultRefreshPolicy returns a policy of one week, ten minutes and one
// hour.
func DefaultRefreshPolicy() RefreshPolicy {
	return RefreshPolicy{
		RefreshPeriod: DefaultRefreshPeriod,
		ProblemRetry:  DefaultProblemRetry,
		StuckRetry:    DefaultStuckRetry,
	}
}

// NeedsCrawl reports whether the site described by info should be crawled
// at now. A nil info means the domain has no record and always needs a
// crawl. A record with refresh disabled never does.
func (p RefreshPolicy) NeedsCrawl(info *model.SiteInfo, now time.Time) bool {
	if info == nil {
		return true
	}
	if !info.RefreshEnabled {
		return false
	}

	age := now.Sub(info.StatusTime)
	switch {
	case age > p.RefreshPeriod:
		return true
	case info.Status.IsProblem():
		return age > p.ProblemRetry
	case info.Status == model.SiteAdded || info.Status == model.SiteProcessing:
		return age > p.StuckRetry
	default:
		return false
	}
}
