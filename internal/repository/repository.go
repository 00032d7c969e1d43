package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/sitemapper/internal/model"
)

// Repository stores and retrieves crawl results.
//
// Implementations must be safe for concurrent use: the crawler of every
// running domain writes snapshots through the same Repository.
type Repository interface {
	// SaveSite stores site under site.Info.Domain. When a record exists and
	// overwrite is false, ErrSiteExists is returned. A nil site.Contents
	// clears any stored contents.
	SaveSite(ctx context.Context, site *model.Site, overwrite bool) error

	// GetSite returns the stored site or (nil, nil) when there is none.
	// Contents are included only when includeContents is true and
	// contentsTimestamp differs from the stored ContentsTime.
	GetSite(ctx context.Context, domain string, includeContents bool, contentsTimestamp int64) (*model.Site, error)

	// RemoveSite deletes the record. It returns ErrNotFound when absent.
	RemoveSite(ctx context.Context, domain string) error

	// GetDomains returns all stored domains in ascending order.
	GetDomains(ctx context.Context) ([]string, error)

	// GetSites returns all stored status records ordered by domain.
	GetSites(ctx context.Context) ([]*model.SiteInfo, error)

	// UpdateRefreshEnabled changes only the refresh flag of a record.
	UpdateRefreshEnabled(ctx context.Context, domain string, enabled bool) error

	// Close releases underlying resources.
	Close() error
}

// Storage kinds accepted by Open.
const (
	KindSQLite = "sqlite"
	KindFile   = "file"
	KindMemory = "memory"
)

// Open creates the Repository selected by kind, rooted at dir.
func Open(kind, dir string) (Repository, error) {
	switch kind {
	case KindSQLite, "":
		return OpenSQLite(dir, DefaultOptions())
	case KindFile:
		return OpenFile(dir)
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, kind)
	}
}

// prepareForSave returns the info to persist, with counts and the contents
// timestamp derived from the contents. The timestamp is strictly greater
// than prev so that readers holding prev always see the new contents.
func prepareForSave(site *model.Site, prev int64, now time.Time) model.SiteInfo {
	info := site.Info
	if site.Contents == nil {
		info.ContentsTime = 0
		return info
	}
	info.PageCount = len(site.Contents.Pages)
	info.LinkCount = len(site.Contents.Links)
	info.ContentsTime = now.UnixMilli()
	if info.ContentsTime <= prev {
		info.ContentsTime = prev + 1
	}
	return info
}

// wantContents decides whether a read should return stored contents.
func wantContents(includeContents bool, contentsTimestamp, stored int64) bool {
	if !includeContents || stored == 0 {
		return false
	}
	return contentsTimestamp != stored
}
