package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nao1215/sitemapper/internal/model"
)

// Memory is an in-process Repository. Stored values are deep-copied on
// the way in and out, so callers may keep mutating their own copies.
type Memory struct {
	mu    sync.RWMutex
	sites map[string]*model.Site
}

// NewMemory returns an empty Memory repository.
func NewMemory() *Memory {
	return &Memory{sites: make(map[string]*model.Site)}
}

// SaveSite implements Repository.
func (m *Memory) SaveSite(_ context.Context, site *model.Site, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	domain := site.Info.Domain
	prev, exists := m.sites[domain]
	if exists && !overwrite {
		return ErrSiteExists
	}
	var prevTime int64
	if exists {
		prevTime = prev.Info.ContentsTime
	}

	stored := &model.Site{Info: prepareForSave(site, prevTime, time.Now())}
	stored.Contents = cloneContents(site.Contents)
	m.sites[domain] = stored
	return nil
}

// GetSite implements Repository.
func (m *Memory) GetSite(_ context.Context, domain string, includeContents bool, contentsTimestamp int64) (*model.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.sites[domain]
	if !ok {
		return nil, nil
	}
	site := &model.Site{Info: stored.Info}
	if wantContents(includeContents, contentsTimestamp, stored.Info.ContentsTime) {
		site.Contents = cloneContents(stored.Contents)
	}
	return site, nil
}

// RemoveSite implements Repository.
func (m *Memory) RemoveSite(_ context.Context, domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sites[domain]; !ok {
		return ErrNotFound
	}
	delete(m.sites, domain)
	return nil
}

// GetDomains implements Repository.
func (m *Memory) GetDomains(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	domains := make([]string, 0, len(m.sites))
	for domain := range m.sites {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains, nil
}

// GetSites implements Repository.
func (m *Memory) GetSites(ctx context.Context) ([]*model.SiteInfo, error) {
	domains, _ := m.GetDomains(ctx) //nolint:errcheck // Memory.GetDomains never fails

	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]*model.SiteInfo, 0, len(domains))
	for _, domain := range domains {
		if stored, ok := m.sites[domain]; ok {
			info := stored.Info
			infos = append(infos, &info)
		}
	}
	return infos, nil
}

// UpdateRefreshEnabled implements Repository.
func (m *Memory) UpdateRefreshEnabled(_ context.Context, domain string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sites[domain]
	if !ok {
		return ErrNotFound
	}
	stored.Info.RefreshEnabled = enabled
	return nil
}

// Close implements Repository. It is a no-op.
func (m *Memory) Close() error {
	return nil
}

// cloneContents deep-copies contents; nil stays nil.
func cloneContents(c *model.SiteContents) *model.SiteContents {
	if c == nil {
		return nil
	}
	out := &model.SiteContents{
		Pages: make([]model.Page, len(c.Pages)),
		Links: make([]model.Link, len(c.Links)),
	}
	copy(out.Pages, c.Pages)
	copy(out.Links, c.Links)
	return out
}
