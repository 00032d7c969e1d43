package crawler

import (
	"net"
	"net/url"
	"sort"

	"github.com/nao1215/sitemapper/internal/model"
)

// Consolidate builds the persisted form of a crawl graph.
//
// Only Processed and Error pages survive. Pages whose URLs differ only by
// the www prefix of the host are merged into one page carrying the
// domain's own spelling: the lowest id of the group is kept, the metadata
// comes from the first entry with a title (or the first entry when none has
// one), and the distance is the group minimum. Links are remapped onto the
// surviving ids, links to dropped pages and self-links are removed, and
// duplicates collapse.
func Consolidate(domain string, pages []model.Page, links []model.Link) model.SiteContents {
	type group struct {
		page model.Page
		// titled is true once page carries metadata from a titled entry.
		titled bool
	}

	byID := make([]model.Page, len(pages))
	copy(byID, pages)
	sort.Slice(byID, func(i, j int) bool { return byID[i].ID < byID[j].ID })

	groups := make(map[string]*group)
	order := make([]string, 0)
	survivor := make(map[int]int, len(byID))

	for _, p := range byID {
		if p.Status != model.PageProcessed && p.Status != model.PageError {
			continue
		}
		key := canonicalURL(domain, p.URL)
		g, ok := groups[key]
		if !ok {
			kept := p
			kept.URL = key
			groups[key] = &group{page: kept, titled: p.Title != ""}
			order = append(order, key)
			survivor[p.ID] = p.ID
			continue
		}
		survivor[p.ID] = g.page.ID
		if p.DistanceFromRoot < g.page.DistanceFromRoot {
			g.page.DistanceFromRoot = p.DistanceFromRoot
		}
		if !g.titled && p.Title != "" {
			g.page.Title = p.Title
			g.page.HTTPStatus = p.HTTPStatus
			g.page.Status = p.Status
			g.titled = true
		}
	}

	contents := model.SiteContents{
		Pages: make([]model.Page, 0, len(order)),
		Links: make([]model.Link, 0, len(links)),
	}
	for _, key := range order {
		contents.Pages = append(contents.Pages, groups[key].page)
	}
	sort.Slice(contents.Pages, func(i, j int) bool { return contents.Pages[i].ID < contents.Pages[j].ID })

	seen := make(map[model.Link]struct{}, len(links))
	for _, l := range links {
		from, ok := survivor[l.StartPageID]
		if !ok {
			continue
		}
		to, ok := survivor[l.EndPageID]
		if !ok || from == to {
			continue
		}
		link := model.Link{StartPageID: from, EndPageID: to}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		contents.Links = append(contents.Links, link)
	}
	sort.Slice(contents.Links, func(i, j int) bool {
		a, b := contents.Links[i], contents.Links[j]
		if a.StartPageID != b.StartPageID {
			return a.StartPageID < b.StartPageID
		}
		return a.EndPageID < b.EndPageID
	})

	return contents
}

// canonicalURL rewrites the host of raw to domain when it names the same
// site. Other URLs are returned unchanged.
func canonicalURL(domain, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !model.SameSite(u.Host, domain) {
		return raw
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(domain, port)
	} else {
		u.Host = domain
	}
	return u.String()
}
