package crawler

import (
	"sort"

	"github.com/nao1215/sitemapper/internal/model"
)

// Frontier is the page/link graph of one crawl run.
//
// Pages live in an arena indexed by id, so ids are dense, stable and never
// reused; the first page added (the root) has id 0. Frontier is not safe
// for concurrent use: SiteCrawler guards it with its own mutex.
type Frontier struct {
	pages []model.Page
	byURL map[string]int
	links []model.Link
	seen  map[model.Link]struct{}
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		byURL: make(map[string]int),
		seen:  make(map[model.Link]struct{}),
	}
}

// Add registers url at the given distance from the root. A known url keeps
// its id and has its distance lowered when the new path is shorter.
func (f *Frontier) Add(url string, distance int) (id int, added bool) {
	if id, ok := f.byURL[url]; ok {
		if distance < f.pages[id].DistanceFromRoot {
			f.pages[id].DistanceFromRoot = distance
		}
		return id, false
	}
	id = len(f.pages)
	f.pages = append(f.pages, model.Page{
		ID:               id,
		URL:              url,
		DistanceFromRoot: distance,
		Status:           model.PageUnprocessed,
	})
	f.byURL[url] = id
	return id, true
}

// Lookup returns the id of a known url.
func (f *Frontier) Lookup(url string) (int, bool) {
	id, ok := f.byURL[url]
	return id, ok
}

// AddLink records the edge from -> to. Self-loops, duplicates and edges to
// unknown pages are ignored.
func (f *Frontier) AddLink(from, to int) bool {
	if from == to || !f.valid(from) || !f.valid(to) {
		return false
	}
	link := model.Link{StartPageID: from, EndPageID: to}
	if _, dup := f.seen[link]; dup {
		return false
	}
	f.seen[link] = struct{}{}
	f.links = append(f.links, link)
	return true
}

// Next claims up to n unprocessed pages, shallowest first and then by id,
// and marks them Processing.
func (f *Frontier) Next(n int) []int {
	if n <= 0 {
		return nil
	}
	var ids []int
	for i := range f.pages {
		if f.pages[i].Status == model.PageUnprocessed {
			ids = append(ids, i)
		}
	}
	sort.SliceStable(ids, func(a, b int) bool {
		return f.pages[ids[a]].DistanceFromRoot < f.pages[ids[b]].DistanceFromRoot
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	for _, id := range ids {
		f.pages[id].Status = model.PageProcessing
	}
	return ids
}

// Release returns a claimed page to the unprocessed set.
func (f *Frontier) Release(id int) {
	if f.valid(id) && f.pages[id].Status == model.PageProcessing {
		f.pages[id].Status = model.PageUnprocessed
	}
}

// Page returns the page with the given id for in-place updates, or nil.
func (f *Frontier) Page(id int) *model.Page {
	if !f.valid(id) {
		return nil
	}
	return &f.pages[id]
}

// Len returns the number of known pages.
func (f *Frontier) Len() int {
	return len(f.pages)
}

// Snapshot copies the current pages and links.
func (f *Frontier) Snapshot() ([]model.Page, []model.Link) {
	pages := make([]model.Page, len(f.pages))
	copy(pages, f.pages)
	links := make([]model.Link, len(f.links))
	copy(links, f.links)
	return pages, links
}

func (f *Frontier) valid(id int) bool {
	return id >= 0 && id < len(f.pages)
}
