package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/sitemapper/internal/model"
)

// factories builds one fresh repository of every kind.
func factories() map[string]func(t *testing.T) Repository {
	return map[string]func(t *testing.T) Repository{
		KindMemory: func(t *testing.T) Repository {
			t.Helper()
			return NewMemory()
		},
		KindFile: func(t *testing.T) Repository {
			t.Helper()
			repo, err := OpenFile(t.TempDir())
			if err != nil {
				t.Fatalf("failed to open file repository: %v", err)
			}
			return repo
		},
		KindSQLite: func(t *testing.T) Repository {
			t.Helper()
			repo, err := OpenSQLite(t.TempDir(), DefaultOptions())
			if err != nil {
				t.Fatalf("failed to open database: %v", err)
			}
			return repo
		},
	}
}

// testSite returns a processed site with a two-page graph.
func testSite(domain string) *model.Site {
	info := model.NewSiteInfo(domain, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	info.Status = model.SiteProcessed
	info.Progress = 100
	return &model.Site{
		Info: *info,
		Contents: &model.SiteContents{
			Pages: []model.Page{
				{ID: 0, URL: "http://" + domain + "/", Title: "Home", HTTPStatus: 200, Status: model.PageProcessed},
				{ID: 1, URL: "http://" + domain + "/about", Title: "About", DistanceFromRoot: 1, HTTPStatus: 200, Status: model.PageProcessed},
			},
			Links: []model.Link{{StartPageID: 0, EndPageID: 1}},
		},
	}
}

func TestRepositoryContract(t *testing.T) {
	t.Parallel()

	for kind, open := range factories() {
		t.Run(kind, func(t *testing.T) {
			t.Parallel()

			t.Run("missing site reads as nil", func(t *testing.T) {
				t.Parallel()
				repo := open(t)
				defer repo.Close()

				site, err := repo.GetSite(context.Background(), "example.com", true, 0)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if site != nil {
					t.Errorf("expected nil site, got %+v", site)
				}
			})

			t.Run("save and get round trip", func(t *testing.T) {
				t.Parallel()
				repo := open(t)
				defer repo.Close()
				ctx := context.Background()

				want := testSite("example.com")
				if err := repo.SaveSite(ctx, want, false); err != nil {
					t.Fatalf("failed to save site: %v", err)
				}

				got, err := repo.GetSite(ctx, "example.com", true, 0)
				if err != nil {
					t.Fatalf("failed to get site: %v", err)
				}
				if got == nil || got.Contents == nil {
					t.Fatal("expected site with contents")
				}
				if got.Info.Status != model.SiteProcessed {
					t.Errorf("expected status processed, got %s", got.Info.Status)
				}
				if !got.Info.StatusTime.Equal(want.Info.StatusTime) {
					t.Errorf("expected status time %v, got %v", want.Info.StatusTime, got.Info.StatusTime)
				}
				if got.Info.PageCount != 2 || got.Info.LinkCount != 1 {
					t.Errorf("expected 2 pages and 1 link, got %d and %d", got.Info.PageCount, got.Info.LinkCount)
				}
				if got.Info.ContentsTime == 0 {
					t.Error("expected contents time to be set")
				}
				if len(got.Contents.Pages) != 2 || got.Contents.Pages[1].Title != "About" {
					t.Errorf("unexpected pages %+v", got.Contents.Pages)
				}
				if len(got.Contents.Links) != 1 || got.Contents.Links[0].EndPageID != 1 {
					t.Errorf("unexpected links %+v", got.Contents.Links)
				}
			})

			t.Run("save without overwrite fails on existing site", func(t *testing.T) {
				t.Parallel()
				repo := open(t)
				defer repo.Close()
				ctx := context.Background()

				if err := repo.SaveSite(ctx, testSite("example.com"), false); err != nil {
					t.Fatalf("failed to save site: %v", err)
				}
				if err := repo.SaveSite(ctx, testSite("example.com"), false); !errors.Is(err, ErrSiteExists) {
					t.Errorf("expected ErrSiteExists, got %v", err)
				}
				if err := repo.SaveSite(ctx, testSite("example.com"), true); err != nil {
					t.Errorf("expected overwrite to succeed, got %v", err)
				}
			})

			t.Run("contents are skipped when requested or unchanged", func(t *testing.T) {
				t.Parallel()
				repo := open(t)
				defer repo.Close()
				ctx := context.Background()

				if err := repo.SaveSite(ctx, testSite("example.com"), false); err != nil {
					t.Fatalf("failed to save site: %v", err)
				}

				site, err := repo.GetSite(ctx, "example.com", false, 0)
				if err != nil {
					t.Fatalf("failed to get site: %v", err)
				}
				if site.Contents != nil {
					t.Error("expected no contents when not requested")
				}

				ts := site.Info.ContentsTime
				site, err = repo.GetSite(ctx, "example.com", true, ts)
				if err != nil {
					t.Fatalf("failed to get site: %v", err)
				}
				if site.Contents != nil {
					t.Error("expected no contents for an unchanged timestamp")
				}

				if err := repo.SaveSite(ctx, testSite("example.com"), true); err != nil {
					t.Fatalf("failed to overwrite site: %v", err)
				}
				site, err = repo.GetSite(ctx, "example.com", true, ts)
				if err != nil {
					t.Fatalf("failed to get site: %v", err)
				}
				if site.Contents == nil {
					t.Error("expected contents after they changed")
				}
				if site.Info.ContentsTime <= ts {
					t.Errorf("expected contents time to advance past %d, got %d", ts, site.Info.ContentsTime)
				}
			})

			t.Run("nil contents clear stored contents", func(t *testing.T) {
				t.Parallel()
				repo := open(t)
				defer repo.Close()
				ctx := context.Background()

				if err := repo.SaveSite(ctx, testSite("example.com"), false); err != nil {
					t.Fatalf("failed to save site: %v", err)
				}
				infoOnly := testSite("example.com")
				infoOnly.Contents = nil
				infoOnly.Info.Status = model.SiteConnectionProblem
				if err := repo.SaveSite(ctx, infoOnly, true); err != nil {
					t.Fatalf("failed to overwrite site: %v", err)
				}

				site, err := repo.GetSite(ctx, "example.com", true, 0)
				if err != nil {
					t.Fatalf("failed to get site: %v", err)
				}
				if site.Contents != nil {
					t.Error("expected contents to be cleared")
				}
				if site.Info.ContentsTime != 0 {
					t.Errorf("expected zero contents time, got %d", site.Info.ContentsTime)
				}
				if site.Info.Status != model.SiteConnectionProblem {
					t.Errorf("expected connection_problem, got %s", site.Info.Status)
				}
			})

			t.Run("remove site", func(t *testing.T) {
				t.Parallel()
				repo := open(t)
				defer repo.Close()
				ctx := context.Background()

				if err := repo.RemoveSite(ctx, "example.com"); !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
				if err := repo.SaveSite(ctx, testSite("example.com"), false); err != nil {
					t.Fatalf("failed to save site: %v", err)
				}
				if err := repo.RemoveSite(ctx, "example.com"); err != nil {
					t.Fatalf("failed to remove site: %v", err)
				}
				site, err := repo.GetSite(ctx, "example.com", true, 0)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if site != nil {
					t.Error("expected site to be gone")
				}
			})

			t.Run("domains and sites are sorted", func(t *testing.T) {
				t.Parallel()
				repo := open(t)
				defer repo.Close()
				ctx := context.Background()

				for _, domain := range []string{"zeta.org", "alpha.com", "mid.net"} {
					if err := repo.SaveSite(ctx, testSite(domain), false); err != nil {
						t.Fatalf("failed to save %s: %v", domain, err)
					}
				}

				domains, err := repo.GetDomains(ctx)
				if err != nil {
					t.Fatalf("failed to get domains: %v", err)
				}
				expected := []string{"alpha.com", "mid.net", "zeta.org"}
				if len(domains) != len(expected) {
					t.Fatalf("expected %v, got %v", expected, domains)
				}
				for i := range expected {
					if domains[i] != expected[i] {
						t.Errorf("expected %v, got %v", expected, domains)
						break
					}
				}

				sites, err := repo.GetSites(ctx)
				if err != nil {
					t.Fatalf("failed to get sites: %v", err)
				}
				if len(sites) != 3 || sites[0].Domain != "alpha.com" || sites[0].PageCount != 2 {
					t.Errorf("unexpected sites %+v", sites)
				}
			})

			t.Run("update refresh flag", func(t *testing.T) {
				t.Parallel()
				repo := open(t)
				defer repo.Close()
				ctx := context.Background()

				if err := repo.UpdateRefreshEnabled(ctx, "example.com", false); !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
				if err := repo.SaveSite(ctx, testSite("example.com"), false); err != nil {
					t.Fatalf("failed to save site: %v", err)
				}
				if err := repo.UpdateRefreshEnabled(ctx, "example.com", false); err != nil {
					t.Fatalf("failed to update refresh flag: %v", err)
				}
				site, err := repo.GetSite(ctx, "example.com", true, 0)
				if err != nil {
					t.Fatalf("failed to get site: %v", err)
				}
				if site.Info.RefreshEnabled {
					t.Error("expected refresh to be disabled")
				}
				if site.Contents == nil {
					t.Error("expected contents to survive a flag update")
				}
			})

			t.Run("concurrent saves of different domains", func(t *testing.T) {
				t.Parallel()
				repo := open(t)
				defer repo.Close()
				ctx := context.Background()

				domains := []string{"a.com", "b.com", "c.com", "d.com", "e.com"}
				var wg sync.WaitGroup
				errs := make(chan error, len(domains)*5)
				for _, domain := range domains {
					wg.Add(1)
					go func(domain string) {
						defer wg.Done()
						for range 5 {
							errs <- repo.SaveSite(ctx, testSite(domain), true)
						}
					}(domain)
				}
				wg.Wait()
				close(errs)
				for err := range errs {
					if err != nil {
						t.Errorf("unexpected save error: %v", err)
					}
				}

				got, err := repo.GetDomains(ctx)
				if err != nil {
					t.Fatalf("failed to get domains: %v", err)
				}
				if len(got) != len(domains) {
					t.Errorf("expected %d domains, got %v", len(domains), got)
				}
			})
		})
	}
}

func TestMemoryIsolation(t *testing.T) {
	t.Parallel()

	repo := NewMemory()
	ctx := context.Background()
	site := testSite("example.com")
	if err := repo.SaveSite(ctx, site, false); err != nil {
		t.Fatalf("failed to save site: %v", err)
	}
	site.Contents.Pages[0].Title = "changed"

	got, err := repo.GetSite(ctx, "example.com", true, 0)
	if err != nil {
		t.Fatalf("failed to get site: %v", err)
	}
	if got.Contents.Pages[0].Title != "Home" {
		t.Errorf("expected stored title Home, got %q", got.Contents.Pages[0].Title)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("sqlite creates database file", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "nested", "data")
		repo, err := Open(KindSQLite, dir)
		if err != nil {
			t.Fatalf("failed to open repository: %v", err)
		}
		defer repo.Close()
		if _, err := os.Stat(filepath.Join(dir, DatabaseFile)); err != nil {
			t.Errorf("expected database file: %v", err)
		}
	})

	t.Run("file creates directories", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		repo, err := Open(KindFile, dir)
		if err != nil {
			t.Fatalf("failed to open repository: %v", err)
		}
		defer repo.Close()
		for _, sub := range []string{infoDir, contentsDir} {
			if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
				t.Errorf("expected %s directory: %v", sub, err)
			}
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()
		if _, err := Open("cassandra", t.TempDir()); !errors.Is(err, ErrUnknownStorage) {
			t.Errorf("expected ErrUnknownStorage, got %v", err)
		}
	})

	t.Run("sqlite without create fails on missing database", func(t *testing.T) {
		t.Parallel()
		_, err := OpenSQLite(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected time.Time
	}{
		{"2024-05-01T12:00:00.5Z", time.Date(2024, 5, 1, 12, 0, 0, 500000000, time.UTC)},
		{"2024-05-01 12:00:00", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"garbage", time.Time{}},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tc.input); !got.Equal(tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}
