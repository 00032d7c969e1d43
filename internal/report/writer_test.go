package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitemapper/internal/model"
)

// createTestSite creates a crawled site with sample data for testing.
func createTestSite() *model.Site {
	return &model.Site{
		Info: model.SiteInfo{
			Domain:            "example.com",
			Progress:          100,
			Status:            model.SiteProcessedWithProblems,
			StatusDescription: "Failed to process 1 page(s)",
			StatusTime:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			PageCount:         4,
			LinkCount:         4,
			RefreshEnabled:    true,
		},
		Contents: &model.SiteContents{
			Pages: []model.Page{
				{ID: 0, URL: "http://example.com/", Title: "Home", DistanceFromRoot: 0, HTTPStatus: 200, Status: model.PageProcessed},
				{ID: 1, URL: "http://example.com/missing", DistanceFromRoot: 1, HTTPStatus: 404, Status: model.PageError},
				{ID: 2, URL: "http://example.com/about", Title: "About", DistanceFromRoot: 1, HTTPStatus: 200, Status: model.PageProcessed},
				{ID: 3, URL: "http://example.com/about/team", Title: "Team", DistanceFromRoot: 2, HTTPStatus: 200, Status: model.PageProcessed},
			},
			Links: []model.Link{
				{StartPageID: 0, EndPageID: 1},
				{StartPageID: 0, EndPageID: 2},
				{StartPageID: 2, EndPageID: 3},
				{StartPageID: 3, EndPageID: 0},
			},
		},
	}
}

func createTestInfos() []*model.SiteInfo {
	site := createTestSite()
	other := model.NewSiteInfo("example.org", time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	other.RefreshEnabled = false
	return []*model.SiteInfo{&site.Info, other}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	t.Run("counts statuses in display order", func(t *testing.T) {
		t.Parallel()

		s := Summarize(createTestSite())
		if len(s.StatusCounts) != 2 {
			t.Fatalf("expected 2 status counts, got %d", len(s.StatusCounts))
		}
		if s.StatusCounts[0].Status != model.PageProcessed || s.StatusCounts[0].Count != 3 {
			t.Errorf("expected 3 processed pages first, got %+v", s.StatusCounts[0])
		}
		if s.StatusCounts[1].Status != model.PageError || s.StatusCounts[1].Count != 1 {
			t.Errorf("expected 1 error page second, got %+v", s.StatusCounts[1])
		}
		if s.MaxDistance != 2 {
			t.Errorf("expected max distance 2, got %d", s.MaxDistance)
		}
	})

	t.Run("sorts pages by distance then URL", func(t *testing.T) {
		t.Parallel()

		s := Summarize(createTestSite())
		want := []string{
			"http://example.com/",
			"http://example.com/about",
			"http://example.com/missing",
			"http://example.com/about/team",
		}
		for i, p := range s.Pages {
			if p.URL != want[i] {
				t.Errorf("page %d: expected %s, got %s", i, want[i], p.URL)
			}
		}
	})

	t.Run("does not reorder the site", func(t *testing.T) {
		t.Parallel()

		site := createTestSite()
		Summarize(site)
		if site.Contents.Pages[1].URL != "http://example.com/missing" {
			t.Errorf("expected site pages untouched, got %s", site.Contents.Pages[1].URL)
		}
	})

	t.Run("site without contents", func(t *testing.T) {
		t.Parallel()

		s := Summarize(&model.Site{Info: *model.NewSiteInfo("example.com", time.Now())})
		if len(s.StatusCounts) != 0 || len(s.Pages) != 0 {
			t.Errorf("expected empty summary, got %+v", s)
		}
	})
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "SITEMAPPER REPORT") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "example.com") {
			t.Error("expected output to contain domain")
		}
		if !strings.Contains(output, "Processed with problems") {
			t.Error("expected output to contain site status")
		}
		if !strings.Contains(output, "Failed to process 1 page(s)") {
			t.Error("expected output to contain status description")
		}
	})

	t.Run("writes page status breakdown", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "PAGE STATUS") {
			t.Error("expected output to contain page status section")
		}
		if !strings.Contains(output, "PROCESSED:") || !strings.Contains(output, "ERROR:") {
			t.Errorf("expected status counts, got: %s", output)
		}
		if !strings.Contains(output, "Status: error (HTTP 404)") {
			t.Errorf("expected failed page details, got: %s", output)
		}
	})

	t.Run("limits listed pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithTopPages(2))

		if _, err := w.Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, "/about/team") {
			t.Error("expected deepest page to be hidden")
		}
		if !strings.Contains(output, "2 more page(s)") {
			t.Errorf("expected hidden page count, got: %s", output)
		}
	})

	t.Run("verbose mode lists every page", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithTopPages(1), WithVerbose(true))

		if _, err := w.Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "/about/team") {
			t.Error("expected verbose output to list every page")
		}
	})

	t.Run("site without contents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		site := &model.Site{Info: *model.NewSiteInfo("example.com", time.Now())}

		if _, err := w.Write(site); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, "PAGES") {
			t.Error("expected no page section")
		}
		if !strings.Contains(output, "Added") {
			t.Error("expected added status")
		}
	})

	t.Run("nil site", func(t *testing.T) {
		t.Parallel()

		if _, err := NewSimpleWriter(&bytes.Buffer{}).Write(nil); !errors.Is(err, ErrNilSite) {
			t.Errorf("expected ErrNilSite, got %v", err)
		}
	})

	t.Run("URLs are not HTML escaped", func(t *testing.T) {
		t.Parallel()

		site := createTestSite()
		site.Contents.Pages[0].URL = "http://example.com/?a=1&b=2"

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(site); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "?a=1&b=2") {
			t.Errorf("expected raw ampersand in output, got: %s", buf.String())
		}
	})

	t.Run("writes site listing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.WriteSites(createTestInfos()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[0], "DOMAIN") {
			t.Errorf("expected header line, got %q", lines[0])
		}
		if !strings.Contains(lines[1], "processed_with_problems") || !strings.Contains(lines[1], " on ") {
			t.Errorf("unexpected first row %q", lines[1])
		}
		if !strings.Contains(lines[2], "example.org") || !strings.Contains(lines[2], " off ") {
			t.Errorf("unexpected second row %q", lines[2])
		}
	})

	t.Run("writes empty listing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteSites(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "No sites.\n" {
			t.Errorf("expected %q, got %q", "No sites.\n", buf.String())
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed model.Site
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if parsed.Info.Domain != "example.com" {
			t.Errorf("expected domain %q, got %q", "example.com", parsed.Info.Domain)
		}
		if parsed.Info.Status != model.SiteProcessedWithProblems {
			t.Errorf("expected status %s, got %s", model.SiteProcessedWithProblems, parsed.Info.Status)
		}
		if parsed.Contents == nil || len(parsed.Contents.Pages) != 4 {
			t.Fatalf("expected 4 pages, got %+v", parsed.Contents)
		}
		if parsed.Contents.Pages[1].Status != model.PageError {
			t.Errorf("expected error page, got %s", parsed.Contents.Pages[1].Status)
		}
	})

	t.Run("statuses are written by name", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"status":"processed_with_problems"`) {
			t.Errorf("expected named site status, got: %s", buf.String())
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := strings.TrimSuffix(buf.String(), "\n")
		if strings.Contains(output, "\n") {
			t.Error("expected compact JSON without newlines")
		}
	})

	t.Run("pretty print output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "\n  \"info\"") {
			t.Errorf("expected indented JSON, got: %s", buf.String())
		}
	})

	t.Run("custom indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent("", "\t")).Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "\n\t\"info\"") {
			t.Errorf("expected tab indented JSON, got: %s", buf.String())
		}
	})

	t.Run("writes site listing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteSites(createTestInfos()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed []model.SiteInfo
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(parsed) != 2 || parsed[1].Domain != "example.org" {
			t.Errorf("expected 2 sites, got %+v", parsed)
		}
	})

	t.Run("empty listing is an array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteSites(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "[]\n" {
			t.Errorf("expected %q, got %q", "[]\n", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes info table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# SiteMapper Report") {
			t.Error("expected markdown title")
		}
		if !strings.Contains(output, "`example.com`") {
			t.Error("expected domain in info table")
		}
	})

	t.Run("writes warning alert for problems", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Errorf("expected warning alert, got: %s", buf.String())
		}
	})

	t.Run("writes caution alert for connection problem", func(t *testing.T) {
		t.Parallel()

		site := createTestSite()
		site.Info.Status = model.SiteConnectionProblem
		site.Contents = nil

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(site); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!CAUTION]") {
			t.Errorf("expected caution alert, got: %s", output)
		}
		if !strings.Contains(output, "No pages stored.") {
			t.Errorf("expected empty page status, got: %s", output)
		}
	})

	t.Run("writes tip for clean crawl", func(t *testing.T) {
		t.Parallel()

		site := createTestSite()
		site.Info.Status = model.SiteProcessed

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(site); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Errorf("expected tip alert, got: %s", buf.String())
		}
	})

	t.Run("writes pie chart and page table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestSite()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "pie") {
			t.Error("expected mermaid pie chart")
		}
		if !strings.Contains(output, "Page Status Distribution") {
			t.Error("expected pie chart title")
		}
		if !strings.Contains(output, "## Pages") {
			t.Error("expected page table")
		}
		if !strings.Contains(output, "http://example.com/about/team") {
			t.Error("expected page URL in table")
		}
	})

	t.Run("writes site listing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteSites(createTestInfos()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# Sites") {
			t.Error("expected listing title")
		}
		if !strings.Contains(output, "`example.org`") {
			t.Error("expected second site in listing")
		}
	})
}

// TestMultiWriter tests writing to several writers at once.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		w := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := w.Write(createTestSite())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected output in both writers")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var js bytes.Buffer
		w := NewMultiWriter(NewSimpleWriter(&bytes.Buffer{}), NewJSONWriter(&js))

		if _, err := w.Write(nil); !errors.Is(err, ErrNilSite) {
			t.Errorf("expected ErrNilSite, got %v", err)
		}
		if js.Len() != 0 {
			t.Error("expected second writer to be skipped")
		}
	})

	t.Run("writes listings", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		w := NewMultiWriter(NewSimpleWriter(&a), NewMarkdownWriter(&b))
		if _, err := w.WriteSites(createTestInfos()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("expected output in both writers")
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"ページタイトルです", 6, "ページ..."},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := truncateString(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
