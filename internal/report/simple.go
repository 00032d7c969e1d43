package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitemapper/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
type SimpleWriter struct {
	baseWriter

	// topPages is the number of pages listed. Zero hides the list.
	topPages int

	// verbose lists every page instead of the first topPages.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithTopPages sets the number of pages listed.
func WithTopPages(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if n >= 0 {
			w.topPages = n
		}
	}
}

// WithVerbose lists every page of the site.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		topPages:   defaultTopPages,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the site report in human-readable format.
func (w *SimpleWriter) Write(site *model.Site) (int, error) {
	if site == nil {
		return 0, ErrNilSite
	}
	var sb strings.Builder
	summary := Summarize(site)

	w.writeHeader(&sb, site.Info)
	w.writeStatusBreakdown(&sb, summary)
	w.writePages(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteSites outputs one line per site record.
func (w *SimpleWriter) WriteSites(infos []*model.SiteInfo) (int, error) {
	var sb strings.Builder

	if len(infos) == 0 {
		sb.WriteString("No sites.\n")
		return w.output.Write([]byte(sb.String()))
	}

	fmt.Fprintf(&sb, "%-40s %-24s %8s %6s %6s %-7s %s\n",
		"DOMAIN", "STATUS", "PROGRESS", "PAGES", "LINKS", "REFRESH", "UPDATED")
	for _, info := range infos {
		refresh := "off"
		if info.RefreshEnabled {
			refresh = "on"
		}
		fmt.Fprintf(&sb, "%-40s %-24s %7d%% %6d %6d %-7s %s\n",
			info.Domain,
			info.Status.String(),
			info.Progress,
			info.PageCount,
			info.LinkCount,
			refresh,
			info.StatusTime.Format(timeFormat),
		)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with the site record.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, info model.SiteInfo) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         SITEMAPPER REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Domain:         %s\n", info.Domain)
	fmt.Fprintf(sb, "Status:         %s\n", statusLabel(info))
	if info.StatusDescription != "" {
		fmt.Fprintf(sb, "Details:        %s\n", info.StatusDescription)
	}
	fmt.Fprintf(sb, "Updated:        %s\n", info.StatusTime.Format(timeFormat))
	fmt.Fprintf(sb, "Progress:       %d%%\n", info.Progress)
	fmt.Fprintf(sb, "Pages:          %d\n", info.PageCount)
	fmt.Fprintf(sb, "Links:          %d\n", info.LinkCount)
	fmt.Fprintf(sb, "Refresh:        %t\n", info.RefreshEnabled)
	sb.WriteString("\n")
}

// writeStatusBreakdown writes the number of pages per page status.
func (w *SimpleWriter) writeStatusBreakdown(sb *strings.Builder, summary Summary) {
	if len(summary.StatusCounts) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGE STATUS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, c := range summary.StatusCounts {
		fmt.Fprintf(sb, "  %-18s %d\n", strings.ToUpper(c.Status.String())+":", c.Count)
	}
	fmt.Fprintf(sb, "\n  Max distance from root: %d\n\n", summary.MaxDistance)
}

// writePages writes the pages closest to the root.
func (w *SimpleWriter) writePages(sb *strings.Builder, summary Summary) {
	pages := summary.Pages
	if !w.verbose {
		if w.topPages == 0 {
			return
		}
		if len(pages) > w.topPages {
			pages = pages[:w.topPages]
		}
	}
	if len(pages) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, p := range pages {
		fmt.Fprintf(sb, "  [%d] %s\n", p.DistanceFromRoot, p.URL)
		if p.Title != "" {
			fmt.Fprintf(sb, "      Title: %s\n", p.Title)
		}
		if p.Status != model.PageProcessed {
			fmt.Fprintf(sb, "      Status: %s (HTTP %d)\n", p.Status, p.HTTPStatus)
		}
	}
	if hidden := len(summary.Pages) - len(pages); hidden > 0 {
		fmt.Fprintf(sb, "\n  ... %d more page(s)\n", hidden)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by SiteMapper\n")
	sb.WriteString("https://github.com/nao1215/sitemapper\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
