package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitemapper/internal/model"
)

// maxMarkdownPages caps the page table so huge sites stay readable.
const maxMarkdownPages = 500

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the site report in Markdown format.
func (w *MarkdownWriter) Write(site *model.Site) (int, error) {
	if site == nil {
		return 0, ErrNilSite
	}

	md := markdown.NewMarkdown(w.output)
	summary := Summarize(site)

	w.writeHeader(md, site.Info)
	w.writeAlert(md, site.Info)
	w.writeStatusSummary(md, summary)
	w.writePages(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSites outputs a table of site records.
func (w *MarkdownWriter) WriteSites(infos []*model.SiteInfo) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Sites")
	md.PlainText("")

	if len(infos) == 0 {
		md.PlainText("No sites.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = []string{
			"`" + info.Domain + "`",
			statusLabel(*info),
			strconv.Itoa(info.Progress) + "%",
			strconv.Itoa(info.PageCount),
			strconv.Itoa(info.LinkCount),
			strconv.FormatBool(info.RefreshEnabled),
			info.StatusTime.Format(timeFormat),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Status", "Progress", "Pages", "Links", "Refresh", "Updated"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with the site record.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, info model.SiteInfo) {
	md.H1("SiteMapper Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Domain", "`" + info.Domain + "`"},
			{"Status", w.getStatusText(info)},
			{"Details", orDash(info.StatusDescription)},
			{"Updated", info.StatusTime.Format(timeFormat)},
			{"Progress", strconv.Itoa(info.Progress) + "%"},
			{"Pages", strconv.Itoa(info.PageCount)},
			{"Links", strconv.Itoa(info.LinkCount)},
			{"Refresh", strconv.FormatBool(info.RefreshEnabled)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text with an indicator.
func (w *MarkdownWriter) getStatusText(info model.SiteInfo) string {
	switch info.Status {
	case model.SiteProcessed:
		return "✅ " + statusLabel(info)
	case model.SiteProcessedWithProblems:
		return "⚠️ " + statusLabel(info)
	case model.SiteConnectionProblem, model.SiteRobotsTxtProblem:
		return "❌ " + statusLabel(info)
	default:
		return "⏳ " + statusLabel(info)
	}
}

// writeAlert writes an alert matching the site status.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, info model.SiteInfo) {
	switch info.Status {
	case model.SiteConnectionProblem:
		md.Cautionf("The home page could not be crawled: %s", orDash(info.StatusDescription))
	case model.SiteRobotsTxtProblem:
		md.Cautionf("robots.txt does not allow crawling the home page: %s", orDash(info.StatusDescription))
	case model.SiteProcessedWithProblems:
		md.Warningf("Some pages could not be crawled: %s", orDash(info.StatusDescription))
	case model.SiteAdded, model.SiteProcessing:
		md.Note("The crawl has not finished. The page graph may be incomplete.")
	default:
		md.Tip("The site was crawled without problems.")
	}
	md.PlainText("")
}

// writeStatusSummary writes the page status table and pie chart.
func (w *MarkdownWriter) writeStatusSummary(md *markdown.Markdown, summary Summary) {
	md.H2("Page Status")
	md.PlainText("")

	if len(summary.StatusCounts) == 0 {
		md.PlainText("No pages stored.")
		md.PlainText("")
		return
	}

	total := 0
	rows := make([][]string, 0, len(summary.StatusCounts)+1)
	for _, c := range summary.StatusCounts {
		rows = append(rows, []string{c.Status.String(), strconv.Itoa(c.Count)})
		total += c.Count
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(total) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, summary)
}

// writePieChart writes a mermaid pie chart of the page status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Status Distribution"),
		piechart.WithShowData(true),
	)

	for _, c := range summary.StatusCounts {
		chart.LabelAndIntValue(c.Status.String(), uint64(c.Count)) //nolint:gosec // counts are non-negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes the page table, shallowest pages first.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, summary Summary) {
	if len(summary.Pages) == 0 {
		return
	}

	md.H2("Pages")
	md.PlainText("")

	pages := summary.Pages
	if len(pages) > maxMarkdownPages {
		pages = pages[:maxMarkdownPages]
	}

	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = []string{
			strconv.Itoa(p.ID),
			truncateString(p.URL, 80),
			truncateString(orDash(p.Title), 50),
			strconv.Itoa(p.DistanceFromRoot),
			strconv.Itoa(p.HTTPStatus),
			p.Status.String(),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "URL", "Title", "Distance", "HTTP", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	if hidden := len(summary.Pages) - len(pages); hidden > 0 {
		md.PlainTextf("... %d more page(s)", hidden)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [SiteMapper](https://github.com/nao1215/sitemapper)*")
}
