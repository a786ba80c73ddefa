package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/webscrape/internal/model"
)

// MarkdownWriter renders a run summary for people: run properties, the
// crawled pages, downloaded files and the collected errors.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteSummary outputs the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writePages(md, summary)
	w.writeDownloads(md, summary)
	w.writeErrors(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.RunSummary) {
	md.H1("Scrape Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + s.ID + "`"},
			{"Seed", s.Seed},
			{"Output", "`" + s.OutputDir + "`"},
			{"Max Depth", strconv.Itoa(s.MaxDepth)},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration().Round(time.Millisecond).String()},
			{"Pages Scraped", strconv.Itoa(s.Pages)},
			{"Pages Failed", strconv.Itoa(s.Failed)},
			{"Files Saved", strconv.Itoa(s.Files)},
			{"Status", statusText(s)},
		},
	})
	md.PlainText("")

	if s.Pages+s.Failed > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Page Outcomes"),
			piechart.WithShowData(true),
		)
		if s.Pages > 0 {
			chart.LabelAndIntValue("Scraped", uint64(s.Pages))
		}
		if s.Failed > 0 {
			chart.LabelAndIntValue("Failed", uint64(s.Failed))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.Cancelled:
		md.Warning("The run was stopped before the frontier was exhausted. Data files were not written.")
	case len(s.Errors) > 0:
		md.Importantf("%d error(s) occurred during the run.", len(s.Errors))
	default:
		md.Tip("The run completed without errors.")
	}
	md.PlainText("")
}

func statusText(s *model.RunSummary) string {
	if s.Cancelled {
		return "Stopped"
	}
	return "Complete"
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, s *model.RunSummary) {
	md.H2("Pages")
	md.PlainText("")

	if len(s.Records) == 0 {
		md.PlainText("No pages were scraped.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Records))
	for i, rec := range s.Records {
		title := "-"
		if rec.Title != nil && *rec.Title != "" {
			title = truncateString(*rec.Title, 60)
		}
		links := "-"
		if rec.Links != nil {
			links = strconv.Itoa(len(rec.Links))
		}
		rows[i] = []string{rec.URL, title, links}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Title", "Links"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeDownloads(md *markdown.Markdown, s *model.RunSummary) {
	if len(s.Downloads) == 0 {
		return
	}

	md.H2("Downloads")
	md.PlainText("")

	rows := make([][]string, len(s.Downloads))
	for i, d := range s.Downloads {
		rows[i] = []string{d.FileName, d.Kind.String(), strconv.FormatInt(d.Bytes, 10), "`" + truncateString(d.Checksum, 16) + "`"}
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Kind", "Bytes", "SHA3-256"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, s *model.RunSummary) {
	md.H2("Errors")
	md.PlainText("")

	if len(s.Errors) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	md.BulletList(s.Errors...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by webscrape*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
