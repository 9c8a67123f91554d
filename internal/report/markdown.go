package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/znacky/internal/database"
	"github.com/nao1215/znacky/internal/model"
)

// MarkdownWriter outputs sessions in GitHub Flavored Markdown.
// The entry table doubles as a printable sign catalogue.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the session in Markdown format.
func (w *MarkdownWriter) Write(session *model.Session) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, session)
	w.writeEntries(md, session.Entries())
	if session.Download != nil {
		w.writeDownload(md, session.Download)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the session property table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, session *model.Session) {
	md.H1("Traffic Sign Catalogue")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed URL", "`" + session.SeedURL + "`"},
			{"Started", session.StartedAt.Format(timeLayout)},
			{"Pages Crawled", strconv.Itoa(session.PagesVisited)},
			{"Entries", strconv.Itoa(session.Result.Len())},
			{"Status", w.statusCell(session)},
		},
	})
	md.PlainText("")

	if session.Status == model.StatusFailed {
		md.Warningf("The crawl stopped early: %s", session.ErrorMessage)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) statusCell(session *model.Session) string {
	text := statusText(session.Status, session.ErrorMessage, session.Truncated)
	switch {
	case session.Status == model.StatusFailed:
		return "❌ " + text
	case session.Truncated:
		return "⚠️ " + text
	default:
		return "✅ " + text
	}
}

// writeEntries writes the entry table.
func (w *MarkdownWriter) writeEntries(md *markdown.Markdown, entries []model.ImageEntry) {
	md.H2("Entries")
	md.PlainText("")

	if len(entries) == 0 {
		md.PlainText("No entries extracted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		caption, imageURL := model.DisplayRow(e)
		rows[i] = []string{
			strconv.Itoa(i + 1),
			escapeCell(caption),
			escapeCell(imageURL),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Caption", "Image URL"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeDownload writes the download outcome with a saved/failed chart.
func (w *MarkdownWriter) writeDownload(md *markdown.Markdown, summary *model.DownloadSummary) {
	md.H2("Download")
	md.PlainText("")

	if summary.ConfigError != "" {
		md.Cautionf("Download skipped: %s", summary.ConfigError)
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Directory", "Saved", "Failed"},
		Rows: [][]string{
			{"`" + summary.Dir + "`", strconv.Itoa(len(summary.Saved)), strconv.Itoa(len(summary.Failures))},
		},
	})
	md.PlainText("")

	if summary.Attempted() > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Download Outcome"),
			piechart.WithShowData(true),
		)
		if n := len(summary.Saved); n > 0 {
			chart.LabelAndIntValue("Saved", uint64(n))
		}
		if n := len(summary.Failures); n > 0 {
			chart.LabelAndIntValue("Failed", uint64(n))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if len(summary.Failures) == 0 {
		md.Tip("Every image was saved.")
		md.PlainText("")
		return
	}

	md.Importantf("%d image(s) were skipped.", len(summary.Failures))
	md.PlainText("")

	items := make([]string, len(summary.Failures))
	for i, f := range summary.Failures {
		items[i] = fmt.Sprintf("#%d `%s`: %s", f.Index+1, f.URL, f.Reason)
	}
	md.Details("Skipped images", strings.Join(items, "\n\n"))
	md.PlainText("")
}

// WriteHistory outputs the stored sessions as a table.
func (w *MarkdownWriter) WriteHistory(records []database.SessionRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl History")
	md.PlainText("")

	if len(records) == 0 {
		md.Note("No sessions recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		downloaded := "-"
		if r.Downloaded {
			downloaded = fmt.Sprintf("%d/%d", r.Saved, r.Saved+r.Failed)
		}
		rows[i] = []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format(timeLayout),
			strconv.Itoa(r.PagesVisited),
			strconv.Itoa(r.EntryCount),
			downloaded,
			escapeCell(statusText(r.Status, r.Error, r.Truncated)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Pages", "Entries", "Downloaded", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [znacky](https://github.com/nao1215/znacky)*")
}

// escapeCell keeps pipes in captions from splitting table cells.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
