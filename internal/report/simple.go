package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/znacky/internal/database"
	"github.com/nao1215/znacky/internal/model"
)

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds the step list and saved file paths.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the session in human-readable format.
func (w *SimpleWriter) Write(session *model.Session) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, session)
	w.writeEntries(&sb, session.Entries())
	if session.Download != nil {
		w.writeDownload(&sb, session.Download)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the session information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, session *model.Session) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      TRAFFIC SIGN CATALOGUE\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed URL:       %s\n", session.SeedURL)
	fmt.Fprintf(sb, "Started:        %s\n", session.StartedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Pages Crawled:  %d\n", session.PagesVisited)
	fmt.Fprintf(sb, "Entries:        %d\n", session.Result.Len())
	fmt.Fprintf(sb, "Status:         %s\n", statusText(session.Status, session.ErrorMessage, session.Truncated))
	if w.verbose {
		fmt.Fprintf(sb, "Duration:       %s\n", session.Duration())
		fmt.Fprintf(sb, "Steps:          %s\n", strings.Join(session.PerformedSteps, ", "))
	}
	sb.WriteString("\n")
}

// writeEntries writes one two-line row per entry: caption, then image URL.
func (w *SimpleWriter) writeEntries(sb *strings.Builder, entries []model.ImageEntry) {
	writeSection(sb, "ENTRIES")

	if len(entries) == 0 {
		sb.WriteString("  No entries\n\n")
		return
	}

	width := len(fmt.Sprint(len(entries)))
	for i, e := range entries {
		caption, imageURL := model.DisplayRow(e)
		fmt.Fprintf(sb, "  %*d. %s\n", width, i+1, caption)
		fmt.Fprintf(sb, "  %s  %s\n", strings.Repeat(" ", width), imageURL)
	}
	sb.WriteString("\n")
}

// writeDownload writes the download pass outcome.
func (w *SimpleWriter) writeDownload(sb *strings.Builder, summary *model.DownloadSummary) {
	writeSection(sb, "DOWNLOAD")

	if summary.ConfigError != "" {
		fmt.Fprintf(sb, "  Skipped: %s\n\n", summary.ConfigError)
		return
	}

	fmt.Fprintf(sb, "  Directory: %s\n", summary.Dir)
	fmt.Fprintf(sb, "  Saved:     %d\n", len(summary.Saved))
	fmt.Fprintf(sb, "  Failed:    %d\n", len(summary.Failures))

	if w.verbose && len(summary.Saved) > 0 {
		sb.WriteString("\n")
		for _, s := range summary.Saved {
			fmt.Fprintf(sb, "  [+] %s (%d bytes)\n", s.Path, s.Bytes)
		}
	}
	if len(summary.Failures) > 0 {
		sb.WriteString("\n")
		for _, f := range summary.Failures {
			fmt.Fprintf(sb, "  [-] #%d %s\n      %s\n", f.Index+1, f.URL, f.Reason)
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the closing rule.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// WriteHistory outputs one line per stored session.
func (w *SimpleWriter) WriteHistory(records []database.SessionRecord) (int, error) {
	var sb strings.Builder

	if len(records) == 0 {
		sb.WriteString("No sessions recorded.\n")
		return w.output.Write([]byte(sb.String()))
	}

	fmt.Fprintf(&sb, "%-5s  %-23s  %6s  %7s  %-11s  %s\n", "ID", "STARTED", "PAGES", "ENTRIES", "DOWNLOADED", "STATUS")
	for _, r := range records {
		downloaded := "-"
		if r.Downloaded {
			downloaded = fmt.Sprintf("%d/%d", r.Saved, r.Saved+r.Failed)
		}
		fmt.Fprintf(&sb, "%-5d  %-23s  %6d  %7d  %-11s  %s\n",
			r.ID,
			r.StartedAt.Local().Format(timeLayout),
			r.PagesVisited,
			r.EntryCount,
			downloaded,
			statusText(r.Status, r.Error, r.Truncated),
		)
	}

	return w.output.Write([]byte(sb.String()))
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
