package report

import (
	"io"

	"github.com/nao1215/znacky/internal/database"
	"github.com/nao1215/znacky/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs one session: its entries and download outcome.
	// Returns the number of bytes written and any error encountered.
	Write(session *model.Session) (int, error)

	// WriteHistory outputs a list of stored sessions.
	WriteHistory(records []database.SessionRecord) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the session to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(session *model.Session) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(session)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory outputs the history to all configured Writers.
func (m *MultiWriter) WriteHistory(records []database.SessionRecord) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(records)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// timeLayout is used for every timestamp in text and Markdown output.
const timeLayout = "2006-01-02 15:04:05 MST"

// statusText describes how a session ended.
func statusText(status model.SessionStatus, errMsg string, truncated bool) string {
	switch {
	case status == model.StatusFailed && errMsg != "":
		return "Failed - " + errMsg
	case status == model.StatusFailed:
		return "Failed"
	case status == model.StatusRunning:
		return "Running"
	case truncated:
		return "Complete (page limit reached)"
	default:
		return "Complete"
	}
}
