package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/znacky/internal/database"
	"github.com/nao1215/znacky/internal/model"
)

// JSONWriter outputs sessions in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is recorded in session reports when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the program version in every session report.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// SessionReport is the JSON document written for one session.
type SessionReport struct {
	// Version is the znacky version that generated the report.
	Version string `json:"version,omitempty"`

	// Session carries the session metadata and download summary.
	Session *model.Session `json:"session"`

	// Entries lists the extracted entries in crawl order.
	Entries []model.ImageEntry `json:"entries"`
}

// NewSessionReport creates the JSON document for session.
func NewSessionReport(session *model.Session, version string) *SessionReport {
	entries := session.Entries()
	if entries == nil {
		entries = make([]model.ImageEntry, 0)
	}
	return &SessionReport{
		Version: version,
		Session: session,
		Entries: entries,
	}
}

// Write outputs the session in JSON format.
func (w *JSONWriter) Write(session *model.Session) (int, error) {
	return w.writeJSON(NewSessionReport(session, w.version))
}

// historyRecord is the JSON form of a database.SessionRecord.
type historyRecord struct {
	ID            int64               `json:"id"`
	SeedURL       string              `json:"seed_url"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    time.Time           `json:"finished_at"`
	Status        model.SessionStatus `json:"status"`
	PagesVisited  int                 `json:"pages_visited"`
	Truncated     bool                `json:"truncated,omitempty"`
	EntryCount    int                 `json:"entry_count"`
	Error         string              `json:"error,omitempty"`
	Downloaded    bool                `json:"downloaded"`
	Saved         int                 `json:"saved"`
	Failed        int                 `json:"failed"`
	DownloadError string              `json:"download_error,omitempty"`
}

// WriteHistory outputs the stored sessions as a JSON array.
func (w *JSONWriter) WriteHistory(records []database.SessionRecord) (int, error) {
	out := make([]historyRecord, len(records))
	for i, r := range records {
		out[i] = historyRecord(r)
	}
	return w.writeJSON(out)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}
