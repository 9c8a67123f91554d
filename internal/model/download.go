package model

// SavedFile describes one image written to disk.
type SavedFile struct {
	// Index is the entry's position in the crawl result.
	Index int `json:"index"`

	// URL is the address the image was fetched from.
	URL string `json:"url"`

	// Path is the absolute path of the written file.
	Path string `json:"path"`

	// Bytes is the number of bytes copied.
	Bytes int64 `json:"bytes"`
}

// DownloadFailure describes one entry the downloader skipped.
type DownloadFailure struct {
	// Index is the entry's position in the crawl result.
	Index int `json:"index"`

	// URL is the entry's original image URL.
	URL string `json:"url"`

	// Reason is the error message that caused the skip.
	Reason string `json:"reason"`
}

// DownloadSummary is the outcome of one download pass.
type DownloadSummary struct {
	// Dir is the target directory.
	Dir string `json:"dir"`

	// Saved lists successfully written files in entry order.
	Saved []SavedFile `json:"saved"`

	// Failures lists skipped entries in entry order.
	Failures []DownloadFailure `json:"failures,omitempty"`

	// ConfigError is set when the whole pass was abandoned because the
	// target directory was unset or missing. No files are written then.
	ConfigError string `json:"config_error,omitempty"`
}

// NewDownloadSummary creates an empty summary for dir.
func NewDownloadSummary(dir string) *DownloadSummary {
	return &DownloadSummary{
		Dir:      dir,
		Saved:    make([]SavedFile, 0),
		Failures: make([]DownloadFailure, 0),
	}
}

// Attempted returns the number of entries the downloader tried.
func (s *DownloadSummary) Attempted() int {
	return len(s.Saved) + len(s.Failures)
}
