package download

import (
	"errors"
	"fmt"
)

// ErrFileExists is returned when the derived file name is already taken in
// the target directory.
var ErrFileExists = errors.New("file already exists")

// ErrNoFileName is returned when a URL path has no usable last segment.
var ErrNoFileName = errors.New("image URL has no file name")

// ConfigurationError reports a target directory that is unset, missing or
// not a directory. The whole download pass is abandoned.
type ConfigurationError struct {
	// Dir is the configured directory, possibly empty.
	Dir string

	// Reason describes what is wrong with Dir.
	Reason string
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	if e.Dir == "" {
		return "download directory: " + e.Reason
	}
	return fmt.Sprintf("download directory %s: %s", e.Dir, e.Reason)
}

// EntryError reports why a single entry was skipped.
type EntryError struct {
	// Index is the entry's position in the crawl result.
	Index int

	// URL is the entry's image URL as extracted.
	URL string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d (%s): %v", e.Index, e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EntryError) Unwrap() error {
	return e.Err
}
