package crawler

import (
	"errors"
	"fmt"
)

// ErrCrawlLoop is returned when a next-page link points at a page that was
// already visited in the same crawl.
var ErrCrawlLoop = errors.New("next-page link points to an already visited page")

// ErrUnsupportedURL is returned for URLs that are not absolute http(s) URLs.
var ErrUnsupportedURL = errors.New("unsupported URL: must be an absolute http or https URL")

// NetworkError reports a failed fetch of a page or an image.
type NetworkError struct {
	// URL is the address that could not be fetched.
	URL string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// FormatError reports an alt text that has no space between the sign code
// and its description.
type FormatError struct {
	// Input is the alt text after prefix removal and trimming.
	Input string
}

// Error implements error.
func (e *FormatError) Error() string {
	return fmt.Sprintf("caption %q has no space between sign code and description", e.Input)
}
