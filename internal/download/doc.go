// Package download saves the images of a crawl result into a directory.
//
// Each entry is handled on its own and in order: the image URL is
// percent-encoded with ':' and '/' kept literal, the file name is taken from
// the last path segment, and the body is copied into a new file. A failed
// entry is logged and skipped. Existing files are never overwritten.
//
// The target directory must exist before the pass starts. When it is unset
// or missing, DownloadAll returns a *ConfigurationError and writes nothing.
package download
