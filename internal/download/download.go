package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nao1215/znacky/internal/crawler"
	"github.com/nao1215/znacky/internal/model"
)

// malformedFragment is a broken anchor fragment that leaks into some image
// paths on the catalogue site. It is removed before the file name is taken.
const malformedFragment = "%3Ca-hre-"

// fileMode is the permission of written images.
const fileMode os.FileMode = 0o600

// Downloader fetches image URLs and writes them into a directory.
type Downloader struct {
	// client performs the requests.
	client *http.Client

	// base resolves image URLs that are not absolute. Nil leaves them
	// unresolved, which makes such entries fail.
	base *url.URL

	// userAgent is the User-Agent header value.
	userAgent string

	logger *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithBaseURL sets the URL relative image sources are resolved against.
// An unparsable value is ignored.
func WithBaseURL(baseURL string) Option {
	return func(d *Downloader) {
		if u, err := url.Parse(baseURL); err == nil && u.IsAbs() {
			d.base = u
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		d.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// New creates a Downloader. A nil client means http.DefaultClient.
func New(client *http.Client, opts ...Option) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	d := &Downloader{
		client:    client,
		userAgent: crawler.DefaultUserAgent,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// DownloadAll saves every entry's image into dir, in entry order.
//
// dir must name an existing directory; otherwise the returned summary has
// ConfigError set, the error is a *ConfigurationError and nothing is fetched.
// A failing entry is recorded in the summary and does not stop the pass.
// The only other error is the context's, when ctx ends between entries.
func (d *Downloader) DownloadAll(ctx context.Context, entries []model.ImageEntry, dir string) (*model.DownloadSummary, error) {
	summary := model.NewDownloadSummary(dir)

	absDir, err := checkDir(dir)
	if err != nil {
		d.logger.Error("download skipped", "dir", dir, "error", err)
		summary.ConfigError = err.Error()
		return summary, err
	}
	summary.Dir = absDir

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		saved, err := d.Download(ctx, i, entry, absDir)
		if err != nil {
			d.logger.Warn("image download failed", "index", i, "url", entry.ImageURL, "error", err)
			summary.Failures = append(summary.Failures, model.DownloadFailure{
				Index:  i,
				URL:    entry.ImageURL,
				Reason: failureReason(err),
			})
			continue
		}

		d.logger.Info("image saved", "index", i, "file", saved.Path, "bytes", saved.Bytes)
		summary.Saved = append(summary.Saved, saved)
	}

	return summary, nil
}

// Download saves the image of one entry into dir, which must exist.
// Every failure is returned as *EntryError.
func (d *Downloader) Download(ctx context.Context, index int, entry model.ImageEntry, dir string) (model.SavedFile, error) {
	fail := func(err error) (model.SavedFile, error) {
		return model.SavedFile{}, &EntryError{Index: index, URL: entry.ImageURL, Err: err}
	}

	u, err := d.resolve(entry.ImageURL)
	if err != nil {
		return fail(err)
	}

	name, err := FileName(u)
	if err != nil {
		return fail(err)
	}
	target := filepath.Join(dir, name)

	// Checked before the request so an existing file costs no traffic.
	if _, err := os.Lstat(target); err == nil {
		return fail(fmt.Errorf("%w: %s", ErrFileExists, target))
	}

	n, err := d.fetchTo(ctx, u.String(), target)
	if err != nil {
		return fail(err)
	}

	return model.SavedFile{
		Index: index,
		URL:   entry.ImageURL,
		Path:  target,
		Bytes: n,
	}, nil
}

// resolve turns an extracted image URL into an absolute, fetchable URL.
func (d *Downloader) resolve(imageURL string) (*url.URL, error) {
	u, err := url.Parse(EncodeImageURL(imageURL))
	if err != nil {
		return nil, fmt.Errorf("parse image URL: %w", err)
	}
	if !u.IsAbs() && d.base != nil {
		u = d.base.ResolveReference(u)
	}
	if err := crawler.ValidateURL(u.String()); err != nil {
		return nil, err
	}
	return u, nil
}

// fetchTo copies the body of rawURL into a newly created file at target.
// A partially written file is removed.
func (d *Downloader) fetchTo(ctx context.Context, rawURL, target string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, &crawler.NetworkError{URL: rawURL, Err: err}
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, &crawler.NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &crawler.NetworkError{URL: rawURL, Err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}

	f, err := os.OpenFile(filepath.Clean(target), os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, fmt.Errorf("%w: %s", ErrFileExists, target)
		}
		return 0, fmt.Errorf("create file: %w", err)
	}

	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		if rmErr := os.Remove(target); rmErr != nil {
			d.logger.Debug("failed to remove partial file", "file", target, "error", rmErr)
		}
		if copyErr != nil {
			return 0, &crawler.NetworkError{URL: rawURL, Err: fmt.Errorf("copy body: %w", copyErr)}
		}
		return 0, fmt.Errorf("close file: %w", closeErr)
	}

	return n, nil
}

// formEncodingFixes aligns url.QueryEscape with HTML form encoding, which
// leaves '*' literal and escapes '~'.
var formEncodingFixes = strings.NewReplacer("%2A", "*", "~", "%7E")

// EncodeImageURL percent-encodes imageURL with form-encoding rules and then
// turns "%3A" and "%2F" back into ':' and '/', so the scheme and path
// separators stay literal while spaces and non-ASCII characters stay encoded.
func EncodeImageURL(imageURL string) string {
	encoded := formEncodingFixes.Replace(url.QueryEscape(imageURL))
	encoded = strings.ReplaceAll(encoded, "%3A", ":")
	return strings.ReplaceAll(encoded, "%2F", "/")
}

// FileName returns the last segment of the escaped path of u, with the
// malformed "%3Ca-hre-" fragment removed. The segment stays percent-encoded.
func FileName(u *url.URL) (string, error) {
	p := strings.ReplaceAll(u.EscapedPath(), malformedFragment, "")
	name := path.Base(p)
	switch name {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %s", ErrNoFileName, u.String())
	}
	return name, nil
}

// checkDir verifies that dir is set and names an existing directory and
// returns its absolute form.
func checkDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", &ConfigurationError{Reason: "not set"}
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &ConfigurationError{Dir: dir, Reason: "does not exist"}
		}
		return "", &ConfigurationError{Dir: dir, Reason: err.Error()}
	}
	if !info.IsDir() {
		return "", &ConfigurationError{Dir: dir, Reason: "not a directory"}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &ConfigurationError{Dir: dir, Reason: err.Error()}
	}
	return abs, nil
}

// failureReason returns the cause without the entry prefix, which the
// summary already records separately.
func failureReason(err error) string {
	var entryErr *EntryError
	if errors.As(err, &entryErr) {
		return entryErr.Err.Error()
	}
	return err.Error()
}
