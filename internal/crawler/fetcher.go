package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	zlog "github.com/nao1215/znacky/internal/log"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// Default fetcher settings.
const (
	// DefaultUserAgent is sent with every page request.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// DefaultMaxBodySize is the largest page body accepted.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024
)

// Fetcher retrieves the HTML text of a page with a plain HTTP GET.
type Fetcher struct {
	// client performs the requests.
	client *http.Client

	// userAgent is the User-Agent header value.
	userAgent string

	// headers are extra request headers, e.g. a Cookie.
	headers map[string]string

	// maxBodySize limits the bytes read from a response body.
	maxBodySize int64

	// encoding forces a character encoding by its WHATWG label.
	// Empty means detect from Content-Type, BOM and <meta> tags.
	encoding string

	logger *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithHeaders sets extra request headers sent with every request.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithMaxBodySize sets the maximum number of body bytes accepted per page.
// A larger page fails with *NetworkError.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithEncoding forces the page encoding, e.g. "windows-1250".
func WithEncoding(label string) FetcherOption {
	return func(f *Fetcher) {
		f.encoding = label
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher that uses client for requests.
// A nil client means http.DefaultClient.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch issues a GET for rawURL and returns the body as UTF-8 text.
// Every failure, including a non-2xx status, is returned as *NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ValidateURL(rawURL); err != nil {
		return "", &NetworkError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &NetworkError{URL: rawURL, Err: err}
	}
	f.setHeaders(req)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	f.logger.Debug("fetching page", "url", rawURL, zlog.HeaderAttr("headers", req.Header))

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &NetworkError{URL: rawURL, Err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return "", &NetworkError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(raw)) > f.maxBodySize {
		return "", &NetworkError{URL: rawURL, Err: fmt.Errorf("body exceeds %d bytes", f.maxBodySize)}
	}

	body, err := f.decode(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &NetworkError{URL: rawURL, Err: err}
	}

	text, err := io.ReadAll(body)
	if err != nil {
		return "", &NetworkError{URL: rawURL, Err: fmt.Errorf("decode body: %w", err)}
	}

	return string(text), nil
}

// setHeaders applies the User-Agent and the configured extra headers.
func (f *Fetcher) setHeaders(req *http.Request) {
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
}

// decode wraps body in a reader that yields UTF-8.
// A forced encoding wins; otherwise the encoding is detected from the
// Content-Type header, a BOM or <meta> tags, defaulting to UTF-8 when the
// bytes are valid UTF-8.
func (f *Fetcher) decode(body io.Reader, contentType string) (io.Reader, error) {
	if f.encoding != "" {
		enc, err := htmlindex.Get(f.encoding)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", f.encoding, err)
		}
		return enc.NewDecoder().Reader(body), nil
	}

	r, err := charset.NewReader(body, contentType)
	if errors.Is(err, io.EOF) {
		return strings.NewReader(""), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return r, nil
}

// ValidateURL checks that rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}
	return nil
}
