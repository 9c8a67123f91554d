package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/nao1215/znacky/internal/crawler"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "znacky"

	// DefaultSeedURL is the first page of the traffic-sign catalogue.
	DefaultSeedURL = "http://www.celysvet.cz/test-znalosti-dopravnich-znacek-databaze"

	// DefaultBaseURL is prepended to next-page hrefs and resolves relative
	// image sources.
	DefaultBaseURL = crawler.DefaultBaseURL

	// DefaultTimeout applies to each page and image request.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDelay is the minimum interval between page requests.
	// Zero sends the next request as soon as the previous page is parsed.
	DefaultCrawlDelay = time.Duration(0)

	// DefaultMaxPages of 0 follows next links until the last page.
	DefaultMaxPages = 0

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = crawler.DefaultUserAgent

	// DefaultMaxBodySize limits how much of a page body is read.
	DefaultMaxBodySize = crawler.DefaultMaxBodySize
)

// Config holds all configuration options for znacky.
// It is populated from defaults, the .znacky file and CLI flags, in that
// order, and passed down explicitly.
type Config struct {
	// SeedURL is the first catalogue page fetched.
	SeedURL string

	// BaseURL is prepended to next-page hrefs. It also resolves image
	// sources that are not absolute.
	BaseURL string

	// Timeout is the per-request timeout for pages and images.
	Timeout time.Duration

	// CrawlDelay is the minimum interval between two page requests.
	CrawlDelay time.Duration

	// MaxPages stops the crawl after this many pages. 0 means no limit.
	MaxPages int

	// MaxBodySize is the maximum page body size in bytes to read.
	// 0 means DefaultMaxBodySize.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// Encoding forces the page encoding by WHATWG label, e.g. "windows-1250".
	// Empty means detect it from the response.
	Encoding string

	// Headers are extra request headers, e.g. a Cookie.
	Headers map[string]string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit path to the configuration file.
	// If empty, .znacky is searched in the current and the home directory.
	ConfigFilePath string

	// File is the loaded configuration file, nil if none was found.
	File *File

	// TargetDir is the download directory given on the command line.
	// Empty means the default directory from the settings file.
	TargetDir string

	// SettingsPath is the settings file location.
	SettingsPath string

	// JSONReport outputs the entry list as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport outputs the entry list as Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory of the history database.
	DBDir string

	// SaveToDB records each session in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		SeedURL:      DefaultSeedURL,
		BaseURL:      DefaultBaseURL,
		Timeout:      DefaultTimeout,
		CrawlDelay:   DefaultCrawlDelay,
		MaxPages:     DefaultMaxPages,
		MaxBodySize:  DefaultMaxBodySize,
		UserAgent:    DefaultUserAgent,
		SettingsPath: SettingsPath(),
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
	}
}

// XDGDataDir returns the XDG data directory for znacky.
// On Linux: ~/.local/share/znacky
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for znacky.
// On Linux: ~/.config/znacky
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SeedURL) == "" {
		return ErrNoSeedURL
	}
	if !isHTTPURL(c.SeedURL) {
		return ErrInvalidSeedURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.Encoding != "" {
		if _, err := htmlindex.Get(c.Encoding); err != nil {
			return ErrInvalidEncoding
		}
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
