package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".znacky"

// File represents the structure of the .znacky configuration file.
// Zero values leave the corresponding Config field untouched.
type File struct {
	// SeedURL overrides the first catalogue page.
	SeedURL string `yaml:"seedUrl,omitempty"`

	// BaseURL overrides the prefix for next-page hrefs.
	BaseURL string `yaml:"baseUrl,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Encoding forces the page encoding.
	Encoding string `yaml:"encoding,omitempty"`

	// CrawlDelay is a duration string such as "500ms".
	CrawlDelay time.Duration `yaml:"crawlDelay,omitempty"`

	// Timeout is a duration string such as "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxPages limits the number of pages crawled.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Headers are extra request headers.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Apply copies every non-zero value of the file into cfg.
// Headers are merged, with file values winning.
func (cf *File) Apply(cfg *Config) {
	if cf.SeedURL != "" {
		cfg.SeedURL = cf.SeedURL
	}
	if cf.BaseURL != "" {
		cfg.BaseURL = cf.BaseURL
	}
	if cf.UserAgent != "" {
		cfg.UserAgent = cf.UserAgent
	}
	if cf.Encoding != "" {
		cfg.Encoding = cf.Encoding
	}
	if cf.CrawlDelay != 0 {
		cfg.CrawlDelay = cf.CrawlDelay
	}
	if cf.Timeout != 0 {
		cfg.Timeout = cf.Timeout
	}
	if cf.MaxPages != 0 {
		cfg.MaxPages = cf.MaxPages
	}
	if len(cf.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(cf.Headers))
		}
		for k, v := range cf.Headers {
			cfg.Headers[k] = v
		}
	}
	cfg.File = cf
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Headers == nil {
		cf.Headers = make(map[string]string)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .znacky in the current directory
// 3. Look for .znacky in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
