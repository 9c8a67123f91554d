package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/znacky/internal/model"
)

// PageFetcher retrieves the HTML text of a page. *Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Crawler follows "next page" links from a seed page and collects entries.
type Crawler struct {
	// fetcher retrieves page HTML.
	fetcher PageFetcher

	// extractor parses entries and the next-page link.
	extractor *Extractor

	// limiter paces page requests. Nil means no delay.
	limiter *rate.Limiter

	// maxPages stops the crawl after this many pages. 0 means no limit.
	maxPages int

	logger *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithDelay sets the minimum interval between two page requests.
// Zero or negative disables pacing.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		if d <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMaxPages stops the crawl after n pages even if a next link exists.
// 0 means no limit.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n >= 0 {
			c.maxPages = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler.
func New(fetcher PageFetcher, extractor *Extractor, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:   fetcher,
		extractor: extractor,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Stats contains crawl statistics.
type Stats struct {
	// PagesVisited is the number of pages fetched and parsed.
	PagesVisited int

	// Truncated is true when the crawl stopped at the page limit while a
	// next link was still present.
	Truncated bool
}

// Crawl fetches seedURL and every page reachable through next-page links,
// appending each entry to result and calling sink.UpdateProgress after each
// append. It returns when a page has no next link.
//
// A fetch failure returns the *NetworkError, a bad alt text the
// *FormatError; entries appended before the failure stay in result.
func (c *Crawler) Crawl(ctx context.Context, seedURL string, result *model.CrawlResult, sink ProgressSink) (Stats, error) {
	if sink == nil {
		sink = noopSink{}
	}

	var stats Stats
	visited := make(map[string]struct{})
	pageURL := seedURL

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if _, seen := visited[pageURL]; seen {
			return stats, fmt.Errorf("%w: %s", ErrCrawlLoop, pageURL)
		}
		visited[pageURL] = struct{}{}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return stats, err
			}
		}

		html, err := c.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			c.logger.Error("page fetch failed", "url", pageURL, "page", stats.PagesVisited+1, "error", err)
			return stats, err
		}
		stats.PagesVisited++

		before := result.Len()
		next, err := c.extractor.ExtractEach(html, func(entry model.ImageEntry) {
			result.Append(entry)
			sink.UpdateProgress()
		})
		if err != nil {
			c.logger.Error("page extraction failed", "url", pageURL, "index", result.Len(), "error", err)
			return stats, err
		}

		c.logger.Info("page crawled",
			"url", pageURL,
			"page", stats.PagesVisited,
			"entries", result.Len()-before,
			"total", result.Len(),
		)

		if next == "" {
			return stats, nil
		}

		if c.maxPages > 0 && stats.PagesVisited >= c.maxPages {
			c.logger.Warn("page limit reached, stopping crawl", "limit", c.maxPages, "next", next)
			stats.Truncated = true
			return stats, nil
		}

		pageURL = next
	}
}
