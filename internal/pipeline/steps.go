package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/znacky/internal/crawler"
	"github.com/nao1215/znacky/internal/download"
	"github.com/nao1215/znacky/internal/model"
)

// PageCrawler follows next-page links from a seed URL. *crawler.Crawler
// implements it.
type PageCrawler interface {
	Crawl(ctx context.Context, seedURL string, result *model.CrawlResult, sink crawler.ProgressSink) (crawler.Stats, error)
}

// ImageDownloader saves entry images into a directory. *download.Downloader
// implements it.
type ImageDownloader interface {
	DownloadAll(ctx context.Context, entries []model.ImageEntry, dir string) (*model.DownloadSummary, error)
}

// CrawlStep collects the session's entries by crawling from its seed URL.
// A page fetch or caption format failure fails the step; entries found
// before the failure stay in the session.
type CrawlStep struct {
	crawler PageCrawler

	// sink is notified after each appended entry.
	sink crawler.ProgressSink

	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithProgressSink sets the sink notified after each appended entry.
func WithProgressSink(sink crawler.ProgressSink) CrawlStepOption {
	return func(s *CrawlStep) {
		s.sink = sink
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawling step.
func NewCrawlStep(c PageCrawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		crawler: c,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, session *model.Session) error {
	stats, err := s.crawler.Crawl(ctx, session.SeedURL, session.Result, s.sink)
	session.PagesVisited = stats.PagesVisited
	session.Truncated = stats.Truncated
	if err != nil {
		return err
	}

	s.logger.Info("crawl completed",
		"pages", stats.PagesVisited,
		"entries", session.Result.Len(),
	)
	return nil
}

// DownloadStep saves the images of the session's entries into a directory.
// An unset or missing directory abandons the pass without failing the
// pipeline; the session's download summary then carries the reason.
type DownloadStep struct {
	downloader ImageDownloader

	// dir is the target directory.
	dir string

	logger *slog.Logger
}

// DownloadStepOption configures a DownloadStep.
type DownloadStepOption func(*DownloadStep)

// WithDownloadLogger sets a custom logger for the download step.
func WithDownloadLogger(logger *slog.Logger) DownloadStepOption {
	return func(s *DownloadStep) {
		s.logger = logger
	}
}

// NewDownloadStep creates a download step that writes into dir.
func NewDownloadStep(d ImageDownloader, dir string, opts ...DownloadStepOption) *DownloadStep {
	s := &DownloadStep{
		downloader: d,
		dir:        dir,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return "download"
}

// Do executes the download step.
func (s *DownloadStep) Do(ctx context.Context, session *model.Session) error {
	summary, err := s.downloader.DownloadAll(ctx, session.Entries(), s.dir)
	session.Download = summary

	var cfgErr *download.ConfigurationError
	if errors.As(err, &cfgErr) {
		s.logger.Error("download abandoned", "error", cfgErr)
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("download completed",
		"saved", len(summary.Saved),
		"failed", len(summary.Failures),
		"dir", summary.Dir,
	)
	return nil
}
