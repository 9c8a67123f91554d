package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/znacky/internal/crawler"
	"github.com/nao1215/znacky/internal/download"
	"github.com/nao1215/znacky/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCrawler appends fixed entries and returns a fixed error.
type fakeCrawler struct {
	entries []model.ImageEntry
	pages   int
	err     error
}

func (f *fakeCrawler) Crawl(_ context.Context, _ string, result *model.CrawlResult, sink crawler.ProgressSink) (crawler.Stats, error) {
	for _, e := range f.entries {
		result.Append(e)
		if sink != nil {
			sink.UpdateProgress()
		}
	}
	return crawler.Stats{PagesVisited: f.pages}, f.err
}

// fakeDownloader records the directory and entries it was given.
type fakeDownloader struct {
	gotDir     string
	gotEntries []model.ImageEntry
	summary    *model.DownloadSummary
	err        error
}

func (f *fakeDownloader) DownloadAll(_ context.Context, entries []model.ImageEntry, dir string) (*model.DownloadSummary, error) {
	f.gotDir = dir
	f.gotEntries = entries
	return f.summary, f.err
}

var testEntries = []model.ImageEntry{
	{Caption: "A1Zatáčka", ImageURL: "http://www.celysvet.cz/obr/a1hi.gif"},
	{Caption: "B1Zákaz vjezdu všech vozidel", ImageURL: "http://www.celysvet.cz/obr/b1hi.gif"},
}

// TestCrawlStepDo tests the crawl step.
func TestCrawlStepDo(t *testing.T) {
	t.Parallel()

	t.Run("fills the session result", func(t *testing.T) {
		t.Parallel()

		calls := 0
		step := NewCrawlStep(&fakeCrawler{entries: testEntries, pages: 2},
			WithProgressSink(crawler.ProgressFunc(func() { calls++ })),
			WithCrawlLogger(discardLogger()),
		)
		if step.Name() != "crawl" {
			t.Errorf("expected name 'crawl', got %q", step.Name())
		}

		session := model.NewSession(testSeedURL)
		if err := step.Do(context.Background(), session); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.Result.Len() != 2 || session.PagesVisited != 2 {
			t.Errorf("expected 2 entries from 2 pages, got %d from %d", session.Result.Len(), session.PagesVisited)
		}
		if calls != 2 {
			t.Errorf("expected 2 progress calls, got %d", calls)
		}
	})

	t.Run("failure keeps partial entries", func(t *testing.T) {
		t.Parallel()

		netErr := &crawler.NetworkError{URL: "http://www.celysvet.cz/p2", Err: errors.New("timeout")}
		step := NewCrawlStep(&fakeCrawler{entries: testEntries[:1], pages: 1, err: netErr},
			WithCrawlLogger(discardLogger()))

		session := model.NewSession(testSeedURL)
		err := step.Do(context.Background(), session)
		if !errors.Is(err, netErr) {
			t.Fatalf("expected network error, got %v", err)
		}
		if session.Result.Len() != 1 || session.PagesVisited != 1 {
			t.Errorf("expected partial result, got %d entries from %d pages", session.Result.Len(), session.PagesVisited)
		}
	})
}

// TestDownloadStepDo tests the download step.
func TestDownloadStepDo(t *testing.T) {
	t.Parallel()

	t.Run("passes entries and directory", func(t *testing.T) {
		t.Parallel()

		d := &fakeDownloader{summary: model.NewDownloadSummary("/tmp/znacky")}
		step := NewDownloadStep(d, "/tmp/znacky", WithDownloadLogger(discardLogger()))
		if step.Name() != "download" {
			t.Errorf("expected name 'download', got %q", step.Name())
		}

		session := model.NewSession(testSeedURL)
		for _, e := range testEntries {
			session.Result.Append(e)
		}

		if err := step.Do(context.Background(), session); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.gotDir != "/tmp/znacky" || len(d.gotEntries) != 2 {
			t.Errorf("unexpected downloader input: %q %v", d.gotDir, d.gotEntries)
		}
		if session.Download != d.summary {
			t.Error("expected summary to be stored in the session")
		}
	})

	t.Run("configuration error does not fail the pipeline", func(t *testing.T) {
		t.Parallel()

		summary := model.NewDownloadSummary("")
		summary.ConfigError = "download directory: not set"
		d := &fakeDownloader{summary: summary, err: &download.ConfigurationError{Reason: "not set"}}

		session := model.NewSession(testSeedURL)
		if err := NewDownloadStep(d, "", WithDownloadLogger(discardLogger())).Do(context.Background(), session); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if session.Download == nil || session.Download.ConfigError == "" {
			t.Error("expected configuration error in the session summary")
		}
	})

	t.Run("cancellation fails the step", func(t *testing.T) {
		t.Parallel()

		d := &fakeDownloader{summary: model.NewDownloadSummary("/x"), err: context.Canceled}
		err := NewDownloadStep(d, "/x", WithDownloadLogger(discardLogger())).Do(context.Background(), model.NewSession(testSeedURL))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

// TestStepsEndToEnd runs the real crawler and downloader through the pipeline.
func TestStepsEndToEnd(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/seed", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html><body>
<img alt="Dopravní značka: A 1 Zatáčka" src="/obr/a1low.gif">
<a href="././dalsi">další :</a></body></html>`)
	})
	mux.HandleFunc("/dalsi", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html><body>
<img alt="Dopravní značka: B 1 Zákaz vjezdu všech vozidel" src="/obr/b1low.gif">
</body></html>`)
	})
	mux.HandleFunc("/obr/a1hi.gif", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "GIF89a-a1")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := crawler.New(
		crawler.NewFetcher(server.Client(), crawler.WithFetcherLogger(discardLogger())),
		crawler.NewExtractor(crawler.WithBaseURL(server.URL+"/"), crawler.WithExtractorLogger(discardLogger())),
		crawler.WithLogger(discardLogger()),
	)
	d := download.New(server.Client(), download.WithBaseURL(server.URL+"/"), download.WithLogger(discardLogger()))
	dir := t.TempDir()

	p := New(WithLogger(discardLogger()))
	p.AddSteps(
		NewCrawlStep(c, WithCrawlLogger(discardLogger())),
		NewDownloadStep(d, dir, WithDownloadLogger(discardLogger())),
	)

	session := model.NewSession(server.URL + "/seed")
	if err := p.Execute(context.Background(), session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.Result.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", session.Result.Len())
	}
	if len(session.Download.Saved) != 1 || len(session.Download.Failures) != 1 {
		t.Errorf("expected 1 saved and 1 failed image, got %+v", session.Download)
	}
	if session.Download.Failures[0].Index != 1 {
		t.Errorf("expected entry 1 to fail, got %+v", session.Download.Failures[0])
	}
	if got := session.PerformedSteps; len(got) != 2 || got[0] != "crawl" || got[1] != "download" {
		t.Errorf("unexpected performed steps %v", got)
	}
}
