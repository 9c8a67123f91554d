package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/znacky/internal/model"
)

// mapFetcher serves pages from memory and records the fetch order.
type mapFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	fail    map[string]error
	fetched []string
}

func (f *mapFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	if err, ok := f.fail[url]; ok {
		return "", &NetworkError{URL: url, Err: err}
	}
	page, ok := f.pages[url]
	if !ok {
		return "", &NetworkError{URL: url, Err: errors.New("unexpected status: 404 Not Found")}
	}
	return page, nil
}

// catalogPage renders a catalogue page with one image per caption and an
// optional next link.
func catalogPage(next string, alts ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>")
	for i, alt := range alts {
		fmt.Fprintf(&b, `<tr><td><img alt="Dopravní značka: %s" src="/img/p%dlow.gif"></td></tr>`, alt, i)
	}
	b.WriteString("</table>")
	if next != "" {
		fmt.Fprintf(&b, `<p><a href="index.php">zpět</a> <a href="%s">další : 2</a></p>`, next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestCrawl tests multi-page crawling.
func TestCrawl(t *testing.T) {
	t.Parallel()

	t.Run("concatenates pages in order and reports progress per entry", func(t *testing.T) {
		t.Parallel()

		fetcher := &mapFetcher{pages: map[string]string{
			"http://site/seed": catalogPage("././p2?a=1&amp;b=2", "A 1 Zatáčka", "A 2 Dvojitá zatáčka"),
			"http://site/p2?a=1&b=2": catalogPage("././p3",
				"B 1 Zákaz vjezdu všech vozidel"),
			"http://site/p3": catalogPage("", "C 1 Kruhový objezd", "C 2 Přikázaný směr"),
		}}
		extractor := NewExtractor(WithBaseURL("http://site/"), WithExtractorLogger(discardLogger()))
		c := New(fetcher, extractor, WithLogger(discardLogger()))

		result := model.NewCrawlResult()
		type tick struct {
			count   int
			caption string
		}
		var ticks []tick
		sink := ProgressFunc(func() {
			n := result.Len()
			ticks = append(ticks, tick{count: n, caption: result.At(n - 1).Caption})
		})

		stats, err := c.Crawl(context.Background(), "http://site/seed", result, sink)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.PagesVisited != 3 {
			t.Errorf("expected 3 pages visited, got %d", stats.PagesVisited)
		}
		if stats.Truncated {
			t.Error("expected crawl not to be truncated")
		}

		want := []string{
			"A1Zatáčka",
			"A2Dvojitá zatáčka",
			"B1Zákaz vjezdu všech vozidel",
			"C1Kruhový objezd",
			"C2Přikázaný směr",
		}
		entries := result.Entries()
		if len(entries) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(entries))
		}
		for i, caption := range want {
			if entries[i].Caption != caption {
				t.Errorf("entry %d: expected caption %q, got %q", i, caption, entries[i].Caption)
			}
		}
		if entries[0].ImageURL != "/img/p0hi.gif" {
			t.Errorf("expected high resolution URL, got %q", entries[0].ImageURL)
		}

		if len(ticks) != len(want) {
			t.Fatalf("expected %d progress calls, got %d", len(want), len(ticks))
		}
		for i, tk := range ticks {
			if tk.count != i+1 {
				t.Errorf("progress call %d: expected count %d, got %d", i, i+1, tk.count)
			}
			if tk.caption != want[i] {
				t.Errorf("progress call %d: expected last caption %q, got %q", i, want[i], tk.caption)
			}
		}

		wantOrder := []string{"http://site/seed", "http://site/p2?a=1&b=2", "http://site/p3"}
		if strings.Join(fetcher.fetched, " ") != strings.Join(wantOrder, " ") {
			t.Errorf("expected fetch order %v, got %v", wantOrder, fetcher.fetched)
		}
	})

	t.Run("single page without next link", func(t *testing.T) {
		t.Parallel()

		fetcher := &mapFetcher{pages: map[string]string{
			"http://site/seed": catalogPage("", "P 1 Křižovatka s vedlejší pozemní komunikací"),
		}}
		c := New(fetcher, NewExtractor(WithBaseURL("http://site/")), WithLogger(discardLogger()))

		result := model.NewCrawlResult()
		stats, err := c.Crawl(context.Background(), "http://site/seed", result, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.PagesVisited != 1 || result.Len() != 1 {
			t.Errorf("expected 1 page and 1 entry, got %d pages and %d entries", stats.PagesVisited, result.Len())
		}
	})

	t.Run("fetch failure keeps earlier entries", func(t *testing.T) {
		t.Parallel()

		fetcher := &mapFetcher{
			pages: map[string]string{
				"http://site/seed": catalogPage("././p2", "A 1 Zatáčka", "A 2 Dvojitá zatáčka"),
			},
			fail: map[string]error{
				"http://site/p2": errors.New("connection reset by peer"),
			},
		}
		c := New(fetcher, NewExtractor(WithBaseURL("http://site/")), WithLogger(discardLogger()))

		result := model.NewCrawlResult()
		stats, err := c.Crawl(context.Background(), "http://site/seed", result, nil)
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected *NetworkError, got %v", err)
		}
		if netErr.URL != "http://site/p2" {
			t.Errorf("expected failing URL http://site/p2, got %q", netErr.URL)
		}
		if stats.PagesVisited != 1 {
			t.Errorf("expected 1 page visited, got %d", stats.PagesVisited)
		}
		if result.Len() != 2 {
			t.Errorf("expected 2 entries kept, got %d", result.Len())
		}
	})

	t.Run("format error stops the crawl", func(t *testing.T) {
		t.Parallel()

		fetcher := &mapFetcher{pages: map[string]string{
			"http://site/seed": catalogPage("././p2", "A 1 Zatáčka", "Logo"),
			"http://site/p2":   catalogPage("", "B 1 Zákaz"),
		}}
		c := New(fetcher, NewExtractor(WithBaseURL("http://site/")), WithLogger(discardLogger()))

		result := model.NewCrawlResult()
		_, err := c.Crawl(context.Background(), "http://site/seed", result, nil)
		var formatErr *FormatError
		if !errors.As(err, &formatErr) {
			t.Fatalf("expected *FormatError, got %v", err)
		}
		if result.Len() != 1 {
			t.Errorf("expected 1 entry before the bad alt text, got %d", result.Len())
		}
		if len(fetcher.fetched) != 1 {
			t.Errorf("expected no fetch after the format error, got %v", fetcher.fetched)
		}
	})

	t.Run("next link back to a visited page is a loop", func(t *testing.T) {
		t.Parallel()

		fetcher := &mapFetcher{pages: map[string]string{
			"http://site/seed": catalogPage("././p2", "A 1 Zatáčka"),
			"http://site/p2":   catalogPage("././seed", "A 2 Dvojitá zatáčka"),
		}}
		c := New(fetcher, NewExtractor(WithBaseURL("http://site/")), WithLogger(discardLogger()))

		result := model.NewCrawlResult()
		stats, err := c.Crawl(context.Background(), "http://site/seed", result, nil)
		if !errors.Is(err, ErrCrawlLoop) {
			t.Fatalf("expected ErrCrawlLoop, got %v", err)
		}
		if stats.PagesVisited != 2 || result.Len() != 2 {
			t.Errorf("expected 2 pages and 2 entries, got %d pages and %d entries", stats.PagesVisited, result.Len())
		}
	})

	t.Run("page limit truncates the crawl", func(t *testing.T) {
		t.Parallel()

		fetcher := &mapFetcher{pages: map[string]string{
			"http://site/seed": catalogPage("././p2", "A 1 Zatáčka"),
			"http://site/p2":   catalogPage("././p3", "A 2 Dvojitá zatáčka"),
			"http://site/p3":   catalogPage("", "A 3 Zatáčka vlevo"),
		}}
		c := New(fetcher, NewExtractor(WithBaseURL("http://site/")),
			WithLogger(discardLogger()),
			WithMaxPages(2),
		)

		result := model.NewCrawlResult()
		stats, err := c.Crawl(context.Background(), "http://site/seed", result, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !stats.Truncated {
			t.Error("expected crawl to be truncated")
		}
		if stats.PagesVisited != 2 || result.Len() != 2 {
			t.Errorf("expected 2 pages and 2 entries, got %d pages and %d entries", stats.PagesVisited, result.Len())
		}
	})

	t.Run("canceled context stops before fetching", func(t *testing.T) {
		t.Parallel()

		fetcher := &mapFetcher{pages: map[string]string{
			"http://site/seed": catalogPage("", "A 1 Zatáčka"),
		}}
		c := New(fetcher, NewExtractor(), WithLogger(discardLogger()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Crawl(ctx, "http://site/seed", model.NewCrawlResult(), nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(fetcher.fetched) != 0 {
			t.Errorf("expected no fetch, got %v", fetcher.fetched)
		}
	})
}

// TestCrawlOverHTTP tests the crawler with the real fetcher against a local server.
func TestCrawlOverHTTP(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/test-znalosti", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, catalogPage("././strana?s=2&amp;t=1", "B 1 Zákaz vjezdu všech vozidel"))
	})
	mux.HandleFunc("/strana", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("s") != "2" || r.URL.Query().Get("t") != "1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, catalogPage("", "B 2 Zákaz vjezdu"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(
		NewFetcher(server.Client(), WithFetcherLogger(discardLogger())),
		NewExtractor(WithBaseURL(server.URL+"/"), WithExtractorLogger(discardLogger())),
		WithLogger(discardLogger()),
	)

	result := model.NewCrawlResult()
	stats, err := c.Crawl(context.Background(), server.URL+"/test-znalosti", result, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.PagesVisited != 2 {
		t.Errorf("expected 2 pages visited, got %d", stats.PagesVisited)
	}
	entries := result.Entries()
	if len(entries) != 2 || entries[1].Caption != "B2Zákaz vjezdu" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

// TestCrawlOversizedPage tests that a page over the body cap fails the crawl
// instead of silently dropping its next link.
func TestCrawlOversizedPage(t *testing.T) {
	t.Parallel()

	var secondFetched bool
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/p1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<img alt="B 1 Zákaz vjezdu" src="/b1low.gif"><!--`+
			strings.Repeat("x", 4096)+`--><a href="p2">další :</a>`)
	})
	mux.HandleFunc("/p2", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		secondFetched = true
		mu.Unlock()
		_, _ = io.WriteString(w, catalogPage("", "B 2 Zákaz vjezdu"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(
		NewFetcher(server.Client(), WithMaxBodySize(1024), WithFetcherLogger(discardLogger())),
		NewExtractor(WithBaseURL(server.URL+"/"), WithExtractorLogger(discardLogger())),
		WithLogger(discardLogger()),
	)

	_, err := c.Crawl(context.Background(), server.URL+"/p1", model.NewCrawlResult(), nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
	if netErr.URL != server.URL+"/p1" {
		t.Errorf("expected error for the first page, got %q", netErr.URL)
	}

	mu.Lock()
	defer mu.Unlock()
	if secondFetched {
		t.Error("second page must not be fetched after an oversized page")
	}
}
