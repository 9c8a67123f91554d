package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// TestFetcherFetch tests page retrieval and error reporting.
func TestFetcherFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body text and sends headers", func(t *testing.T) {
		t.Parallel()

		headers := make(chan http.Header, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers <- r.Header.Clone()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>další :</body></html>"))
		}))
		defer server.Close()

		f := NewFetcher(server.Client(),
			WithUserAgent("znacky-test"),
			WithHeaders(map[string]string{"Cookie": "a=b"}),
		)
		body, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(body, "další :") {
			t.Errorf("expected body to contain page text, got %q", body)
		}
		got := <-headers
		if gotUA := got.Get("User-Agent"); gotUA != "znacky-test" {
			t.Errorf("expected User-Agent 'znacky-test', got %q", gotUA)
		}
		if gotCookie := got.Get("Cookie"); gotCookie != "a=b" {
			t.Errorf("expected Cookie 'a=b', got %q", gotCookie)
		}
	})

	t.Run("decodes charset from content type", func(t *testing.T) {
		t.Parallel()

		encoded, err := charmap.Windows1250.NewEncoder().String("Dopravní značka: B 1 Zákaz")
		if err != nil {
			t.Fatalf("failed to encode fixture: %v", err)
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=windows-1250")
			_, _ = w.Write([]byte(encoded))
		}))
		defer server.Close()

		body, err := NewFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if body != "Dopravní značka: B 1 Zákaz" {
			t.Errorf("expected decoded text, got %q", body)
		}
	})

	t.Run("forced encoding overrides detection", func(t *testing.T) {
		t.Parallel()

		encoded, err := charmap.Windows1250.NewEncoder().String("značka")
		if err != nil {
			t.Fatalf("failed to encode fixture: %v", err)
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(encoded))
		}))
		defer server.Close()

		body, err := NewFetcher(server.Client(), WithEncoding("windows-1250")).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if body != "značka" {
			t.Errorf("expected decoded text, got %q", body)
		}
	})

	t.Run("empty body is not an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		body, err := NewFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if body != "" {
			t.Errorf("expected empty body, got %q", body)
		}
	})

	t.Run("body over the size cap is a network error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<img alt="B 1 Zákaz" src="b1low.gif"><!--` + strings.Repeat("x", 64) + `--><a href="p2">další :</a>`))
		}))
		defer server.Close()

		_, err := NewFetcher(server.Client(), WithMaxBodySize(32)).Fetch(context.Background(), server.URL)
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected *NetworkError, got %v", err)
		}
		if !strings.Contains(netErr.Error(), "exceeds 32 bytes") {
			t.Errorf("unexpected error message %q", netErr.Error())
		}
	})

	t.Run("body exactly at the size cap is accepted", func(t *testing.T) {
		t.Parallel()

		page := strings.Repeat("a", 32)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(page))
		}))
		defer server.Close()

		body, err := NewFetcher(server.Client(), WithMaxBodySize(32)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if body != page {
			t.Errorf("expected %q, got %q", page, body)
		}
	})

	t.Run("non-2xx status is a network error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		}))
		defer server.Close()

		_, err := NewFetcher(server.Client()).Fetch(context.Background(), server.URL+"/missing")
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected *NetworkError, got %v", err)
		}
		if netErr.URL != server.URL+"/missing" {
			t.Errorf("expected error URL %q, got %q", server.URL+"/missing", netErr.URL)
		}
	})

	t.Run("malformed URL is a network error", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"://bad", "ftp://example.com/", "/relative/path", "http://"} {
			_, err := NewFetcher(nil).Fetch(context.Background(), raw)
			var netErr *NetworkError
			if !errors.As(err, &netErr) {
				t.Errorf("%q: expected *NetworkError, got %v", raw, err)
			}
		}
	})

	t.Run("connection refused is a network error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		_, err := NewFetcher(nil).Fetch(context.Background(), addr)
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected *NetworkError, got %v", err)
		}
	})
}

// TestValidateURL tests URL validation.
func TestValidateURL(t *testing.T) {
	t.Parallel()

	valid := []string{"http://www.celysvet.cz/", "HTTPS://example.com/a?b=c"}
	for _, raw := range valid {
		if err := ValidateURL(raw); err != nil {
			t.Errorf("%q: expected valid, got %v", raw, err)
		}
	}

	invalid := []string{"", "www.celysvet.cz", "mailto:a@b.c", "file:///etc/passwd"}
	for _, raw := range invalid {
		if err := ValidateURL(raw); !errors.Is(err, ErrUnsupportedURL) {
			t.Errorf("%q: expected ErrUnsupportedURL, got %v", raw, err)
		}
	}
}
