package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/scanner"
)

const listingHTML = `
<html><body>
  <article>
    <h2>First   headline</h2>
    <a href="/news/1">more</a>
    <p>Lead paragraph.</p>
    <time datetime="2024-05-01T07:30:00Z">1 May</time>
  </article>
  <article>
    <h2>Second headline</h2>
    <a href="https://other.example/2">more</a>
  </article>
  <article><span>nothing useful</span></article>
</body></html>`

func TestExtractItems(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	fetched := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	items := extractItems(doc, "https://example.org/list", scanner.Request{SourceName: "example"}, fetched)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "First headline" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.Permalink != "https://example.org/news/1" {
		t.Fatalf("unexpected link: %s", first.Permalink)
	}
	if first.BodyText != "Lead paragraph." {
		t.Fatalf("unexpected summary: %q", first.BodyText)
	}
	if !first.PublishedAt.Equal(time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %s", first.PublishedAt)
	}
	if first.SourceName != "example" || !first.FetchedAt.Equal(fetched) {
		t.Fatalf("unexpected metadata: %+v", first)
	}

	if items[1].Permalink != "https://other.example/2" {
		t.Fatalf("absolute link changed: %s", items[1].Permalink)
	}
	if !items[1].PublishedAt.IsZero() {
		t.Fatalf("expected zero date, got %s", items[1].PublishedAt)
	}
}

func TestExtractItemsCustomSelectors(t *testing.T) {
	t.Parallel()

	html := `<ul><li class="n"><b>Headline</b><a class="go" href="x.html">go</a></li></ul>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	req := scanner.Request{Options: map[string]string{"item": "li.n", "title": "b", "link": "a.go"}}
	items := extractItems(doc, "https://example.org/dir/", req, time.Now())
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "Headline" || items[0].Permalink != "https://example.org/dir/x.html" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if items[0].SourceName != unknownSource {
		t.Fatalf("unexpected source: %s", items[0].SourceName)
	}
}

func TestHTMLListScannerDeduplicatesAcrossPages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	s := NewHTMLListScanner(NewFetcher(srv.Client(), 0))
	items, err := s.Scan(context.Background(), scanner.Request{
		SourceName: "example",
		URLs:       []string{srv.URL + "/a", srv.URL + "/a"},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 unique items, got %d", len(items))
	}
}

func TestResolveLink(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                    "",
		"/a":                  "https://example.org/a",
		"b":                   "https://example.org/list/b",
		"https://x.example/c": "https://x.example/c",
	}
	for href, want := range cases {
		if got := resolveLink("https://example.org/list/", href); got != want {
			t.Fatalf("resolveLink(%q) = %q, want %q", href, got, want)
		}
	}
}
