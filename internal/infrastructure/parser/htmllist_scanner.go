package parser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/scanner"
)

// Selector option keys and their defaults.
const (
	optItem     = "item"
	optTitle    = "title"
	optLink     = "link"
	optSummary  = "summary"
	optDate     = "date"
	optDateAttr = "dateAttr"
	optLayout   = "dateLayout"
)

var defaultSelectors = map[string]string{
	optItem:     "article",
	optTitle:    "h1, h2, h3",
	optLink:     "a[href]",
	optSummary:  "p",
	optDate:     "time",
	optDateAttr: "datetime",
	optLayout:   time.RFC3339,
}

// HTMLListScanner scrapes listing pages that have no feed, using CSS selectors
// from the source options.
type HTMLListScanner struct {
	fetcher *Fetcher
	now     func() time.Time
}

// NewHTMLListScanner wires a fetcher; nil uses an unthrottled default.
func NewHTMLListScanner(fetcher *Fetcher) *HTMLListScanner {
	if fetcher == nil {
		fetcher = NewFetcher(nil, 0)
	}
	return &HTMLListScanner{fetcher: fetcher, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (s *HTMLListScanner) Name() string {
	return "htmllist"
}

// Scan walks through each listing URL and extracts one item per matched block.
func (s *HTMLListScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("no urls provided for source %s", req.SourceName)
	}

	var (
		results []domain.Item
		errs    []error
	)
	seen := map[string]struct{}{}

	for _, pageURL := range req.URLs {
		doc, err := s.fetchDocument(ctx, pageURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("page %s: %w", pageURL, err))
			continue
		}

		for _, item := range extractItems(doc, pageURL, req, s.now().UTC()) {
			if _, ok := seen[item.ID]; ok {
				continue
			}
			seen[item.ID] = struct{}{}
			results = append(results, item)
		}
	}

	return results, errors.Join(errs...)
}

func (s *HTMLListScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := s.fetcher.Open(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func extractItems(doc *goquery.Document, pageURL string, req scanner.Request, fetchedAt time.Time) []domain.Item {
	opt := func(key string) string { return req.Option(key, defaultSelectors[key]) }

	source := strings.TrimSpace(req.SourceName)
	if source == "" {
		source = unknownSource
	}

	var items []domain.Item
	doc.Find(opt(optItem)).Each(func(_ int, block *goquery.Selection) {
		item, ok := parseBlock(block, pageURL, opt)
		if !ok {
			return
		}
		item.SourceName = source
		item.FetchedAt = fetchedAt
		items = append(items, item)
	})
	return items
}

func parseBlock(block *goquery.Selection, pageURL string, opt func(string) string) (domain.Item, bool) {
	title := strings.Join(strings.Fields(block.Find(opt(optTitle)).First().Text()), " ")

	href, _ := block.Find(opt(optLink)).First().Attr("href")
	link := resolveLink(pageURL, strings.TrimSpace(href))

	summary := strings.Join(strings.Fields(block.Find(opt(optSummary)).First().Text()), " ")

	if title == "" && link == "" {
		return domain.Item{}, false
	}

	var published time.Time
	dateSel := block.Find(opt(optDate)).First()
	dateText, ok := dateSel.Attr(opt(optDateAttr))
	if !ok {
		dateText = dateSel.Text()
	}
	if parsed, err := time.Parse(opt(optLayout), strings.TrimSpace(dateText)); err == nil {
		published = parsed.UTC()
	}

	return domain.Item{
		ID:          itemID(title, summary, link),
		Title:       title,
		BodyText:    summary,
		Permalink:   link,
		PublishedAt: published,
	}, true
}

func resolveLink(base, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
