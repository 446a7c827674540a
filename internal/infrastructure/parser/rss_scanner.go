package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/scanner"
)

const unknownSource = "Unknown"

// RSSScanner reads RSS/Atom/JSON feeds listed in the request.
type RSSScanner struct {
	fetcher *Fetcher
	now     func() time.Time
}

// NewRSSScanner wires a fetcher; nil uses an unthrottled default.
func NewRSSScanner(fetcher *Fetcher) *RSSScanner {
	if fetcher == nil {
		fetcher = NewFetcher(nil, 0)
	}
	return &RSSScanner{fetcher: fetcher, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan reads every feed URL. A failing feed does not stop the others; its
// error is returned joined with the rest alongside whatever was read.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("no urls provided for source %s", req.SourceName)
	}

	var (
		items []domain.Item
		errs  []error
	)
	for _, location := range req.URLs {
		feedItems, err := s.scanFeed(ctx, location, req.SourceName)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", location, err))
			continue
		}
		items = append(items, feedItems...)
	}

	return items, errors.Join(errs...)
}

func (s *RSSScanner) scanFeed(ctx context.Context, location, sourceName string) ([]domain.Item, error) {
	body, err := s.fetcher.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := strings.TrimSpace(feed.Title)
	if source == "" {
		source = strings.TrimSpace(sourceName)
	}
	if source == "" {
		source = unknownSource
	}

	fetchedAt := s.now().UTC()
	items := make([]domain.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		items = append(items, toItem(entry, source, fetchedAt))
	}
	return items, nil
}

func toItem(entry *gofeed.Item, source string, fetchedAt time.Time) domain.Item {
	title := strings.TrimSpace(entry.Title)
	summary := strings.TrimSpace(entry.Description)
	if summary == "" {
		summary = strings.TrimSpace(entry.Content)
	}
	link := strings.TrimSpace(entry.Link)

	var published time.Time
	switch {
	case entry.PublishedParsed != nil:
		published = entry.PublishedParsed.UTC()
	case entry.UpdatedParsed != nil:
		published = entry.UpdatedParsed.UTC()
	}

	return domain.Item{
		ID:          itemID(title, summary, link),
		Title:       title,
		BodyText:    summary,
		SourceName:  source,
		Permalink:   link,
		GUID:        strings.TrimSpace(entry.GUID),
		PublishedAt: published,
		FetchedAt:   fetchedAt,
	}
}
