package parser

import (
	"context"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
)

// FeedSource reads one feed location as an ItemSource. The send step uses it
// to pick up the published digest.
type FeedSource struct {
	scanner  *RSSScanner
	location string
	name     string
}

var _ ports.ItemSource = (*FeedSource)(nil)

// NewFeedSource wires a single feed URL or file path.
func NewFeedSource(s *RSSScanner, location, name string) *FeedSource {
	if s == nil {
		s = NewRSSScanner(nil)
	}
	return &FeedSource{scanner: s, location: location, name: name}
}

// Fetch reads the feed; unlike multi-feed sources any failure is an error.
func (f *FeedSource) Fetch(ctx context.Context) ([]domain.Item, error) {
	return f.scanner.Scan(ctx, scanner.Request{SourceName: f.name, URLs: []string{f.location}})
}
