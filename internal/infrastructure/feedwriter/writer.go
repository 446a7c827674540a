package feedwriter

import (
	"context"
	"crypto/rand"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/feeds"
	"github.com/oklog/ulid/v2"

	"NewsDigest/internal/config"
	"NewsDigest/internal/coverage"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/render"
	"NewsDigest/internal/textutil"
)

// RawDescriptionChars bounds raw feed descriptions.
const RawDescriptionChars = 500

// Writer publishes the raw and digest RSS files.
type Writer struct {
	cfg config.FeedsConfig
	now func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var _ ports.FeedWriter = (*Writer)(nil)

// NewWriter wires feed paths and metadata from configuration.
func NewWriter(cfg config.FeedsConfig) *Writer {
	return &Writer{
		cfg:     cfg,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// WriteRaw publishes every collected item as-is.
func (w *Writer) WriteRaw(ctx context.Context, items []domain.Item) error {
	now := w.now().UTC()
	feed := &feeds.Feed{
		Title:       w.cfg.RawTitle,
		Link:        &feeds.Link{Href: w.cfg.RawLink},
		Description: "All collected news items",
		Created:     now,
	}

	for _, item := range items {
		created := item.PublishedAt
		if created.IsZero() {
			created = item.FetchedAt
		}
		id := item.Permalink
		if id == "" {
			id = item.ID
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       item.Title,
			Link:        &feeds.Link{Href: item.Permalink},
			Description: textutil.Truncate(item.BodyText, RawDescriptionChars),
			Author:      &feeds.Author{Name: item.SourceName},
			Id:          id,
			Created:     created,
		})
	}

	return w.write(ctx, w.cfg.RawPath, feed)
}

// WriteDigest publishes one entry per topic. Entries carry a ULID guid and
// no link; the description lists member links.
func (w *Writer) WriteDigest(ctx context.Context, topics []domain.Topic, items map[string]domain.Item) error {
	now := w.now().UTC()
	feed := &feeds.Feed{
		Title:       w.cfg.DigestTitle,
		Link:        &feeds.Link{Href: w.cfg.DigestLink},
		Description: "Topics grouped from the latest news",
		Created:     now,
	}

	for _, topic := range topics {
		id, err := w.newID(now)
		if err != nil {
			return err
		}
		title := strings.TrimSpace(topic.Title)
		if title == "" {
			title = coverage.UntitledTitle
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       title,
			Link:        &feeds.Link{},
			Description: describe(topic, items),
			Id:          id,
			Created:     now,
		})
	}

	return w.write(ctx, w.cfg.DigestPath, feed)
}

func describe(topic domain.Topic, items map[string]domain.Item) string {
	var b strings.Builder
	b.WriteString(string(render.Markdown(topic.Summary)))

	if len(topic.MemberKeys) > 0 && !topic.Fallback {
		b.WriteString("<ul>")
		for _, key := range topic.MemberKeys {
			title := key
			if item, ok := items[key]; ok && strings.TrimSpace(item.Title) != "" {
				title = textutil.CollapseSpace(item.Title)
			}
			fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`,
				template.HTMLEscapeString(key), template.HTMLEscapeString(title))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

func (w *Writer) newID(now time.Time) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(now), w.entropy)
	if err != nil {
		return "", fmt.Errorf("generate guid: %w", err)
	}
	return id.String(), nil
}

func (w *Writer) write(ctx context.Context, path string, feed *feeds.Feed) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	channel := (&feeds.Rss{Feed: feed}).RssFeed()
	channel.Language = w.cfg.Language
	rss, err := feeds.ToXML(channel)
	if err != nil {
		return fmt.Errorf("render feed %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create feed dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".feed-*.xml")
	if err != nil {
		return fmt.Errorf("create temp feed: %w", err)
	}
	if _, err := tmp.WriteString(rss); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close feed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace feed %s: %w", path, err)
	}
	return nil
}
