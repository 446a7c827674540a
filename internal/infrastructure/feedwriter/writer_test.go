package feedwriter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/config"
	"NewsDigest/internal/coverage"
	"NewsDigest/internal/domain"
)

func newTestWriter(t *testing.T) (*Writer, config.FeedsConfig) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.FeedsConfig{
		RawPath:     filepath.Join(dir, "news", "news.xml"),
		DigestPath:  filepath.Join(dir, "news", "digest.xml"),
		RawTitle:    "Raw",
		DigestTitle: "Digest",
		RawLink:     "https://example.org/news.xml",
		DigestLink:  "https://example.org/digest.xml",
		Language:    "sr",
	}
	w := NewWriter(cfg)
	w.now = func() time.Time { return time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC) }
	return w, cfg
}

func parseFile(t *testing.T, path string) *gofeed.Feed {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	feed, err := gofeed.NewParser().Parse(f)
	require.NoError(t, err)
	return feed
}

func TestWriteRaw(t *testing.T) {
	t.Parallel()

	w, cfg := newTestWriter(t)
	long := strings.Repeat("x", RawDescriptionChars+50)
	items := []domain.Item{
		{ID: "1", Title: "First", BodyText: long, Permalink: "https://e.org/1", SourceName: "BBC",
			PublishedAt: time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC)},
		{ID: "2", Title: "Second", FetchedAt: time.Date(2024, 4, 30, 11, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, w.WriteRaw(context.Background(), items))

	feed := parseFile(t, cfg.RawPath)
	assert.Equal(t, "Raw", feed.Title)
	assert.Equal(t, "sr", feed.Language)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "https://e.org/1", feed.Items[0].Link)
	assert.Len(t, feed.Items[0].Description, RawDescriptionChars)
	assert.Equal(t, "2", feed.Items[1].GUID)
}

func TestWriteDigest(t *testing.T) {
	t.Parallel()

	w, cfg := newTestWriter(t)
	items := map[string]domain.Item{
		"https://e.org/a": {Title: "Alpha"},
		"https://e.org/b": {Title: "Beta"},
	}
	topics := []domain.Topic{
		{Title: "Markets", Summary: "Stocks *rallied*.", MemberKeys: []string{"https://e.org/a", "https://e.org/b"}},
		{Title: "Uncategorized", Summary: "- Gamma (BBC)", MemberKeys: []string{"https://e.org/c"}, Fallback: true},
	}
	require.NoError(t, w.WriteDigest(context.Background(), topics, items))

	feed := parseFile(t, cfg.DigestPath)
	assert.Equal(t, "sr", feed.Language)
	require.Len(t, feed.Items, 2)

	first := feed.Items[0]
	assert.Equal(t, "Markets", first.Title)
	assert.Empty(t, first.Link)
	_, err := ulid.ParseStrict(first.GUID)
	require.NoError(t, err)
	assert.Contains(t, first.Description, "<em>rallied</em>")
	assert.Contains(t, first.Description, `<a href="https://e.org/a">Alpha</a>`)

	fallback := feed.Items[1]
	assert.Contains(t, fallback.Description, "<li>Gamma (BBC)</li>")
	assert.NotContains(t, fallback.Description, "<a href")
	assert.NotEqual(t, first.GUID, fallback.GUID)
}

func TestWriteDigestNamesUntitledTopics(t *testing.T) {
	t.Parallel()

	w, cfg := newTestWriter(t)
	topics := []domain.Topic{{Title: " ", Summary: "text", MemberKeys: []string{"https://e.org/a", "https://e.org/b"}}}
	require.NoError(t, w.WriteDigest(context.Background(), topics, nil))

	feed := parseFile(t, cfg.DigestPath)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, coverage.UntitledTitle, feed.Items[0].Title)
}

func TestWriteHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	w, cfg := newTestWriter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, w.WriteRaw(ctx, nil))
	_, err := os.Stat(cfg.RawPath)
	assert.True(t, os.IsNotExist(err))
}
