package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

func sampleDigest() ports.Digest {
	return ports.Digest{
		Subject: "News digest (morning) — 2024-05-01",
		Items: []domain.Item{
			{
				Title:     "Markets  rally",
				BodyText:  `<p>Stocks up.</p><script>alert(1)</script><ul><li><a href="https://e.org/a">A</a></li></ul>`,
				Permalink: "https://e.org/a",
			},
			{Title: "Uncategorized", BodyText: "- one (BBC)\n- two"},
		},
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	html := string(Markdown("- one (BBC)\n- two <b>x</b>"))
	assert.Contains(t, html, "<ul>")
	assert.Contains(t, html, "<li>one (BBC)</li>")
	assert.NotContains(t, html, "<b>")
}

func TestEmailHTMLSanitizes(t *testing.T) {
	t.Parallel()

	html, err := EmailHTML(sampleDigest())
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>News digest (morning) — 2024-05-01</h2>")
	assert.Contains(t, html, `<a href="https://e.org/a">Markets rally</a>`)
	assert.Contains(t, html, "<p>Stocks up.</p>")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "<h3>Uncategorized</h3>")
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	text := PlainText(sampleDigest())
	assert.True(t, strings.HasPrefix(text, "News digest (morning)"))
	assert.Contains(t, text, "\nMarkets rally\nStocks up.")
	assert.Contains(t, text, "\nhttps://e.org/a\n")
	assert.NotContains(t, text, "alert")
}

func TestSplit(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Split("", 10))
	assert.Equal(t, []string{"short"}, Split("short", 10))

	lines := strings.Repeat("line of text\n", 50)
	chunks := Split(lines, 100)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
		assert.False(t, strings.HasSuffix(c, "\n"))
	}
	assert.Equal(t, strings.Count(lines, "line"), strings.Count(strings.Join(chunks, "\n"), "line"))

	word := strings.Repeat("ж", 25)
	hard := Split(word, 10)
	assert.Equal(t, []string{strings.Repeat("ж", 10), strings.Repeat("ж", 10), strings.Repeat("ж", 5)}, hard)
}
