// Package render turns digests into mail and chat bodies.
package render

import (
	"bytes"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"

	"NewsDigest/internal/ports"
	"NewsDigest/internal/textutil"
)

// TelegramLimit is the Bot API ceiling for one message.
const TelegramLimit = 4096

// Markdown converts markdown text to HTML using goldmark. Raw HTML in the
// input is dropped by goldmark's default renderer.
func Markdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

type emailEntry struct {
	Title string
	Link  string
	Body  template.HTML
}

var emailTemplate = template.Must(template.New("email").Parse(`<html>
<body>
<h2>{{.Subject}}</h2>
{{range .Entries}}<h3>{{if .Link}}<a href="{{.Link}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}</h3>
<div>{{.Body}}</div>
<hr>
{{end}}</body>
</html>
`))

// EmailHTML renders the digest as an HTML mail body. Item bodies are
// treated as HTML with script and style removed.
func EmailHTML(digest ports.Digest) (string, error) {
	entries := make([]emailEntry, 0, len(digest.Items))
	for _, item := range digest.Items {
		entries = append(entries, emailEntry{
			Title: textutil.CollapseSpace(item.Title),
			Link:  item.Permalink,
			Body:  template.HTML(textutil.Sanitize(item.BodyText)),
		})
	}

	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Subject string
		Entries []emailEntry
	}{Subject: digest.Subject, Entries: entries})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PlainText renders the digest for chat and the text/plain mail part.
func PlainText(digest ports.Digest) string {
	var b strings.Builder
	b.WriteString(digest.Subject)
	b.WriteString("\n")

	for _, item := range digest.Items {
		b.WriteString("\n")
		b.WriteString(textutil.CollapseSpace(item.Title))
		b.WriteString("\n")
		if body := textutil.StripTags(item.BodyText); body != "" {
			b.WriteString(body)
			b.WriteString("\n")
		}
		if item.Permalink != "" {
			b.WriteString(item.Permalink)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Split cuts text into chunks of at most limit runes, preferring line
// breaks and then spaces as cut points.
func Split(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	rest := []rune(text)
	for len(rest) > limit {
		window := string(rest[:limit])
		cut := strings.LastIndex(window, "\n")
		if cut <= 0 {
			cut = strings.LastIndex(window, " ")
		}
		if cut <= 0 {
			cut = len(window)
		}

		chunk := strings.TrimRight(window[:cut], " \n")
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		rest = []rune(strings.TrimLeft(string(rest[utf8.RuneCountInString(window[:cut]):]), " \n"))
	}
	if tail := strings.TrimRight(string(rest), " \n"); tail != "" {
		chunks = append(chunks, tail)
	}
	return chunks
}
