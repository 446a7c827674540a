package oracle

import (
	"fmt"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/textutil"
)

const (
	// DefaultBodyChars bounds the body text sent per item.
	DefaultBodyChars = 800
	blockSeparator   = "\n\n-----\n\n"
)

// DefaultSystemPrompt asks for a JSON topic list covering every item.
const DefaultSystemPrompt = `You are an editor writing a daily news briefing for one reader.
The input is a list of individual news items (title, text, source, link), each starting with "ITEM n".
Your task:
1) Choose the topics yourself, based on what the items are actually about.
2) Every item MUST be placed in a topic. Do not skip items.
3) Use as many topics as needed.
4) For EVERY topic provide:
   - "title": a short topic title,
   - "summary": 5-12 calm, clear sentences explaining what is happening and why it matters,
   - "links": the links of ALL items in the topic. Use the item number when an item has no link.
5) Each item should appear in exactly one topic.
Reply ONLY with JSON in this form, without any other text:
{"topics": [{"title": "...", "summary": "...", "links": ["https://...", "https://..."]}]}`

// RenderItems formats items as numbered blocks for the user message. Numbers
// are 1-based positions in items.
func RenderItems(items []domain.Item, bodyChars int) string {
	if bodyChars <= 0 {
		bodyChars = DefaultBodyChars
	}

	blocks := make([]string, 0, len(items))
	for i, it := range items {
		text := textutil.Ellipsize(textutil.StripTags(it.BodyText), bodyChars)
		blocks = append(blocks, fmt.Sprintf("ITEM %d\nSOURCE: %s\nTITLE: %s\nTEXT: %s\nLINK: %s\n",
			i+1,
			strings.TrimSpace(it.SourceName),
			textutil.CollapseSpace(it.Title),
			text,
			strings.TrimSpace(it.Permalink),
		))
	}
	return strings.Join(blocks, blockSeparator)
}

// UserMessage wraps the rendered items with the instruction preamble.
func UserMessage(items []domain.Item, bodyChars int, language string) string {
	var b strings.Builder
	b.WriteString("These are the news items to group (each starts with 'ITEM n'). Use ALL of them, skip none.")
	if language = strings.TrimSpace(language); language != "" {
		fmt.Fprintf(&b, " Write titles and summaries in %s.", language)
	}
	b.WriteString("\n\n")
	b.WriteString(RenderItems(items, bodyChars))
	return b.String()
}
