package coverage

import (
	"sort"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/textutil"
)

// FallbackTitle names the catch-all topic for items the oracle did not group.
const FallbackTitle = "Uncategorized"

// Bucket folds keys into one catch-all topic. It makes no external calls and
// returns the same summary for the same input.
func Bucket(keys map[string]struct{}, keyToItem map[string]domain.Item) domain.Topic {
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var b strings.Builder
	for i, k := range sorted {
		if i > 0 {
			b.WriteByte('\n')
		}
		item := keyToItem[k]
		title := textutil.CollapseSpace(item.Title)
		if title == "" {
			title = k
		}
		b.WriteString("- ")
		b.WriteString(title)
		if source := textutil.CollapseSpace(item.SourceName); source != "" {
			b.WriteString(" (")
			b.WriteString(source)
			b.WriteString(")")
		}
	}

	return domain.Topic{
		Title:      FallbackTitle,
		Summary:    b.String(),
		MemberKeys: sorted,
		Fallback:   true,
	}
}
