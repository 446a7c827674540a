// Package textutil normalizes the short, markup-laden text that feeds carry.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	spaceExpr = regexp.MustCompile(`\s+`)
	urlExpr   = regexp.MustCompile(`(?i)https?://[^\s"'<>()\[\]]+`)
)

// CollapseSpace folds whitespace runs into single spaces and trims the ends.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceExpr.ReplaceAllString(s, " "))
}

// StripTags returns the visible text of an HTML fragment with whitespace collapsed.
// Script and style contents are dropped.
func StripTags(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return CollapseSpace(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CollapseSpace(fragment)
	}
	doc.Find("script, style, noscript").Remove()
	return CollapseSpace(doc.Text())
}

// Sanitize removes script and style elements but keeps the remaining markup.
func Sanitize(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()
	html, err := doc.Find("body").Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(html)
}

// FirstURL finds the first absolute http(s) URL in s.
func FirstURL(s string) string {
	return strings.TrimRight(urlExpr.FindString(s), ".,;:!?")
}

// IsHTTPURL reports whether s is an absolute http(s) URL.
func IsHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	rest := s[strings.Index(s, "://")+3:]
	return rest != "" && !strings.ContainsAny(rest, " \t\n")
}

// Truncate keeps at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Ellipsize truncates s to n runes and appends "…" when something was cut.
func Ellipsize(s string, n int) string {
	cut := Truncate(s, n)
	if cut == s {
		return s
	}
	return cut + "…"
}
