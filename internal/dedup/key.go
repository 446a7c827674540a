// Package dedup decides which outbound items were already delivered.
//
// Every candidate gets an identity key from a degrading chain: its permalink,
// a URL-shaped GUID, or a digest over the URL, title and body snippet it
// carries. Previously delivered keys live in a bounded FIFO record, so a key
// that has rolled out of the window is reported as new again.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/textutil"
)

// KeyKind tells which tier of the derivation chain produced a key.
type KeyKind string

const (
	KindLink        KeyKind = "link"
	KindGUID        KeyKind = "guid"
	KindContentHash KeyKind = "content-hash"
)

const (
	hashPrefix = "sha256:"
	// BodySnippetRunes bounds how much of the body feeds the content hash.
	BodySnippetRunes = 220
)

// Key is a derived identity key.
type Key struct {
	Kind  KeyKind
	Value string
}

// String returns the form stored in the delivery record.
func (k Key) String() string {
	return k.Value
}

// DeriveKey computes the identity key of an item. It reports false when the
// item carries neither a link nor any content to hash.
func DeriveKey(item domain.Item) (Key, bool) {
	if link := strings.TrimSpace(item.Permalink); link != "" {
		return Key{Kind: KindLink, Value: link}, true
	}

	if guid := strings.TrimSpace(item.GUID); guid != "" && textutil.IsHTTPURL(guid) {
		return Key{Kind: KindGUID, Value: guid}, true
	}

	bodyURL := textutil.FirstURL(item.BodyText)
	title := textutil.CollapseSpace(item.Title)
	snippet := textutil.Truncate(textutil.StripTags(item.BodyText), BodySnippetRunes)
	if bodyURL == "" && title == "" && snippet == "" {
		return Key{}, false
	}

	var b strings.Builder
	b.WriteString("url=")
	b.WriteString(bodyURL)
	b.WriteString("\x1ftitle=")
	b.WriteString(title)
	b.WriteString("\x1fbody=")
	b.WriteString(snippet)

	sum := sha256.Sum256([]byte(b.String()))
	return Key{Kind: KindContentHash, Value: hashPrefix + hex.EncodeToString(sum[:])}, true
}
