package parser

import (
	"crypto/sha256"
	"encoding/hex"
)

// itemID fingerprints an entry by its visible fields so re-collected entries
// collapse onto the same stored row.
func itemID(title, summary, link string) string {
	sum := sha256.Sum256([]byte(title + "\n" + summary + "\n" + link))
	return hex.EncodeToString(sum[:])
}
