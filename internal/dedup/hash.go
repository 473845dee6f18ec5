// Package dedup fingerprints candidate articles for duplicate detection.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// contentPrefixLen bounds the hashed content so trailing edits to a
// re-published article still collapse onto the same fingerprint.
const contentPrefixLen = 500

// Fingerprint returns a deterministic 32-character hex digest over the
// lower-cased, trimmed title, the first 500 characters of content and the
// source id. Identical triples always produce the same digest regardless of
// the article URL.
func Fingerprint(title, content, sourceID string) string {
	if len(content) > contentPrefixLen {
		content = content[:contentPrefixLen]
	}

	material := fmt.Sprintf("%s_%s_%s",
		strings.ToLower(strings.TrimSpace(title)),
		strings.ToLower(strings.TrimSpace(content)),
		sourceID,
	)

	sum := md5.Sum([]byte(material))
	return hex.EncodeToString(sum[:])
}
