// Package identity derives stable identifiers and store slugs from record
// content. Both functions are pure and deterministic.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

// idLength keeps identifiers compact while leaving collision probability
// negligible at corpus sizes in the tens of thousands.
const idLength = 16

// StableID returns a deterministic short identifier for text: the first 16
// hex characters of its SHA-1 digest.
func StableID(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:idLength]
}

// CaseID derives the dedup key for a case from its immutable content fields.
// The filing date is deliberately excluded: a case whose recorded date shifts
// between harvests due to an upstream correction is still the same case.
func CaseID(courtPath, caseName, downloadURL string) string {
	return StableID(courtPath + "|" + caseName + "|" + downloadURL)
}

var (
	nonSlug = regexp.MustCompile(`[^a-z0-9_-]+`)
	dashRun = regexp.MustCompile(`-+`)
)

// Slugify maps text to a filesystem/URL-safe token: lowercased, runs of
// disallowed characters collapsed to a single dash, leading and trailing
// dashes trimmed.
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = nonSlug.ReplaceAllString(s, "-")
	s = dashRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
