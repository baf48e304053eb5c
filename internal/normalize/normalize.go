// Package normalize provides text normalization for names, emails and search terms.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ShelfName returns a shelf name in NFC form with surrounding and repeated
// whitespace collapsed. Case is preserved: "Read" and "read" are distinct shelves.
func ShelfName(name string) string {
	return collapseSpaces(norm.NFC.String(name))
}

// Email lowercases and trims an email address for case-insensitive lookup.
func Email(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Username lowercases, trims and NFC-normalizes a username.
func Username(username string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(username)))
}

// Fold strips diacritics and lowercases s, so "Brontë" matches "bronte".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(folded)
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return len([]rune(s))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
