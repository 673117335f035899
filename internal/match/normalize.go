// Package match locates catalog products inside scraped HTML by approximate
// string matching.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, drops every rune outside ASCII word characters,
// space, hyphen and the Spanish accented vowels and ñ, collapses whitespace
// runs to a single space and trims the result. Normalize is idempotent.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case keepRune(r):
			return r
		default:
			return -1
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func keepRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-':
		return true
	}
	switch r {
	case 'á', 'é', 'í', 'ó', 'ú', 'ñ':
		return true
	}
	return false
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a filesystem and URL safe identifier from a product name:
// accents are folded, the result is lowercased, every run of characters
// outside [a-z0-9] becomes a single hyphen and leading/trailing hyphens are
// trimmed.
func Slugify(name string) string {
	folded, _, err := transform.String(accentFolder, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
