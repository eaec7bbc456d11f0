package types

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips Vietnamese diacritics so that "Phòng Đông"
// and "phong dong" compare equal. Searches and tenant login names use it.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.NewReplacer("đ", "d", "Đ", "d").Replace(out)
	return strings.ToLower(out)
}

// ContainsFold reports whether substr is within s, ignoring case and
// diacritics. An empty substr always matches.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(strings.TrimSpace(substr)))
}
