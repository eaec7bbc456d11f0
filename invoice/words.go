package invoice

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var digitWords = [10]string{"không", "một", "hai", "ba", "bốn", "năm", "sáu", "bảy", "tám", "chín"}

// AmountInWords spells n in Vietnamese with the first letter capitalised,
// as printed on invoices: 2600000 reads "Hai triệu sáu trăm nghìn".
func AmountInWords(n int64) string {
	if n == 0 {
		return "Không"
	}
	var words []string
	if n < 0 {
		words = append(words, "âm")
		n = -n
	}
	words = append(words, spell(n, false)...)

	s := strings.Join(words, " ")
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// spell reads n in blocks of three digits. inner is set when a more
// significant block has already been read, which makes a leading zero
// hundreds digit explicit ("không trăm").
func spell(n int64, inner bool) []string {
	const billion = 1_000_000_000

	if n >= billion {
		words := append(spell(n/billion, inner), "tỷ")
		if rest := n % billion; rest > 0 {
			words = append(words, spell(rest, true)...)
		}
		return words
	}

	blocks := [3]int{int(n / 1_000_000), int(n / 1000 % 1000), int(n % 1000)}
	scales := [3]string{"triệu", "nghìn", ""}

	var words []string
	for i, b := range blocks {
		if b == 0 {
			continue
		}
		words = append(words, spellBlock(b, inner || len(words) > 0)...)
		if scales[i] != "" {
			words = append(words, scales[i])
		}
	}
	return words
}

func spellBlock(b int, full bool) []string {
	h, t, u := b/100, b/10%10, b%10

	var words []string
	if h > 0 || full {
		words = append(words, digitWords[h], "trăm")
	}

	switch {
	case t == 0 && u != 0 && (h > 0 || full):
		words = append(words, "linh")
	case t == 1:
		words = append(words, "mười")
	case t > 1:
		words = append(words, digitWords[t], "mươi")
	}

	switch {
	case u == 0:
	case u == 1 && t > 1:
		words = append(words, "mốt")
	case u == 4 && t > 1:
		words = append(words, "tư")
	case u == 5 && t > 0:
		words = append(words, "lăm")
	default:
		words = append(words, digitWords[u])
	}
	return words
}
