package importer

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

var umlauts = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "ae", "Ö", "oe", "Ü", "ue",
	"é", "e", "è", "e", "á", "a", "à", "a", "ó", "o", "ñ", "n", "ç", "c",
)

// Slugify folds umlauts and accents, lowercases and joins words with dashes.
func Slugify(s string) string {
	s = umlauts.Replace(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// compact is Slugify without separators, used to compare header names.
func compact(s string) string {
	return strings.ReplaceAll(Slugify(s), "-", "")
}

// Similarity is 1 - distance/maxLen over the runes of a and b.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1
	}
	d := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptionsWithSub)
	return 1 - float64(d)/float64(maxLen)
}
