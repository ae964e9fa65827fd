package gazetteer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a name or query into its lookup key: NFC, case-folded,
// trimmed, with internal whitespace collapsed to single spaces. Full case
// folding is used rather than lower-casing, so some keys change length
// ("Straße" becomes "strasse") and edit distances are counted on the folded
// runes.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	// Casers keep internal state and must not be shared between goroutines.
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// hasNonLatinLetters reports whether s contains a letter from a script other
// than Latin, e.g. an Arabic or Cyrillic spelling of a place name.
func hasNonLatinLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}
