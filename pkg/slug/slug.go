package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that do not decompose into a base letter plus a combining mark.
var folds = strings.NewReplacer(
	"ı", "i",
	"ß", "ss",
	"æ", "ae",
	"ø", "o",
	"đ", "d",
	"ł", "l",
)

// Generate creates a URL-friendly slug from a product or category name.
// Accented letters are folded to ASCII and every other run of
// non-alphanumeric characters becomes a single hyphen.
//
//	"Kadın Giyim"            → "kadin-giyim"
//	"Crème Brûlée 12\" Pan"  → "creme-brulee-12-pan"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = folds.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}
