package content

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackSlugBase is used when an article has no usable title.
const fallbackSlugBase = "articulo"

// deaccent strips combining marks after NFD decomposition, so "artículo"
// folds to "articulo".
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify normalizes a title into a URL slug: diacritics folded, anything
// outside [a-zA-Z0-9 -] dropped, lowercased, whitespace runs hyphenated.
func Slugify(title string) string {
	folded, _, err := transform.String(deaccent, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '-':
			b.WriteRune(r)
		}
	}

	s := strings.ToLower(strings.TrimSpace(b.String()))
	return whitespaceRun.ReplaceAllString(s, "-")
}

// assignUniqueSlugs fills Slug for every article in encounter order.
// Duplicate bases get -2, -3, ... suffixes; the first occurrence keeps the
// bare base.
func assignUniqueSlugs(articles []*Article) {
	seen := make(map[string]bool, len(articles))
	for _, a := range articles {
		base := Slugify(a.Title)
		if base == "" {
			base = fallbackSlugBase
		}
		slug := base
		for n := 2; seen[slug]; n++ {
			slug = fmt.Sprintf("%s-%d", base, n)
		}
		seen[slug] = true
		a.Slug = slug
	}
}
