package reference

import (
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// CanonicalKey names one logical citation across an entire document,
// independent of section-local numbering.
type CanonicalKey string

// KeyFor derives the canonical key for an entry. The key is a pure function
// of the entry's normalized author, year, and external identifier (or title
// when no identifier exists), so two independently parsed entries naming the
// same source end up with the same key.
func KeyFor(e Entry) CanonicalKey {
	sum := blake3.Sum256([]byte(identityOf(e)))
	hash := fmt.Sprintf("%x", sum[:4])

	slug := BaseLabel(e)
	return CanonicalKey(slug + "-" + hash)
}

// BaseLabel returns the human-readable stem shared by the canonical key and
// the rewrite label: primary-author slug plus year when known, falling back
// to the leading title word. Never purely numeric.
func BaseLabel(e Entry) string {
	slug := slugify(PrimaryAuthor(e.AuthorText))
	if slug == "" {
		slug = firstTitleWord(e.Title)
	}
	if slug == "" {
		slug = "src"
	}
	if e.Year > 0 {
		return fmt.Sprintf("%s%d", slug, e.Year)
	}
	return slug
}

// identityOf picks the strongest identity signal an entry carries. Truncated
// titles are skipped: two different sources cut to the same prefix must not
// collapse into one.
func identityOf(e Entry) string {
	if e.DOI != "" {
		return "doi:" + NormalizeDOI(e.DOI)
	}
	if !TruncatedTitle(e.Title) {
		if t := normalizeText(e.Title); t != "" {
			return "title:" + t
		}
	}
	if e.URL != "" {
		return "url:" + normalizeURL(e.URL)
	}
	return "raw:" + normalizeText(e.Raw)
}

// TruncatedTitle reports whether a title was cut off by whatever produced it.
func TruncatedTitle(title string) bool {
	t := strings.TrimSpace(title)
	return strings.HasSuffix(t, "...") || strings.HasSuffix(t, "…")
}

// titleArticles are leading words skipped when deriving a label from a title.
var titleArticles = map[string]bool{
	"the": true, "a": true, "an": true, "on": true, "of": true, "in": true,
}

// firstTitleWord returns the first substantial word of a title, slugified.
// All-digit words are passed over so a label can never come out purely
// numeric.
func firstTitleWord(title string) string {
	for _, word := range strings.Fields(title) {
		s := slugify(word)
		if len(s) >= 3 && !titleArticles[s] && !allDigits(s) {
			return s
		}
	}
	return ""
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// normalizeText lowercases and collapses a string down to space-separated
// alphanumeric words for stable comparison.
func normalizeText(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// normalizeURL strips scheme, "www.", fragments, and trailing slashes so the
// same page compares equal across common link spellings.
func normalizeURL(u string) string {
	s := strings.TrimSpace(strings.ToLower(u))
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "/")
}
