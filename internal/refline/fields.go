package refline

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	doiBareRe  = regexp.MustCompile(`\b10\.\d{4,9}/[^\s"<>\])]+`)
	doiQueryRe = regexp.MustCompile(`[?&]doi=(10\.[^\s&"<>\])]+)`)
	doiPathRe  = regexp.MustCompile(`/doi(?:/(?:full|abs|pdf|epdf))?/(10\.[^\s"<>\])?]+)`)

	urlRe  = regexp.MustCompile(`https?://[^\s"<>\])]+`)
	dateRe = regexp.MustCompile(`\b((?:19|20)\d{2})-(\d{1,2})-(\d{1,2})\b`)
	yearRe = regexp.MustCompile(`\(((?:19|20)\d{2})\)|\b((?:19|20)\d{2})\b`)
)

// ExtractDOI pulls a DOI out of free text or a URL. Publisher links bury the
// DOI in a /doi/ path segment or a doi= query parameter; plain text carries
// it bare or behind a doi.org host.
func ExtractDOI(s string) string {
	if m := doiQueryRe.FindStringSubmatch(s); m != nil {
		if v, err := url.QueryUnescape(m[1]); err == nil {
			return trimDOI(v)
		}
		return trimDOI(m[1])
	}
	if m := doiPathRe.FindStringSubmatch(s); m != nil {
		return trimDOI(m[1])
	}
	if m := doiBareRe.FindString(s); m != "" {
		return trimDOI(m)
	}
	return ""
}

func trimDOI(s string) string {
	return strings.TrimRight(s, ".,;:")
}

// ExtractURL returns the first URL in the text, trailing punctuation removed.
func ExtractURL(s string) string {
	m := urlRe.FindString(s)
	if m == "" {
		return ""
	}
	return strings.TrimRight(m, ".,;:")
}

// ExtractYear finds a publication year, preferring a parenthesized form
// anywhere in the text over a bare one. ISO-style dates match whether or not
// the month and day are zero-padded.
func ExtractYear(s string) int {
	if m := dateRe.FindStringSubmatch(s); m != nil {
		if mo, err := strconv.Atoi(m[2]); err == nil && mo >= 1 && mo <= 12 {
			if d, err := strconv.Atoi(m[3]); err == nil && d >= 1 && d <= 31 {
				y, _ := strconv.Atoi(m[1])
				return y
			}
		}
	}
	matches := yearRe.FindAllStringSubmatch(s, -1)
	bare := 0
	for _, m := range matches {
		if m[1] != "" {
			y, _ := strconv.Atoi(m[1])
			return y
		}
		if bare == 0 {
			bare, _ = strconv.Atoi(m[2])
		}
	}
	return bare
}

// TitleFromSlug recovers a readable title from the last path segment of a
// URL when the entry carries no title text of its own.
func TitleFromSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segs := strings.Split(path, "/")
	seg := segs[len(segs)-1]
	if i := strings.LastIndex(seg, "."); i > 0 {
		seg = seg[:i]
	}
	seg = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(seg)
	seg = strings.TrimSpace(seg)
	if seg == "" || isOpaqueSlug(seg) {
		return ""
	}
	words := strings.Fields(seg)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, " ")
}

// isOpaqueSlug rejects slugs that are ids rather than words: all digits, or
// hex-ish strings with no vowels to speak of.
func isOpaqueSlug(s string) bool {
	letters, vowels, digits := 0, 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			letters++
			switch r | 0x20 {
			case 'a', 'e', 'i', 'o', 'u':
				vowels++
			}
		}
	}
	if letters == 0 {
		return true
	}
	if digits > letters {
		return true
	}
	return vowels == 0
}

