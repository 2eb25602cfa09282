package reference

import "strings"

// ClassifyKind derives the source kind from an entry's extracted fields.
// Signals are structural (identifiers, URL shape, publisher phrasing),
// never topic vocabulary, so classification is domain-neutral.
func ClassifyKind(e Entry) Kind {
	if e.DOI != "" || e.Journal != "" {
		return KindJournal
	}
	if hasBookMarkers(e.Raw) {
		return KindBook
	}
	if e.URL != "" {
		switch urlFlavor(e.URL) {
		case "news":
			return KindNews
		case "blog":
			return KindBlog
		}
		return KindWebpage
	}
	if e.AuthorText != "" && e.Year > 0 {
		// Author-year with no link or journal reads like a monograph.
		return KindBook
	}
	return KindUnknown
}

// hasBookMarkers checks for publishing phrasing typical of book references.
func hasBookMarkers(raw string) bool {
	lower := strings.ToLower(raw)
	for _, marker := range []string{"isbn", " press", " publishing", " publishers", " ed.", " edition", "university of"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// urlFlavor inspects host and path shape for news/blog conventions.
func urlFlavor(url string) string {
	lower := strings.ToLower(url)
	host := lower
	if i := strings.Index(host, "//"); i >= 0 {
		host = host[i+2:]
	}
	path := ""
	if i := strings.IndexByte(host, '/'); i >= 0 {
		path = host[i:]
		host = host[:i]
	}

	if strings.HasPrefix(host, "blog.") || strings.Contains(path, "/blog/") ||
		strings.Contains(host, "medium.com") || strings.Contains(host, "substack.com") ||
		strings.Contains(host, "wordpress.") || strings.Contains(host, "blogspot.") {
		return "blog"
	}
	if strings.HasPrefix(host, "news.") || strings.Contains(path, "/news/") ||
		strings.Contains(path, "/article/") || strings.Contains(path, "/story/") {
		return "news"
	}
	return "webpage"
}
