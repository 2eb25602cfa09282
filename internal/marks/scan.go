package marks

import (
	"regexp"
	"strings"

	"github.com/matsen/refmark/internal/document"
)

var (
	markRe = regexp.MustCompile(`\\?\[(?:\^([A-Za-z0-9_.\-]+)|\?([A-Za-z0-9_.\-]+)|(\d{1,3}(?:\s*(?:[,–—-]|to)\s*\d{1,3})*))\]`)

	inlineCodeRe = regexp.MustCompile("`+[^`]*`+")
	blockMathRe  = regexp.MustCompile(`\$\$[^$]*\$\$`)
	inlineMathRe = regexp.MustCompile(`\$[^$\s][^$]*\$`)
	mdImageRe    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLinkRe     = regexp.MustCompile(`\[[^\]]*\]\([^)]*\)`)
	wikiLinkRe   = regexp.MustCompile(`\[\[[^\]]*\]\]`)
	refLinkRe    = regexp.MustCompile(`\[([^\]]*)\]\[[^\]]*\]`)
)

// Scan walks body prose and collects every citation mark. Reference-section
// content is skipped, as are frontmatter, fenced code blocks, inline code
// and math spans, link and image syntax, and escaped brackets.
func Scan(doc *document.Document) []Mark {
	var found []Mark
	inFence := false
	for n := 1; n <= len(doc.Lines); n++ {
		line := doc.Lines[n-1]
		if n <= doc.FrontmatterEnd {
			continue
		}
		if isFence(line) {
			inFence = !inFence
			continue
		}
		if inFence || doc.InSection(n) {
			continue
		}
		found = append(found, scanLine(line, n)...)
	}
	return found
}

// scanLine extracts marks from one line of prose.
func scanLine(line string, n int) []Mark {
	masked := maskSpans(line)

	var found []Mark
	for _, loc := range markRe.FindAllStringSubmatchIndex(masked, -1) {
		raw := line[loc[0]:loc[1]]
		if strings.HasPrefix(raw, `\`) {
			continue
		}
		// A trailing colon means a definition, not a citation.
		if loc[1] < len(masked) && masked[loc[1]] == ':' {
			continue
		}

		m := Mark{Line: n, Col: loc[0], Len: loc[1] - loc[0], Raw: raw}
		switch {
		case loc[2] >= 0:
			m.Kind = KindFootnote
			m.IDs = []string{masked[loc[2]:loc[3]]}
		case loc[4] >= 0:
			m.Kind = KindUnresolved
			m.IDs = []string{masked[loc[4]:loc[5]]}
		default:
			ids := expandIDs(masked[loc[6]:loc[7]])
			if ids == nil {
				continue
			}
			m.Kind = KindNumeric
			m.IDs = ids
		}
		found = append(found, m)
	}
	return found
}

// maskSpans blanks the stretches of a line where bracket syntax is not a
// citation, preserving byte offsets.
func maskSpans(line string) string {
	b := []byte(line)
	for _, re := range []*regexp.Regexp{
		inlineCodeRe, blockMathRe, inlineMathRe, mdImageRe, mdLinkRe, wikiLinkRe,
	} {
		for _, loc := range re.FindAllIndex(b, -1) {
			for i := loc[0]; i < loc[1]; i++ {
				b[i] = ' '
			}
		}
	}
	// Reference-style links [text][label] are masked unless the text part
	// is itself a mark, in which case the brackets are adjacent citations.
	for _, loc := range refLinkRe.FindAllSubmatchIndex(b, -1) {
		if markShaped(string(b[loc[2]:loc[3]])) {
			continue
		}
		for i := loc[0]; i < loc[1]; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

func markShaped(content string) bool {
	bracketed := "[" + content + "]"
	return markRe.FindString(bracketed) == bracketed
}

func isFence(line string) bool {
	t := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~")
}
