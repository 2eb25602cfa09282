package document

import (
	"strings"

	"github.com/matsen/refmark/internal/refline"
)

// Segment splits markdown text into body prose and reference sections.
//
// Explicit sections are found first: each recognized heading opens a span
// that runs to the next such heading or end of file, and the entry region
// within it covers the first through last reference-shaped line. A single
// stray line inside the region is kept as an unknown entry; two consecutive
// prose lines end the region and everything after them is body again.
//
// If footnote definitions appear before any heading (or the document has no
// headings at all) they form one implicit section whose span runs up to the
// first heading.
func Segment(text string) *Document {
	lines := strings.Split(text, "\n")
	d := &Document{Lines: lines}
	d.FrontmatterEnd = frontmatterEnd(lines)

	headers, titles := findHeaders(lines, d.FrontmatterEnd)

	limit := len(lines)
	if len(headers) > 0 {
		limit = headers[0] - 1
	}
	if s, ok := implicitSection(lines, d.FrontmatterEnd+1, limit); ok {
		s.Index = len(d.Sections)
		d.Sections = append(d.Sections, s)
	}

	for idx, h := range headers {
		spanEnd := len(lines)
		if idx+1 < len(headers) {
			spanEnd = headers[idx+1] - 1
		}
		s := Section{
			Index:      len(d.Sections),
			Title:      titles[h],
			HeaderLine: h,
			SpanEnd:    spanEnd,
		}
		start, end := entryRegion(lines, h+1, spanEnd)
		s.Start, s.End = start, end
		if start > 0 {
			s.Entries = refline.Parse(lines[start-1:end], start, false)
		}
		d.Sections = append(d.Sections, s)
	}
	return d
}

// findHeaders locates reference-section headings outside code fences.
func findHeaders(lines []string, skip int) ([]int, map[int]string) {
	var headers []int
	titles := make(map[int]string)
	inFence := false
	for i, raw := range lines {
		n := i + 1
		if n <= skip {
			continue
		}
		if isFence(raw) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if title, ok := IsSectionHeading(raw); ok {
			headers = append(headers, n)
			titles[n] = title
		}
	}
	return headers, titles
}

// entryRegion finds the first..last reference-shaped lines between from and
// to. Two consecutive non-blank unrecognized lines terminate the region.
func entryRegion(lines []string, from, to int) (int, int) {
	first := 0
	for n := from; n <= to && n <= len(lines); n++ {
		if refline.RefLike(refline.Classify(lines[n-1])) {
			first = n
			break
		}
	}
	if first == 0 {
		return 0, 0
	}
	last := first
	junk := 0
	for n := first + 1; n <= to && n <= len(lines); n++ {
		k := refline.Classify(lines[n-1])
		switch {
		case k == refline.LineBlank:
			junk = 0
		case refline.RefLike(k) || refline.Attaching(k):
			junk = 0
			last = n
		default:
			junk++
			if junk >= 2 {
				return first, last
			}
		}
	}
	return first, last
}

// implicitSection collects a bare footnote-definition block from the given
// range. Fenced code is masked out so example syntax inside code blocks
// never reads as a definition.
func implicitSection(lines []string, from, to int) (Section, bool) {
	first := 0
	inFence := false
	for n := from; n <= to && n >= 1 && n <= len(lines); n++ {
		raw := lines[n-1]
		if isFence(raw) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		k := refline.Classify(raw)
		if k == refline.LineFootnoteDef || k == refline.LineGrouped {
			first = n
			break
		}
	}
	if first == 0 {
		return Section{}, false
	}

	s := Section{Implicit: true, Start: first, SpanEnd: to}
	s.Entries = refline.Parse(maskFences(lines[first-1:to]), first, true)
	s.End = first
	for _, e := range s.Entries {
		if _, end := e.Span(); end > s.End {
			s.End = end
		}
	}
	return s, true
}

// maskFences blanks code-fence delimiters and their interiors.
func maskFences(lines []string) []string {
	out := make([]string, len(lines))
	inFence := false
	for i, raw := range lines {
		if isFence(raw) {
			inFence = !inFence
			continue
		}
		if !inFence {
			out[i] = raw
		}
	}
	return out
}

func isFence(line string) bool {
	t := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~")
}

// frontmatterEnd returns the last line of a leading YAML frontmatter block,
// or 0 when the document has none.
func frontmatterEnd(lines []string) int {
	if len(lines) == 0 || strings.TrimRight(lines[0], " \r") != "---" {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		t := strings.TrimRight(lines[i], " \r")
		if t == "---" || t == "..." {
			return i + 1
		}
	}
	return 0
}
