// Package document segments markdown text into body prose and reference
// sections, and answers where a given line falls.
package document

import (
	"strings"

	"github.com/matsen/refmark/internal/reference"
)

// Section is one reference list in a document. Explicit sections open with a
// recognized heading; implicit ones are bare footnote-definition blocks.
//
// Start..End is the entry region: the lines the section's entries occupy.
// SpanEnd extends past the region to the next section heading (or end of
// file) and bounds which body lines the section claims for citation binding.
type Section struct {
	Index      int               `json:"index"`
	Title      string            `json:"title,omitempty"`
	Implicit   bool              `json:"implicit,omitempty"`
	HeaderLine int               `json:"header_line,omitempty"`
	Start      int               `json:"start"`
	End        int               `json:"end"`
	SpanEnd    int               `json:"span_end"`
	Entries    []reference.Entry `json:"entries"`
}

// Document holds the segmented source text. Lines are 1-indexed throughout.
type Document struct {
	Lines          []string  `json:"-"`
	FrontmatterEnd int       `json:"frontmatter_end,omitempty"`
	Sections       []Section `json:"sections"`
}

// Line returns the 1-indexed line, or "" when out of range.
func (d *Document) Line(n int) string {
	if n < 1 || n > len(d.Lines) {
		return ""
	}
	return d.Lines[n-1]
}

// InSection reports whether a line is reference-list content rather than
// body prose. For explicit sections the whole entry region counts; for
// implicit ones only the definition lines themselves do, so prose threaded
// between footnote definitions is still scanned for citations.
func (d *Document) InSection(line int) bool {
	for i := range d.Sections {
		s := &d.Sections[i]
		if s.HeaderLine > 0 && line == s.HeaderLine {
			return true
		}
		if !s.Implicit {
			if s.Start > 0 && line >= s.Start && line <= s.End {
				return true
			}
			continue
		}
		for _, e := range s.Entries {
			start, end := e.Span()
			if line >= start && line <= end {
				return true
			}
		}
	}
	return false
}

// BindingSection resolves which section a citation at the given line refers
// to: the section whose span covers the line, else the nearest section that
// follows, else the nearest one before.
func (d *Document) BindingSection(line int) *Section {
	for i := range d.Sections {
		if d.Sections[i].Covers(line) {
			return &d.Sections[i]
		}
	}
	var following, preceding *Section
	for i := range d.Sections {
		s := &d.Sections[i]
		if s.spanStart() > line {
			if following == nil || s.spanStart() < following.spanStart() {
				following = s
			}
		} else if preceding == nil || s.SpanEnd > preceding.SpanEnd {
			preceding = s
		}
	}
	if following != nil {
		return following
	}
	return preceding
}

// SectionFor returns the section with the given index, or nil.
func (d *Document) SectionFor(index int) *Section {
	for i := range d.Sections {
		if d.Sections[i].Index == index {
			return &d.Sections[i]
		}
	}
	return nil
}

// Covers reports whether the line falls inside the section's span.
func (s *Section) Covers(line int) bool {
	return line >= s.spanStart() && line <= s.SpanEnd
}

func (s *Section) spanStart() int {
	if s.HeaderLine > 0 {
		return s.HeaderLine
	}
	return s.Start
}

// EntryAt finds the entry carrying the given section-local id.
func (s *Section) EntryAt(localID string) *reference.Entry {
	for i := range s.Entries {
		for _, id := range s.Entries[i].LocalIDs {
			if id == localID {
				return &s.Entries[i]
			}
		}
	}
	return nil
}

// sectionKeywords mark a heading as opening a reference list.
var sectionKeywords = []string{
	"references", "bibliography", "citations", "works cited", "sources",
}

// IsSectionHeading reports whether a line is a level 1-3 heading naming a
// reference list, returning the cleaned heading text.
func IsSectionHeading(line string) (string, bool) {
	trimmed := strings.TrimRight(line, " \t\r")
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level < 1 || level > 3 || level >= len(trimmed) || trimmed[level] != ' ' {
		return "", false
	}
	title := strings.TrimSpace(strings.TrimRight(trimmed[level+1:], "# "))
	lower := strings.ToLower(title)
	for _, kw := range sectionKeywords {
		if containsWord(lower, kw) {
			return title, true
		}
	}
	return "", false
}

// containsWord reports whether s contains kw bounded by non-word bytes, so
// "Resources" does not read as "sources".
func containsWord(s, kw string) bool {
	for from := 0; ; {
		i := strings.Index(s[from:], kw)
		if i < 0 {
			return false
		}
		i += from
		before := i == 0 || !isWordByte(s[i-1])
		afterIdx := i + len(kw)
		after := afterIdx >= len(s) || !isWordByte(s[afterIdx])
		if before && after {
			return true
		}
		from = i + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
