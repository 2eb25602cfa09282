// Package marks finds citation marks in body prose and rewrites them in
// place. A mark is one bracketed token: a numeric citation like [3] or
// [2, 5] or [4-7], a footnote mark like [^smith2020], or a placeholder
// [?9] left by an earlier run for a citation that never resolved.
package marks

import (
	"strconv"
	"strings"
)

// Kind distinguishes the mark syntaxes.
type Kind string

const (
	KindNumeric    Kind = "numeric"
	KindFootnote   Kind = "footnote"
	KindUnresolved Kind = "unresolved"
)

// Mark is one citation occurrence in body prose. Col and Len are byte
// offsets into the line, so rewrites can splice without re-scanning.
type Mark struct {
	Line int    `json:"line"`
	Col  int    `json:"col"`
	Len  int    `json:"len"`
	Raw  string `json:"raw"`
	Kind Kind   `json:"kind"`
	// IDs holds the section-local ids the mark names: expanded in order
	// for lists and ranges, a single tag for footnote and placeholder
	// marks.
	IDs []string `json:"ids"`
}

const maxLocalID = 999

// expandIDs parses the interior of a numeric mark into individual ids.
// Lists split on commas; ranges expand inclusively. Any id outside 1-999
// or a range running backwards disqualifies the whole mark, which keeps
// year spans like [1990-1995] out of the citation stream.
func expandIDs(content string) []string {
	var ids []string
	for _, part := range strings.Split(content, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil
		}
		start, end, isRange := splitRange(part)
		if !isRange {
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 || n > maxLocalID {
				return nil
			}
			ids = append(ids, part)
			continue
		}
		lo, err1 := strconv.Atoi(start)
		hi, err2 := strconv.Atoi(end)
		if err1 != nil || err2 != nil || lo < 1 || hi > maxLocalID || lo >= hi {
			return nil
		}
		for n := lo; n <= hi; n++ {
			ids = append(ids, strconv.Itoa(n))
		}
	}
	return ids
}

var rangeSeps = []string{"–", "—", "-", " to ", "to"}

func splitRange(part string) (string, string, bool) {
	for _, sep := range rangeSeps {
		if i := strings.Index(part, sep); i > 0 {
			return strings.TrimSpace(part[:i]), strings.TrimSpace(part[i+len(sep):]), true
		}
	}
	return "", "", false
}
