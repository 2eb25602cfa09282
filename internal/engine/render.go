package engine

import (
	"sort"

	"github.com/matsen/refmark/internal/document"
	"github.com/matsen/refmark/internal/metadata"
	"github.com/matsen/refmark/internal/reference"
	"github.com/matsen/refmark/internal/registry"
)

// lineEdit replaces the inclusive 1-indexed range start..end with repl.
// An empty repl deletes the range.
type lineEdit struct {
	start, end int
	repl       []string
}

// sectionEdits rewrites every reference entry as a canonical footnote
// definition. Only the first definition of a source survives; later
// sightings are deleted, which is what consolidates duplicates. Entries
// that never parsed keep their raw lines untouched.
func sectionEdits(doc *document.Document, reg *registry.Registry, r metadata.Renderer) []lineEdit {
	var edits []lineEdit
	rendered := make(map[reference.CanonicalKey]bool)

	for i := range doc.Sections {
		s := &doc.Sections[i]
		for _, e := range s.Entries {
			if len(e.LocalIDs) == 0 {
				continue
			}
			c := reg.ByKey(reference.KeyFor(e))
			if c == nil {
				continue
			}
			start, end := e.Span()
			if rendered[c.Key] {
				edits = append(edits, lineEdit{start: start, end: end})
				continue
			}
			rendered[c.Key] = true
			edits = append(edits, lineEdit{
				start: start,
				end:   end,
				repl:  []string{r.Definition(c.Label, c.Primary)},
			})
		}
	}
	return edits
}

// applyEdits splices the edits into a copy of lines, bottom-up so earlier
// offsets stay valid.
func applyEdits(lines []string, edits []lineEdit) []string {
	out := make([]string, len(lines))
	copy(out, lines)

	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	for _, e := range edits {
		if e.start < 1 || e.end > len(out) || e.start > e.end {
			continue
		}
		tail := make([]string, len(out[e.end:]))
		copy(tail, out[e.end:])
		out = append(out[:e.start-1], append(e.repl, tail...)...)
	}
	return out
}
