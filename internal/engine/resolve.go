package engine

import (
	"strings"

	"github.com/matsen/refmark/internal/audit"
	"github.com/matsen/refmark/internal/document"
	"github.com/matsen/refmark/internal/marks"
	"github.com/matsen/refmark/internal/registry"
)

// resolvedMark is one scanned mark with every id bound (or not) to a
// canonical record.
type resolvedMark struct {
	mark    marks.Mark
	section int
	ids     []resolvedID
}

// resolvedID is one id within a mark. labelDirect means the mark already
// carries the final label, so rewriting it would be a no-op.
type resolvedID struct {
	id          string
	canon       *registry.Canon
	status      audit.Status
	labelDirect bool
}

// singleCanon returns the one record every id of the mark resolves to, or
// nil when the mark is mixed or unresolved.
func (rm *resolvedMark) singleCanon() *registry.Canon {
	var c *registry.Canon
	for _, rid := range rm.ids {
		if rid.status != audit.StatusResolved || rid.canon == nil {
			return nil
		}
		if c == nil {
			c = rid.canon
		} else if c != rid.canon {
			return nil
		}
	}
	return c
}

// resolveMarks binds every scanned mark against the registry through its
// binding section.
func resolveMarks(doc *document.Document, reg *registry.Registry, ms []marks.Mark) []resolvedMark {
	out := make([]resolvedMark, 0, len(ms))
	for _, m := range ms {
		rm := resolvedMark{mark: m, section: -1}
		if s := doc.BindingSection(m.Line); s != nil {
			rm.section = s.Index
		}
		for _, id := range m.IDs {
			rm.ids = append(rm.ids, resolveID(reg, rm.section, id, m.Kind))
		}
		out = append(out, rm)
	}
	return out
}

func resolveID(reg *registry.Registry, section int, id string, kind marks.Kind) resolvedID {
	rid := resolvedID{id: id}

	if c := reg.ByLocal(section, id); c != nil {
		rid.canon = c
		rid.status = audit.StatusResolved
		rid.labelDirect = kind == marks.KindFootnote && c.Label == id
		return rid
	}
	// A footnote tag that is already a final label needs no definition in
	// its own section; it refers to the labeled record wherever it lives.
	if kind == marks.KindFootnote {
		if c := reg.ByLabel(id); c != nil {
			rid.canon = c
			rid.status = audit.StatusResolved
			rid.labelDirect = true
			return rid
		}
	}
	if kind == marks.KindUnresolved {
		rid.status = audit.StatusUnresolved
		return rid
	}
	rid.status = audit.StatusMissing
	return rid
}

// collapseRuns folds adjacent marks citing the same source into the first
// of the run. Marks separated by more than whitespace, or citing different
// sources, never collapse. Dropped marks consume the gap before them so no
// double spacing is left behind.
func collapseRuns(doc *document.Document, rms []resolvedMark) ([]resolvedMark, []marks.Replacement, []audit.Run) {
	var (
		kept  []resolvedMark
		drops []marks.Replacement
		runs  []audit.Run
	)

	i := 0
	for i < len(rms) {
		head := rms[i]
		canon := head.singleCanon()
		j := i + 1
		for canon != nil && j < len(rms) {
			next := rms[j]
			if next.mark.Line != head.mark.Line || next.singleCanon() != canon {
				break
			}
			prevEnd := rms[j-1].mark.Col + rms[j-1].mark.Len
			gap := doc.Line(head.mark.Line)
			if prevEnd > next.mark.Col || next.mark.Col > len(gap) ||
				strings.TrimSpace(gap[prevEnd:next.mark.Col]) != "" {
				break
			}
			drops = append(drops, marks.Replacement{
				Mark: marks.Mark{
					Line: next.mark.Line,
					Col:  prevEnd,
					Len:  next.mark.Col + next.mark.Len - prevEnd,
				},
			})
			j++
		}
		if j-i > 1 {
			runs = append(runs, audit.Run{
				Line:  head.mark.Line,
				Label: canon.Label,
				Count: j - i,
			})
		}
		kept = append(kept, head)
		i = j
	}
	return kept, drops, runs
}

// replacementText builds the rewritten form of one mark: a footnote label
// per resolved id, a [?id] placeholder per id that failed, with repeats of
// the same label inside one mark folded.
func replacementText(rm resolvedMark) string {
	var b strings.Builder
	var lastLabel string
	for _, rid := range rm.ids {
		if rid.status == audit.StatusResolved {
			if rid.canon.Label == lastLabel {
				continue
			}
			lastLabel = rid.canon.Label
			b.WriteString("[^" + rid.canon.Label + "]")
			continue
		}
		lastLabel = ""
		b.WriteString("[?" + rid.id + "]")
	}
	return b.String()
}
