// Package audit derives integrity findings from a resolved document: real
// duplicates, entries nothing cites, citations nothing defines, repeated
// adjacent citations, and a single health score summarizing the damage.
package audit

import (
	"sort"

	"github.com/matsen/refmark/internal/marks"
	"github.com/matsen/refmark/internal/reference"
	"github.com/matsen/refmark/internal/registry"
	"github.com/matsen/refmark/internal/verify"
)

// Status classifies one citation occurrence after resolution.
type Status string

const (
	StatusResolved Status = "resolved"
	// StatusMissing marks a citation whose id has no entry in its section.
	StatusMissing Status = "missing"
	// StatusUnresolved marks a placeholder left by an earlier run that
	// still has nothing to bind to.
	StatusUnresolved Status = "unresolved"
)

// Citation is one id occurrence from one mark. A list mark like [2, 5]
// yields two citations.
type Citation struct {
	Mark    marks.Mark             `json:"mark"`
	ID      string                 `json:"id"`
	Section int                    `json:"section"`
	Key     reference.CanonicalKey `json:"key,omitempty"`
	Label   string                 `json:"label,omitempty"`
	Status  Status                 `json:"status"`
}

// Duplicate is one source that appears as multiple reference entries.
type Duplicate struct {
	Key   reference.CanonicalKey `json:"key"`
	Label string                 `json:"label"`
	Count int                    `json:"count"`
	Lines []int                  `json:"lines"`
}

// Orphan is a citable entry no body citation reaches.
type Orphan struct {
	Key   reference.CanonicalKey `json:"key"`
	Label string                 `json:"label"`
	Line  int                    `json:"line"`
	Title string                 `json:"title,omitempty"`
}

// Missing is a citation with no entry behind it.
type Missing struct {
	Line    int    `json:"line"`
	ID      string `json:"id"`
	Raw     string `json:"raw"`
	Section int    `json:"section"`
}

// Unresolved is a placeholder citation carried over from an earlier run.
type Unresolved struct {
	Line int    `json:"line"`
	ID   string `json:"id"`
}

// Run is a stretch of adjacent citations of the same source.
type Run struct {
	Line  int    `json:"line"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Report is the full audit result for one document.
type Report struct {
	Duplicates []Duplicate       `json:"duplicates"`
	Orphans    []Orphan          `json:"orphans"`
	Missing    []Missing         `json:"missing"`
	Unresolved []Unresolved      `json:"unresolved"`
	Runs       []Run             `json:"duplicate_runs"`
	Mismatches []verify.Mismatch `json:"context_mismatches"`
	Health     int               `json:"health"`
}

// Clean reports whether the audit found nothing at all.
func (r *Report) Clean() bool {
	return len(r.Duplicates) == 0 && len(r.Orphans) == 0 &&
		len(r.Missing) == 0 && len(r.Unresolved) == 0 &&
		len(r.Runs) == 0 && len(r.Mismatches) == 0
}

// Defect weights for the health score. Missing citations hurt most; a
// context mismatch is only a hint.
const (
	weightMissing    = 8
	weightUnresolved = 6
	weightOrphan     = 4
	weightRun        = 3
	weightMismatch   = 2
)

// Detector assembles reports against a frozen registry.
type Detector struct {
	reg *registry.Registry
}

func NewDetector(reg *registry.Registry) *Detector {
	return &Detector{reg: reg}
}

// Report builds the audit from resolved citations plus the findings other
// stages produced.
func (d *Detector) Report(cites []Citation, runs []Run, mismatches []verify.Mismatch) *Report {
	r := &Report{
		Duplicates: d.duplicates(),
		Runs:       runs,
		Mismatches: mismatches,
	}

	cited := make(map[reference.CanonicalKey]bool)
	for _, c := range cites {
		switch c.Status {
		case StatusResolved:
			cited[c.Key] = true
		case StatusMissing:
			r.Missing = append(r.Missing, Missing{
				Line: c.Mark.Line, ID: c.ID, Raw: c.Mark.Raw, Section: c.Section,
			})
		case StatusUnresolved:
			r.Unresolved = append(r.Unresolved, Unresolved{Line: c.Mark.Line, ID: c.ID})
		}
	}
	r.Orphans = d.orphans(cited)
	r.Health = health(r)
	return r
}

// duplicates lists every source with more than one entry, definition lines
// in document order.
func (d *Detector) duplicates() []Duplicate {
	var out []Duplicate
	for _, c := range d.reg.Canons() {
		if !c.Duplicate() {
			continue
		}
		dup := Duplicate{Key: c.Key, Label: c.Label, Count: len(c.Sources)}
		for _, src := range c.Sources {
			dup.Lines = append(dup.Lines, src.Entry.Line)
		}
		sort.Ints(dup.Lines)
		out = append(out, dup)
	}
	return out
}

// orphans lists citable entries nothing references. Entries with no local
// ids were never addressable, so they are not counted against the document.
func (d *Detector) orphans(cited map[reference.CanonicalKey]bool) []Orphan {
	citable := make(map[reference.CanonicalKey]bool)
	for _, m := range d.reg.Mappings() {
		citable[m.Key] = true
	}
	var out []Orphan
	for _, c := range d.reg.Canons() {
		if !citable[c.Key] || cited[c.Key] {
			continue
		}
		out = append(out, Orphan{
			Key: c.Key, Label: c.Label, Line: c.Primary.Line, Title: c.Primary.Title,
		})
	}
	return out
}

// health folds the findings into a 0-100 score.
func health(r *Report) int {
	score := 100 -
		weightMissing*len(r.Missing) -
		weightUnresolved*len(r.Unresolved) -
		weightOrphan*len(r.Orphans) -
		weightRun*len(r.Runs) -
		weightMismatch*len(r.Mismatches)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
