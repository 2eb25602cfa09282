// Package registry collapses parsed reference entries into one canonical
// record per source and assigns each a stable footnote label.
package registry

import (
	"fmt"

	"github.com/matsen/refmark/internal/document"
	"github.com/matsen/refmark/internal/reference"
)

// Canon is one logical source: every entry that resolved to the same
// canonical key, merged.
type Canon struct {
	Key   reference.CanonicalKey `json:"key"`
	Label string                 `json:"label"`
	// Primary carries the merged view of the source: each field filled
	// from the first contributing entry that had it.
	Primary reference.Entry `json:"primary"`
	Sources []Source        `json:"sources"`
}

// Source records where one contributing entry came from.
type Source struct {
	Section int             `json:"section"`
	Entry   reference.Entry `json:"entry"`
}

// Duplicate reports whether more than one entry named this source.
func (c *Canon) Duplicate() bool { return len(c.Sources) > 1 }

// Home returns the section index holding the source's first definition.
func (c *Canon) Home() int {
	if len(c.Sources) == 0 {
		return -1
	}
	return c.Sources[0].Section
}

// Mapping ties one section-local id to its canonical record.
type Mapping struct {
	Section int                    `json:"section"`
	LocalID string                 `json:"local_id"`
	Key     reference.CanonicalKey `json:"key"`
	Label   string                 `json:"label"`
}

// Builder accumulates entries section by section. Build freezes the result;
// a Builder is single-use.
type Builder struct {
	canons   []*Canon
	byKey    map[reference.CanonicalKey]*Canon
	mappings []Mapping
}

func NewBuilder() *Builder {
	return &Builder{byKey: make(map[reference.CanonicalKey]*Canon)}
}

// AddDocument feeds every section of a segmented document, in order.
func (b *Builder) AddDocument(doc *document.Document) {
	for i := range doc.Sections {
		b.AddSection(&doc.Sections[i])
	}
}

// AddSection merges one section's entries into the registry under
// construction. Entries whose canonical key is already present fold into
// the existing record, whatever section they came from.
func (b *Builder) AddSection(s *document.Section) {
	for _, e := range s.Entries {
		key := reference.KeyFor(e)
		c, ok := b.byKey[key]
		if !ok {
			c = &Canon{Key: key, Primary: e}
			b.byKey[key] = c
			b.canons = append(b.canons, c)
		} else {
			mergeInto(&c.Primary, e)
		}
		c.Sources = append(c.Sources, Source{Section: s.Index, Entry: e})

		for _, id := range e.LocalIDs {
			b.mappings = append(b.mappings, Mapping{
				Section: s.Index,
				LocalID: id,
				Key:     key,
			})
		}
	}
}

// Build allocates labels in first-appearance order and returns the frozen
// registry.
func (b *Builder) Build() *Registry {
	taken := make(map[string]bool)
	for _, c := range b.canons {
		c.Label = allocateLabel(reference.BaseLabel(c.Primary), taken)
	}
	for i := range b.mappings {
		b.mappings[i].Label = b.byKey[b.mappings[i].Key].Label
	}

	r := &Registry{
		canons:   b.canons,
		byKey:    b.byKey,
		mappings: b.mappings,
		byLocal:  make(map[localRef]*Canon),
		byLabel:  make(map[string]*Canon),
	}
	for _, m := range b.mappings {
		r.byLocal[localRef{m.Section, m.LocalID}] = b.byKey[m.Key]
	}
	for _, c := range b.canons {
		r.byLabel[c.Label] = c
	}
	return r
}

// allocateLabel keeps the first use of a base bare and suffixes later ones
// -b, -c, and so on in order of appearance.
func allocateLabel(base string, taken map[string]bool) string {
	if !taken[base] {
		taken[base] = true
		return base
	}
	for i := 0; ; i++ {
		var label string
		if i < 25 {
			label = fmt.Sprintf("%s-%c", base, 'b'+i)
		} else {
			label = fmt.Sprintf("%s-%d", base, i+2)
		}
		if !taken[label] {
			taken[label] = true
			return label
		}
	}
}

type localRef struct {
	section int
	localID string
}

// Registry is the frozen canonical view of a document's references.
type Registry struct {
	canons   []*Canon
	byKey    map[reference.CanonicalKey]*Canon
	byLocal  map[localRef]*Canon
	byLabel  map[string]*Canon
	mappings []Mapping
}

// Canons returns the records in label-allocation (document) order.
func (r *Registry) Canons() []*Canon { return r.canons }

// Mappings returns every (section, local id) binding.
func (r *Registry) Mappings() []Mapping { return r.mappings }

// ByKey looks a record up by canonical key.
func (r *Registry) ByKey(key reference.CanonicalKey) *Canon { return r.byKey[key] }

// ByLocal resolves a section-local id to its record, or nil.
func (r *Registry) ByLocal(section int, localID string) *Canon {
	return r.byLocal[localRef{section, localID}]
}

// ByLabel looks a record up by its assigned label, or nil.
func (r *Registry) ByLabel(label string) *Canon { return r.byLabel[label] }

// HasLabel reports whether the label belongs to some record.
func (r *Registry) HasLabel(label string) bool { return r.byLabel[label] != nil }

// mergeInto fills gaps in the merged view from a later sighting of the same
// source. A complete title beats a truncated one.
func mergeInto(dst *reference.Entry, src reference.Entry) {
	if src.Title != "" {
		truncatedUpgrade := reference.TruncatedTitle(dst.Title) && !reference.TruncatedTitle(src.Title)
		if dst.Title == "" || truncatedUpgrade {
			dst.Title = src.Title
		}
	}
	if dst.AuthorText == "" {
		dst.AuthorText = src.AuthorText
	}
	if dst.Year == 0 {
		dst.Year = src.Year
	}
	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.Journal == "" {
		dst.Journal = src.Journal
	}
	if dst.Kind == reference.KindUnknown {
		dst.Kind = src.Kind
	}
	dst.Kind = reference.ClassifyKind(*dst)
}
