// Package importer converts reference-manager JSON exports into footnote
// definition blocks ready to append to a markdown document.
package importer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/refmark/internal/metadata"
	"github.com/matsen/refmark/internal/reference"
)

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	// Handle null
	if string(data) == "null" {
		*f = ""
		return nil
	}

	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	// Try number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// ManagerEntry represents a single entry from a reference-manager JSON
// export (Paperpile and compatible tools).
type ManagerEntry struct {
	ID      string `json:"_id"`
	Citekey string `json:"citekey"`
	DOI     string `json:"doi"`
	Title   string `json:"title"`
	Journal string `json:"journal"`
	URL     string `json:"url"`
	Kind    string `json:"kind"` // journal, book, webpage; empty means classify

	Published struct {
		Year  FlexibleString `json:"year"`
		Month FlexibleString `json:"month"`
		Day   FlexibleString `json:"day"`
	} `json:"published"`

	Author []struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"author"`
}

// Parse parses a reference-manager JSON export. Entries that cannot be
// converted are reported individually; the rest import anyway.
func Parse(data []byte) ([]reference.Entry, []error) {
	var entries []ManagerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, []error{fmt.Errorf("parsing export JSON: %w", err)}
	}

	var refs []reference.Entry
	var errs []error

	taken := make(map[string]bool)
	for i, entry := range entries {
		ref, err := managerEntryToEntry(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i+1, entry.Citekey, err))
			continue
		}
		ref.LocalIDs = []string{uniqueLabel(ref.LocalIDs[0], taken)}
		refs = append(refs, ref)
	}

	return refs, errs
}

// managerEntryToEntry converts one export entry to our Entry type.
func managerEntryToEntry(entry ManagerEntry) (reference.Entry, error) {
	if entry.Title == "" && entry.URL == "" {
		return reference.Entry{}, fmt.Errorf("missing both 'title' and 'url'")
	}

	ref := reference.Entry{
		Grammar: reference.GrammarFootnoteDef,
		Title:   entry.Title,
		DOI:     reference.NormalizeDOI(entry.DOI),
		URL:     entry.URL,
		Journal: entry.Journal,
	}

	if entry.Published.Year.String() != "" {
		year, err := strconv.Atoi(entry.Published.Year.String())
		if err != nil {
			return reference.Entry{}, fmt.Errorf("invalid year: %s", entry.Published.Year.String())
		}
		ref.Year = year
	}

	var names []string
	for _, a := range entry.Author {
		name := strings.TrimSpace(a.First + " " + a.Last)
		if name != "" {
			names = append(names, name)
		}
	}
	ref.AuthorText = strings.Join(names, ", ")

	switch entry.Kind {
	case string(reference.KindJournal), string(reference.KindBook),
		string(reference.KindWebpage), string(reference.KindNews), string(reference.KindBlog):
		ref.Kind = reference.Kind(entry.Kind)
	default:
		ref.Kind = reference.ClassifyKind(ref)
	}

	// Use citekey as the footnote tag, falling back to manager ID, then title.
	tag := entry.Citekey
	if tag == "" {
		tag = entry.ID
	}
	if tag == "" {
		tag = reference.BaseLabel(ref)
	}
	ref.LocalIDs = []string{sanitizeLabel(tag)}

	ref.Raw = rawLine(ref)

	return ref, nil
}

// rawLine synthesizes the source text an imported entry would have had.
func rawLine(ref reference.Entry) string {
	var parts []string
	if ref.Title != "" {
		parts = append(parts, ref.Title)
	}
	if ref.URL != "" {
		parts = append(parts, ref.URL)
	} else if ref.DOI != "" {
		parts = append(parts, "https://doi.org/"+ref.DOI)
	}
	return strings.Join(parts, " ")
}

// sanitizeLabel rewrites a citekey into the footnote tag charset. Purely
// numeric tags collide with numbered citations, so they get a src- prefix.
func sanitizeLabel(tag string) string {
	var b strings.Builder
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "src"
	}
	if allDigits(out) {
		return "src-" + out
	}
	return out
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// uniqueLabel suffixes -b, -c, and so on when a batch reuses a citekey.
func uniqueLabel(label string, taken map[string]bool) string {
	if !taken[label] {
		taken[label] = true
		return label
	}
	for i := 0; ; i++ {
		var candidate string
		if i < 25 {
			candidate = fmt.Sprintf("%s-%c", label, 'b'+i)
		} else {
			candidate = fmt.Sprintf("%s-%d", label, i+2)
		}
		if !taken[candidate] {
			taken[candidate] = true
			return candidate
		}
	}
}

// RenderSection renders imported entries as a headed reference section.
// The caller appends the lines to the document and runs normalize to fold
// them into the registry.
func RenderSection(entries []reference.Entry, r metadata.Renderer) []string {
	if len(entries) == 0 {
		return nil
	}

	lines := []string{"## References", ""}
	for _, e := range entries {
		lines = append(lines, r.Definition(e.PrimaryID(), e))
	}
	return lines
}
