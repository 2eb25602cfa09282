// Package reference defines the core domain types for citation entries.
package reference

// Grammar identifies which reference-line grammar produced an entry.
type Grammar string

const (
	GrammarNumberedLink       Grammar = "numbered_link"        // 1. [Title](url)
	GrammarNumberedMeta       Grammar = "numbered_meta"        // 2. [Title](url) Author, Journal, 2021.
	GrammarFootnoteDef        Grammar = "footnote_def"         // [^id]: text
	GrammarNumberedPlain      Grammar = "numbered_plain"       // 3. Smith, J. (2020). Title. Journal.
	GrammarGrouped            Grammar = "grouped_footnote"     // [^1] [^47] [^49] Title | Source
	GrammarNumberedLinkSuffix Grammar = "numbered_link_suffix" // 4. [Title](url) - Publisher
	GrammarWorksCited         Grammar = "works_cited"          // Smith, J. "Title." Journal, 2019.
	GrammarUnknown            Grammar = "unknown"              // Raw text preserved, never dropped
)

// Kind classifies the cited source. It is a closed set; parsers must not
// invent values outside it.
type Kind string

const (
	KindJournal Kind = "journal"
	KindBook    Kind = "book"
	KindWebpage Kind = "webpage"
	KindNews    Kind = "news"
	KindBlog    Kind = "blog"
	KindUnknown Kind = "unknown"
)

// Entry represents one parsed reference-list line (or multi-line entry).
// An entry belongs to exactly one section and its local IDs are unique
// within that section.
type Entry struct {
	// LocalIDs holds the author-visible numbers or footnote tags, as written.
	// Grouped entries carry several; every other grammar carries exactly one.
	LocalIDs []string `json:"local_ids"`

	Raw     string  `json:"raw"`     // Original text, always preserved
	Grammar Grammar `json:"grammar"` // Detected line grammar
	Kind    Kind    `json:"kind"`    // Source classification

	// Extracted fields (best effort; empty when the grammar does not carry them)
	Title      string `json:"title,omitempty"`
	AuthorText string `json:"author_text,omitempty"`
	Year       int    `json:"year,omitempty"`
	DOI        string `json:"doi,omitempty"`
	URL        string `json:"url,omitempty"`
	Journal    string `json:"journal,omitempty"`

	Line    int `json:"line"`               // 1-indexed first line in the document
	EndLine int `json:"end_line,omitempty"` // Last line for multi-line entries; 0 means Line
}

// Span returns the inclusive line range the entry occupies.
func (e Entry) Span() (int, int) {
	if e.EndLine >= e.Line {
		return e.Line, e.EndLine
	}
	return e.Line, e.Line
}

// PrimaryID returns the first local ID, or "" for a malformed entry.
func (e Entry) PrimaryID() string {
	if len(e.LocalIDs) == 0 {
		return ""
	}
	return e.LocalIDs[0]
}

// Grouped reports whether the entry maps several local IDs to one citation.
func (e Entry) Grouped() bool {
	return len(e.LocalIDs) > 1
}
