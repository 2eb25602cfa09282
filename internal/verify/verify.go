// Package verify checks that a citation sits in prose that plausibly talks
// about the source it cites. It is a lexical heuristic, not semantics: the
// top keywords around the mark are compared against the keywords of the
// entry, and low overlap is flagged for a human to look at.
package verify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/matsen/refmark/internal/document"
	"github.com/matsen/refmark/internal/reference"
	"github.com/matsen/refmark/internal/registry"
)

// Target is one resolved citation occurrence to check.
type Target struct {
	Line  int                    `json:"line"`
	Key   reference.CanonicalKey `json:"key"`
	Label string                 `json:"label"`
}

// Mismatch flags a citation whose surrounding prose shares too little
// vocabulary with the cited source. Confidence rises as overlap falls.
type Mismatch struct {
	Line         int                    `json:"line"`
	Label        string                 `json:"label"`
	Key          reference.CanonicalKey `json:"key"`
	Score        float64                `json:"score"`
	Confidence   float64                `json:"confidence"`
	ContextTerms []string               `json:"context_terms"`
	EntryTerms   []string               `json:"entry_terms"`
}

// Params tune the verifier.
type Params struct {
	// Window is how many lines of prose on each side of the mark count
	// as context.
	Window int `json:"window" yaml:"window"`
	// TopK caps how many ranked keywords represent each side.
	TopK int `json:"top_k" yaml:"top_k"`
	// Threshold is the overlap score below which a citation is flagged.
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// Downweight discounts words that appear across many definitions,
	// so boilerplate like "journal" or "press" cannot carry a match.
	Downweight bool `json:"downweight" yaml:"downweight"`
}

func DefaultParams() Params {
	return Params{Window: 3, TopK: 10, Threshold: 0.10, Downweight: true}
}

// Verifier scores citation contexts against entry vocabulary.
type Verifier struct {
	doc    *document.Document
	reg    *registry.Registry
	params Params
	df     map[string]int // definition frequency per term
}

func NewVerifier(doc *document.Document, reg *registry.Registry, p Params) *Verifier {
	if p.Window <= 0 {
		p.Window = 3
	}
	if p.TopK <= 0 {
		p.TopK = 10
	}
	v := &Verifier{doc: doc, reg: reg, params: p, df: make(map[string]int)}
	for _, c := range reg.Canons() {
		seen := make(map[string]bool)
		for _, w := range tokenize(entryText(c.Primary)) {
			if !seen[w] {
				seen[w] = true
				v.df[w]++
			}
		}
	}
	return v
}

// Verify checks each target and returns the ones that fall below the
// threshold. Targets whose entry or context yields no usable vocabulary are
// skipped, since absence of words is not evidence of a wrong citation.
func (v *Verifier) Verify(targets []Target) []Mismatch {
	var out []Mismatch
	for _, t := range targets {
		c := v.reg.ByKey(t.Key)
		if c == nil {
			continue
		}
		entry := termSet(tokenize(entryText(c.Primary)), v.params.TopK)
		if len(entry) == 0 {
			continue
		}
		context := v.contextTerms(t.Line)
		if len(context) == 0 {
			continue
		}
		score := jaccard(context, entry)
		if score >= v.params.Threshold {
			continue
		}
		out = append(out, Mismatch{
			Line:         t.Line,
			Label:        t.Label,
			Key:          t.Key,
			Score:        score,
			Confidence:   1 - score,
			ContextTerms: sortedTerms(context),
			EntryTerms:   sortedTerms(entry),
		})
	}
	return out
}

var markSyntaxRe = regexp.MustCompile(`\[(?:\^|\?)?[A-Za-z0-9_.,\s–—\-]*\]`)

// contextTerms ranks the vocabulary around a line and keeps the top K.
// Reference-section lines never contribute, and citation-mark syntax is
// stripped so labels do not vouch for themselves.
func (v *Verifier) contextTerms(line int) map[string]bool {
	counts := make(map[string]int)
	for n := line - v.params.Window; n <= line+v.params.Window; n++ {
		if n < 1 || n > len(v.doc.Lines) || v.doc.InSection(n) {
			continue
		}
		text := markSyntaxRe.ReplaceAllString(v.doc.Line(n), " ")
		for _, w := range tokenize(text) {
			counts[w]++
		}
	}

	type ranked struct {
		word   string
		weight float64
	}
	rankedTerms := make([]ranked, 0, len(counts))
	for w, c := range counts {
		weight := float64(c)
		if v.params.Downweight {
			weight /= float64(1 + v.df[w])
		}
		rankedTerms = append(rankedTerms, ranked{w, weight})
	}
	sort.Slice(rankedTerms, func(i, j int) bool {
		if rankedTerms[i].weight != rankedTerms[j].weight {
			return rankedTerms[i].weight > rankedTerms[j].weight
		}
		return rankedTerms[i].word < rankedTerms[j].word
	})

	set := make(map[string]bool)
	for i, r := range rankedTerms {
		if i >= v.params.TopK {
			break
		}
		set[r.word] = true
	}
	return set
}

// entryText is the vocabulary-bearing text of an entry. The raw line backs
// up entries that parsed no fields, minus any URLs.
func entryText(e reference.Entry) string {
	parts := []string{e.Title, e.AuthorText, e.Journal}
	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		text = urlRe.ReplaceAllString(e.Raw, " ")
	}
	return text
}

var urlRe = regexp.MustCompile(`https?://\S+`)

func termSet(words []string, k int) map[string]bool {
	set := make(map[string]bool)
	for _, w := range words {
		if len(set) >= k {
			break
		}
		set[w] = true
	}
	return set
}

func sortedTerms(set map[string]bool) []string {
	terms := make([]string, 0, len(set))
	for w := range set {
		terms = append(terms, w)
	}
	sort.Strings(terms)
	return terms
}
