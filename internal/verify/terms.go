package verify

import "strings"

// stopwords are common function words carrying no topical signal.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"that": true, "this": true, "these": true, "those": true, "are": true,
	"was": true, "were": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "not": true, "but": true, "can": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "its": true, "their": true, "they": true, "them": true,
	"there": true, "which": true, "what": true, "who": true, "how": true,
	"when": true, "where": true, "also": true, "than": true, "then": true,
	"more": true, "most": true, "some": true, "such": true, "about": true,
	"into": true, "over": true, "after": true, "before": true, "between": true,
	"during": true, "through": true, "our": true, "your": true, "all": true,
	"any": true, "each": true, "other": true, "out": true, "per": true,
	"via": true, "however": true, "because": true, "while": true,
}

// tokenize lowercases text and returns content words: three letters or
// longer, not a bare number, not a stopword.
func tokenize(text string) []string {
	var words []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		w := b.String()
		b.Reset()
		if len(w) < 3 || stopwords[w] || numeric(w) {
			return
		}
		words = append(words, w)
	}
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return words
}

func numeric(w string) bool {
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// jaccard measures set overlap: intersection over union, 0 when either
// side is empty.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
