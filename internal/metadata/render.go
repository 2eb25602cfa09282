package metadata

import (
	"fmt"
	"strings"

	"github.com/matsen/refmark/internal/reference"
)

// PlainRenderer emits markdown footnote definitions: author and year when
// known, the title linked to its best URL, then the venue.
type PlainRenderer struct{}

func (PlainRenderer) Definition(label string, e reference.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[^%s]:", label)

	author := strings.TrimSpace(e.AuthorText)
	switch {
	case author != "" && e.Year > 0:
		fmt.Fprintf(&b, " %s (%d).", author, e.Year)
	case author != "":
		fmt.Fprintf(&b, " %s", ensureDot(author))
	case e.Year > 0:
		fmt.Fprintf(&b, " (%d).", e.Year)
	}

	link := bestLink(e)
	title := strings.TrimSpace(e.Title)
	switch {
	case title != "" && link != "":
		fmt.Fprintf(&b, " [%s](%s).", title, link)
	case title != "":
		fmt.Fprintf(&b, " %s.", title)
	case link != "":
		fmt.Fprintf(&b, " <%s>", link)
	default:
		fmt.Fprintf(&b, " %s", strings.TrimSpace(e.Raw))
	}

	if j := strings.TrimSpace(e.Journal); j != "" {
		fmt.Fprintf(&b, " %s.", j)
	}
	return b.String()
}

// bestLink prefers the DOI resolver URL over whatever link the entry came
// with.
func bestLink(e reference.Entry) string {
	if e.DOI != "" {
		return "https://doi.org/" + reference.NormalizeDOI(e.DOI)
	}
	return strings.TrimSpace(e.URL)
}

func ensureDot(s string) string {
	if strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}

// BibTeX renders one entry as a BibTeX record keyed by its label.
func BibTeX(label string, e reference.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", bibType(e.Kind), label)

	writeField := func(name, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "  %s = {%s},\n", name, escapeBib(value))
	}
	writeField("title", e.Title)
	writeField("author", strings.TrimRight(e.AuthorText, "."))
	if e.Year > 0 {
		fmt.Fprintf(&b, "  year = {%d},\n", e.Year)
	}
	writeField("journal", e.Journal)
	writeField("doi", reference.NormalizeDOI(e.DOI))
	if e.DOI == "" {
		writeField("url", e.URL)
	}
	b.WriteString("}\n")
	return b.String()
}

func bibType(k reference.Kind) string {
	switch k {
	case reference.KindJournal:
		return "article"
	case reference.KindBook:
		return "book"
	default:
		return "misc"
	}
}

// escapeBib protects the characters BibTeX treats specially.
func escapeBib(s string) string {
	r := strings.NewReplacer(
		"{", `\{`,
		"}", `\}`,
		"&", `\&`,
		"%", `\%`,
		"#", `\#`,
		"_", `\_`,
	)
	return r.Replace(s)
}
