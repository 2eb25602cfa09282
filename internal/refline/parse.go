package refline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/refmark/internal/reference"
)

// genericLinkText are link labels that name the link, not the work.
var genericLinkText = map[string]bool{
	"pdf": true, "link": true, "here": true, "html": true, "url": true,
	"source": true, "archive": true, "archived": true, "doi": true,
	"online": true, "web": true, "site": true, "page": true, "paper": true,
	"full text": true, "read more": true,
}

// Parse converts one section's lines into entries. startLine is the absolute
// 1-indexed document line of lines[0].
//
// In implicit mode (a footnote block with no heading) only definition-shaped
// lines become entries and everything else is left to the caller as body
// text. In explicit mode every non-blank line inside the region belongs to
// some entry: lines no parser recognizes are preserved as unknown entries
// rather than dropped.
func Parse(lines []string, startLine int, implicit bool) []reference.Entry {
	var entries []reference.Entry
	pos := 0 // ordinal among recognized entries, for id-less grammars

	last := func() *reference.Entry {
		if len(entries) == 0 {
			return nil
		}
		return &entries[len(entries)-1]
	}

	for i, line := range lines {
		abs := startLine + i
		kind := Classify(line)

		switch {
		case kind == LineBlank:
			continue

		case Attaching(kind):
			prev := last()
			if prev != nil {
				if _, end := prev.Span(); end == abs-1 {
					attach(prev, line, abs, kind)
					continue
				}
			}
			if !implicit {
				entries = append(entries, unknownEntry(line, abs))
			}

		case RefLike(kind):
			if implicit && kind != LineFootnoteDef && kind != LineGrouped {
				continue
			}
			pos++
			e := parseLine(line, abs, kind, pos)
			e.Kind = reference.ClassifyKind(e)
			entries = append(entries, e)

		default:
			if !implicit {
				entries = append(entries, unknownEntry(line, abs))
			}
		}
	}
	return entries
}

// attach folds a continuation or wrapped line into the previous entry and
// picks up any fields the first line was missing.
func attach(e *reference.Entry, line string, abs int, kind LineKind) {
	e.Raw += "\n" + line
	e.EndLine = abs

	if kind == LineContinuation {
		m := angleURLRe.FindStringSubmatch(line)
		if m != nil && e.URL == "" {
			e.URL = strings.TrimRight(m[1], ".,;:")
		}
	} else if e.URL == "" {
		e.URL = ExtractURL(line)
	}
	if e.DOI == "" {
		e.DOI = ExtractDOI(line)
	}
	if e.Year == 0 {
		e.Year = ExtractYear(line)
	}
	recoverTitle(e)
	e.Kind = reference.ClassifyKind(*e)
}

// recoverTitle fills a missing or cut-off title from the URL slug when the
// slug carries real words. A truncated title is kept if the slug is opaque.
func recoverTitle(e *reference.Entry) {
	if e.URL == "" {
		return
	}
	if e.Title != "" && !reference.TruncatedTitle(e.Title) {
		return
	}
	if t := TitleFromSlug(e.URL); t != "" {
		e.Title = t
	}
}

func unknownEntry(line string, abs int) reference.Entry {
	e := reference.Entry{
		Raw:     line,
		Grammar: reference.GrammarUnknown,
		Line:    abs,
		EndLine: abs,
		URL:     ExtractURL(line),
		DOI:     ExtractDOI(line),
	}
	e.Kind = reference.ClassifyKind(e)
	return e
}

func parseLine(line string, abs int, kind LineKind, pos int) reference.Entry {
	e := reference.Entry{Raw: line, Line: abs, EndLine: abs}

	switch kind {
	case LineFootnoteDef:
		parseFootnoteDef(&e, line)
	case LineGrouped:
		parseGrouped(&e, line)
	case LineNumberedLink, LineNumberedMeta, LineNumberedLinkSuffix, LineNumberedPlain:
		parseNumbered(&e, line, kind)
	case LineWorksCited:
		e.Grammar = reference.GrammarWorksCited
		// Unnumbered lists are addressed by position.
		e.LocalIDs = []string{strconv.Itoa(pos)}
		parseAcademic(&e, strings.TrimSpace(line))
	}
	return e
}

// parseFootnoteDef handles "[^id]: body" where body may be a bare URL, a
// link, or a full citation.
func parseFootnoteDef(e *reference.Entry, line string) {
	m := footnoteDefRe.FindStringSubmatch(strings.TrimSpace(line))
	e.Grammar = reference.GrammarFootnoteDef
	e.LocalIDs = []string{m[1]}
	body := strings.TrimSpace(m[2])

	e.URL = ExtractURL(body)
	e.DOI = ExtractDOI(body)
	e.Year = ExtractYear(body)

	if lm := mdLinkRe.FindStringSubmatch(body); lm != nil {
		text := strings.TrimSpace(lm[1])
		if text != "" && !genericLinkText[strings.ToLower(text)] {
			e.Title = text
		}
	}
	if e.Title == "" {
		if qm := quotedTitleRe.FindString(body); qm != "" {
			e.Title = trimQuotes(qm)
		}
	}
	if e.Title == "" && hasProse(body) {
		parseAcademic(e, body)
	}
	recoverTitle(e)
	if e.AuthorText == "" {
		e.AuthorText = authorHead(body)
	}
}

// hasProse reports whether text still has multi-word content once URLs and
// link syntax are removed. A definition that is only a URL has no citation
// text to parse.
func hasProse(body string) bool {
	s := mdLinkRe.ReplaceAllString(body, "")
	s = urlRe.ReplaceAllString(s, "")
	s = strings.Trim(s, "<> .,;:")
	return strings.ContainsRune(strings.TrimSpace(s), ' ')
}

// parseGrouped handles "[^1] [^47] [^49] Title | Source". Several footnote
// ids share one source line; a <url> continuation may follow.
func parseGrouped(e *reference.Entry, line string) {
	e.Grammar = reference.GrammarGrouped
	rest := line
	for {
		m := footnoteTokRe.FindStringSubmatch(rest)
		if m == nil {
			break
		}
		e.LocalIDs = append(e.LocalIDs, m[1])
		rest = rest[len(m[0]):]
	}
	rest = strings.TrimSpace(rest)

	if i := strings.Index(rest, "|"); i >= 0 {
		e.Title = strings.TrimSpace(rest[:i])
		e.Journal = strings.TrimSpace(rest[i+1:])
	} else {
		e.Title = rest
	}
	e.Year = ExtractYear(rest)
	e.URL = ExtractURL(rest)
	e.DOI = ExtractDOI(rest)
}

// parseNumbered handles the "N. ..." family: bare link, link with metadata,
// link with a short source suffix, and plain academic text.
func parseNumbered(e *reference.Entry, line string, kind LineKind) {
	m := numberedRe.FindStringSubmatch(line)
	id := m[1]
	if id == "" {
		id = m[2]
	}
	e.LocalIDs = []string{id}
	rest := m[3]

	lm := mdLinkRe.FindStringSubmatchIndex(rest)
	if kind == LineNumberedPlain || lm == nil {
		e.Grammar = reference.GrammarNumberedPlain
		parseAcademic(e, rest)
		return
	}

	text := rest[lm[2]:lm[3]]
	e.URL = strings.TrimRight(rest[lm[4]:lm[5]], ".,;:")
	e.DOI = ExtractDOI(rest)
	prefix := strings.TrimSpace(rest[:lm[0]])
	suffix := strings.TrimSpace(rest[lm[1]:])

	if t := strings.TrimSpace(text); t != "" && !genericLinkText[strings.ToLower(t)] {
		e.Title = t
	}

	switch kind {
	case LineNumberedLink:
		e.Grammar = reference.GrammarNumberedLink
	case LineNumberedLinkSuffix:
		e.Grammar = reference.GrammarNumberedLinkSuffix
		e.Journal = strings.Trim(suffix, "-–— ,().")
	case LineNumberedMeta:
		e.Grammar = reference.GrammarNumberedMeta
		around := strings.TrimSpace(prefix + " " + suffix)
		e.Year = ExtractYear(around)
		e.AuthorText = authorHead(prefix)
		if e.Title == "" {
			if qm := quotedTitleRe.FindString(around); qm != "" {
				e.Title = trimQuotes(qm)
			}
		}
		e.Journal = venueOf(suffix)
	}

	recoverTitle(e)
}

// sentenceSplitRe splits citation text on sentence periods while leaving
// author initials ("Smith, J.") and "et al." intact.
var sentenceSplitRe = regexp.MustCompile(`\.\s+`)

// parseAcademic handles citation-styled text: some arrangement of author,
// parenthesized or trailing year, title, and venue separated by periods.
func parseAcademic(e *reference.Entry, text string) {
	if e.Grammar == "" {
		e.Grammar = reference.GrammarNumberedPlain
	}
	e.Year = ExtractYear(text)
	e.URL = ExtractURL(text)
	e.DOI = ExtractDOI(text)

	if qm := quotedTitleRe.FindString(text); qm != "" {
		e.Title = trimQuotes(qm)
		e.AuthorText = authorHead(text[:strings.Index(text, qm)])
		e.Journal = venueOf(afterMatch(text, qm))
		return
	}
	if im := italicTitleRe.FindString(text); im != "" {
		e.Title = strings.Trim(im, "*_")
		e.AuthorText = authorHead(text[:strings.Index(text, im)])
		e.Journal = venueOf(afterMatch(text, im))
		return
	}

	segs := splitSentences(text)
	switch {
	case len(segs) >= 3 && looksAuthorial(segs[0]):
		e.AuthorText = stripYear(segs[0])
		e.Title = strings.TrimSpace(segs[1])
		e.Journal = venueOf(strings.Join(segs[2:], ". "))
	case len(segs) == 2 && looksAuthorial(segs[0]):
		e.AuthorText = stripYear(segs[0])
		e.Title = strings.TrimSpace(segs[1])
	case len(segs) >= 2:
		e.Title = strings.TrimSpace(segs[0])
		e.Journal = venueOf(strings.Join(segs[1:], ". "))
	default:
		e.Title = strings.TrimSpace(stripYear(text))
	}
	e.Title = strings.TrimRight(e.Title, ".")
	if strings.Contains(e.Title, "://") {
		e.Title = ""
	}
}

// splitSentences divides on ". " but keeps single-letter initials and
// "et al." attached to their segment.
func splitSentences(text string) []string {
	locs := sentenceSplitRe.FindAllStringIndex(text, -1)
	var segs []string
	start := 0
	for _, loc := range locs {
		before := text[start:loc[0]]
		if isInitialTail(before) {
			continue
		}
		segs = append(segs, strings.TrimSpace(before))
		start = loc[1]
	}
	if tail := strings.TrimSpace(strings.TrimRight(text[start:], ". ")); tail != "" {
		segs = append(segs, tail)
	}
	return segs
}

// isInitialTail reports whether the text ends in an author initial or an
// abbreviation that should not terminate a segment.
func isInitialTail(s string) bool {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	w := strings.TrimRight(fields[len(fields)-1], ".")
	if len(w) == 1 && w[0] >= 'A' && w[0] <= 'Z' {
		return true
	}
	switch strings.ToLower(w) {
	case "al", "eds", "ed", "jr", "vol", "no", "pp", "st":
		return true
	}
	return false
}

// authorHead extracts leading author-shaped text, if any.
func authorHead(s string) string {
	s = strings.TrimSpace(s)
	if !looksAuthorial(s) {
		return ""
	}
	segs := splitSentences(s)
	if len(segs) == 0 {
		return ""
	}
	return strings.Trim(stripYear(segs[0]), " ,.")
}

// nameListRe matches a run of capitalized name words. On its own it cannot
// tell "John Smith and Mary Jones" from a Title-Case title, so callers also
// require a multi-author connector.
var nameListRe = regexp.MustCompile(`^[A-Z][a-z'’\-]+(?:\s+[A-Z][A-Za-z.'’\-]*)+(?:,|\s+and\b|\s+&|\.|$)`)

var parenYearRe = regexp.MustCompile(`\s*\(((?:19|20)\d{2})\)\.?`)

func stripYear(s string) string {
	return strings.TrimSpace(parenYearRe.ReplaceAllString(s, ""))
}

var volPagesRe = regexp.MustCompile(`\b(?:vol|no|pp?)\.\s*[\d–\-]+`)

// venueOf reduces trailing citation text to a venue name: years, dates,
// page/volume runs, and URLs removed.
func venueOf(s string) string {
	s = urlRe.ReplaceAllString(s, "")
	s = dateRe.ReplaceAllString(s, "")
	s = yearAnywhereRe.ReplaceAllString(s, "")
	s = volPagesRe.ReplaceAllString(s, "")
	s = strings.Trim(s, " .,;:()-–—")
	if len(s) < 2 || len(s) > 64 {
		return ""
	}
	return s
}

func afterMatch(text, match string) string {
	i := strings.Index(text, match)
	if i < 0 {
		return ""
	}
	return text[i+len(match):]
}

func trimQuotes(s string) string {
	return strings.Trim(s, `"“”`+" ,.")
}

func looksAuthorial(s string) bool {
	if wcAuthorHeadRe.MatchString(s) || strings.Contains(s, " et al") {
		return true
	}
	return nameListRe.MatchString(s) &&
		(strings.Contains(s, " and ") || strings.Contains(s, " & "))
}
