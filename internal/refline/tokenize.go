// Package refline classifies and parses individual reference-list lines.
//
// Classification and parsing are split: Classify tags a line with one of a
// small set of line kinds, and a dedicated parser per kind extracts fields.
// Adding a new list convention means adding a kind and a parser, not
// reordering a shared priority chain.
package refline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// LineKind tags the grammatical shape of one reference-list line.
type LineKind string

const (
	LineBlank              LineKind = "blank"
	LineFootnoteDef        LineKind = "footnote_def"         // [^id]: text
	LineGrouped            LineKind = "grouped"              // [^1] [^47] [^49] Title | Source
	LineNumberedLink       LineKind = "numbered_link"        // 1. [Title](url)
	LineNumberedMeta       LineKind = "numbered_meta"        // 2. [Title](url) Author, Journal, 2021.
	LineNumberedPlain      LineKind = "numbered_plain"       // 3. Smith, J. (2020). Title. Journal.
	LineNumberedLinkSuffix LineKind = "numbered_link_suffix" // 4. [Title](url) - Publisher
	LineWorksCited         LineKind = "works_cited"          // Smith, J. "Title." Journal, 2019.
	LineContinuation       LineKind = "continuation"         // <https://...> on its own line
	LineIndented           LineKind = "indented"             // wrapped tail of the previous entry
	LineProse              LineKind = "prose"                // none of the above
)

var (
	footnoteDefRe = regexp.MustCompile(`^\[\^([^\]\s:]+)\]:\s*(.*)$`)
	footnoteTokRe = regexp.MustCompile(`^\s*\[\^([^\]\s:]+)\]\s*`)
	numberedRe    = regexp.MustCompile(`^\s{0,3}(?:(\d{1,4})[.)]|\[(\d{1,4})\])\s+(\S.*)$`)
	angleURLRe    = regexp.MustCompile(`^\s*<(https?://[^>\s]+)>\s*$`)
	mdLinkRe      = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)

	// Works-cited heads: "Smith, J." or "Smith, John." at line start.
	wcAuthorHeadRe = regexp.MustCompile(`^[A-Z][A-Za-z'’\-]+,\s+[A-Z][A-Za-z.\-]*[.,]`)
	quotedTitleRe  = regexp.MustCompile(`[“"][^”"]{3,}[”"]`)
	italicTitleRe  = regexp.MustCompile(`\*[^*]{3,}\*|_[^_]{3,}_`)
	yearAnywhereRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// Classify tags a single line. The checks run in a fixed order so repeated
// runs over the same input always resolve identically.
func Classify(line string) LineKind {
	if strings.TrimSpace(line) == "" {
		return LineBlank
	}
	if angleURLRe.MatchString(line) {
		return LineContinuation
	}
	if footnoteDefRe.MatchString(strings.TrimSpace(line)) {
		return LineFootnoteDef
	}
	if kind, ok := classifyGrouped(line); ok {
		return kind
	}
	if m := numberedRe.FindStringSubmatch(line); m != nil {
		return classifyNumbered(m[3])
	}
	if isWorksCited(strings.TrimSpace(line)) {
		return LineWorksCited
	}
	if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "  ") {
		return LineIndented
	}
	return LineProse
}

// RefLike reports whether a kind opens a new entry (as opposed to attaching
// to or sitting outside one).
func RefLike(k LineKind) bool {
	switch k {
	case LineFootnoteDef, LineGrouped, LineNumberedLink, LineNumberedMeta,
		LineNumberedPlain, LineNumberedLinkSuffix, LineWorksCited:
		return true
	}
	return false
}

// Attaching reports whether a kind continues the previous entry.
func Attaching(k LineKind) bool {
	return k == LineContinuation || k == LineIndented
}

// classifyGrouped matches one or more [^id] tokens (no colon) followed by
// title/source text. A single-token line must lead into something that looks
// titled (uppercase, digit, or quote) so body prose starting with a footnote
// mark is not swallowed.
func classifyGrouped(line string) (LineKind, bool) {
	rest := line
	count := 0
	for {
		m := footnoteTokRe.FindStringSubmatch(rest)
		if m == nil {
			break
		}
		rest = rest[len(m[0]):]
		count++
	}
	if count == 0 {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}
	if count == 1 && !startsTitled(rest) {
		return "", false
	}
	return LineGrouped, true
}

func startsTitled(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '"' || r == '“' || r == '*'
}

// classifyNumbered splits the numbered variants apart by link position and
// trailing text.
func classifyNumbered(rest string) LineKind {
	loc := mdLinkRe.FindStringIndex(rest)
	if loc == nil {
		return LineNumberedPlain
	}
	prefix := strings.TrimSpace(rest[:loc[0]])
	suffix := strings.TrimSpace(rest[loc[1]:])

	if prefix == "" && trailingPunctOnly(suffix) {
		return LineNumberedLink
	}
	if prefix == "" && shortSuffix(suffix) {
		return LineNumberedLinkSuffix
	}
	return LineNumberedMeta
}

// trailingPunctOnly allows a bare closing "." or "," after the link.
func trailingPunctOnly(s string) bool {
	return strings.Trim(s, ".,;: ") == ""
}

// shortSuffix recognizes a brief source tag such as " - Nature News" or
// " (archived)". Anything carrying a year or running long is metadata.
func shortSuffix(s string) bool {
	if len(s) > 48 || yearAnywhereRe.MatchString(s) {
		return false
	}
	return strings.HasPrefix(s, "-") || strings.HasPrefix(s, "–") ||
		strings.HasPrefix(s, "—") || strings.HasPrefix(s, ",") ||
		strings.HasPrefix(s, "(")
}

// isWorksCited requires an author head plus at least one of a quoted title,
// an emphasized title, or a year, so ordinary prose does not match.
func isWorksCited(line string) bool {
	if !wcAuthorHeadRe.MatchString(line) {
		return false
	}
	return quotedTitleRe.MatchString(line) || italicTitleRe.MatchString(line) ||
		yearAnywhereRe.MatchString(line)
}
