package marks

import (
	"sort"
	"strings"
)

// Replacement pairs a scanned mark with the text that takes its place.
type Replacement struct {
	Mark Mark   `json:"mark"`
	Text string `json:"text"`
}

// Rewrite splices replacements into the document lines and returns the
// result. The input slice is left untouched. Replacements on the same line
// apply right to left so earlier offsets stay valid, and footnote syntax
// landing inside a table row is escaped, since GFM footnotes do not render
// there.
func Rewrite(lines []string, repls []Replacement) []string {
	out := make([]string, len(lines))
	copy(out, lines)

	byLine := make(map[int][]Replacement)
	for _, r := range repls {
		byLine[r.Mark.Line] = append(byLine[r.Mark.Line], r)
	}

	for n, group := range byLine {
		if n < 1 || n > len(out) {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			return group[i].Mark.Col > group[j].Mark.Col
		})
		line := out[n-1]
		table := strings.HasPrefix(strings.TrimSpace(line), "|")
		for _, r := range group {
			end := r.Mark.Col + r.Mark.Len
			if r.Mark.Col < 0 || end > len(line) {
				continue
			}
			text := r.Text
			if table {
				text = strings.ReplaceAll(text, "[^", `\[^`)
			}
			line = line[:r.Mark.Col] + text + line[end:]
		}
		out[n-1] = line
	}
	return out
}
