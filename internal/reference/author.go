package reference

import "strings"

// PrimaryAuthor extracts the family name of the first listed author from a
// free-text author string.
//
// Handled forms:
//   - "Smith, J."             → "Smith" (comma = Last, First)
//   - "J. Smith"              → "Smith" (trailing word = last name)
//   - "Smith J, Jones B"      → "Smith" (initials after last name)
//   - "John Smith and B. Lee" → "Smith" (first author before connector)
//   - "Smith et al."          → "Smith"
//
// Returns "" when no name can be recognized.
func PrimaryAuthor(authorText string) string {
	s := strings.TrimSpace(authorText)
	if s == "" {
		return ""
	}

	// Keep only the first author.
	for _, sep := range []string{" and ", " & ", ";"} {
		if i := strings.Index(s, sep); i > 0 {
			s = s[:i]
		}
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "et al."))
	s = strings.TrimSpace(strings.TrimSuffix(s, "et al"))

	// "Last, First" or "Last, F., Next, G.": the segment before the first
	// comma is the family name.
	if i := strings.Index(s, ","); i > 0 {
		return strings.TrimSpace(s[:i])
	}

	parts := strings.Fields(s)
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return strings.TrimRight(parts[0], ".")
	}

	// "Smith J" / "Smith J." keeps the leading word; "John Smith" keeps the
	// trailing word.
	last := parts[len(parts)-1]
	if isInitial(last) {
		return parts[0]
	}
	return last
}

// isInitial reports whether a token looks like an author initial ("J", "J.",
// "J.K.").
func isInitial(tok string) bool {
	stripped := strings.ReplaceAll(tok, ".", "")
	if len(stripped) == 0 || len(stripped) > 2 {
		return false
	}
	for _, r := range stripped {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// slugify lowercases a name and strips everything but letters and digits.
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
