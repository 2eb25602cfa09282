// Package pdftext pulls citation metadata out of PDF files so a paper on
// disk can be added to a document's references without retyping it.
package pdftext

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/matsen/refmark/internal/reference"
	"github.com/matsen/refmark/internal/refline"
)

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// doiSearchPages is how many leading pages ExtractDOI scans. The DOI is
// almost always on the first page.
const doiSearchPages = 3

// ExtractDOI extracts a DOI from a PDF file, normalized for comparison.
// A PDF without a DOI returns "" and no error.
func ExtractDOI(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	maxPages := doiSearchPages
	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		if doi := findDOI(text); doi != "" {
			return doi, nil
		}
	}

	return "", nil
}

// ExtractTitle attempts to extract the title from a PDF: the first
// substantial line of the first page that is not a header or footer.
func ExtractTitle(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return "", nil
	}

	page := r.Page(1)
	if page.V.IsNull() {
		return "", nil
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", nil
	}

	return firstTitleLine(text), nil
}

// ExtractText extracts plain text from the first N pages of a PDF.
// maxPages <= 0 means all pages.
func ExtractText(filePath string, maxPages int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// EntryFromPDF builds a reference entry from a PDF's leading pages. The
// footnote tag comes from the title, falling back to the file name.
func EntryFromPDF(filePath string) (reference.Entry, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return reference.Entry{}, err
	}
	defer f.Close()

	maxPages := doiSearchPages
	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	var text strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	return entryFromText(filePath, text.String()), nil
}

// entryFromText assembles the entry from already-extracted page text.
func entryFromText(filePath, text string) reference.Entry {
	e := reference.Entry{
		Grammar: reference.GrammarFootnoteDef,
		DOI:     findDOI(text),
		Title:   firstTitleLine(text),
		Year:    refline.ExtractYear(text),
	}
	e.Kind = reference.ClassifyKind(e)

	tag := reference.BaseLabel(e)
	if tag == "" || strings.HasPrefix(tag, "src") {
		if stem := fileStem(filePath); stem != "" {
			tag = stem
		}
	}
	e.LocalIDs = []string{tag}
	e.Raw = strings.TrimSpace(e.Title + " " + filepath.Base(filePath))

	return e
}

// findDOI finds the first valid DOI in text, normalized.
func findDOI(text string) string {
	matches := doiPattern.FindAllString(text, -1)
	for _, match := range matches {
		// Remove trailing punctuation
		match = strings.TrimRight(match, ".,;:)")
		doi := reference.NormalizeDOI(match)
		if reference.IsValidDOI(doi) {
			return doi
		}
	}
	return ""
}

// firstTitleLine returns the first substantial line that is not a likely
// header or footer.
func firstTitleLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

// isHeaderLine checks if a line is likely a journal header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	if strings.Contains(lower, "journal") {
		return true
	}
	if strings.Contains(lower, "volume") && strings.Contains(lower, "issue") {
		return true
	}
	if strings.Contains(lower, "copyright") {
		return true
	}
	if strings.Contains(lower, "article") && strings.Contains(lower, "published") {
		return true
	}
	if strings.Contains(lower, "doi.org/") || strings.HasPrefix(lower, "doi:") {
		return true
	}
	return false
}

// fileStem returns the file name without directory or extension, sanitized
// into the footnote tag charset.
func fileStem(filePath string) string {
	stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	var b strings.Builder
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-.")
}
