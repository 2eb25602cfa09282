package pdftext

import (
	"testing"

	"github.com/matsen/refmark/internal/reference"
)

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			"bare doi",
			"Nucleic Acids Research, 2021\ndoi: 10.1093/nar/gkab123\nAbstract",
			"10.1093/nar/gkab123",
		},
		{
			"doi url",
			"Available at https://doi.org/10.1371/journal.pone.0012345 online",
			"10.1371/journal.pone.0012345",
		},
		{
			"trailing punctuation stripped",
			"(see 10.1038/s41586-021-03819-2).",
			"10.1038/s41586-021-03819-2",
		},
		{
			"uppercase normalized",
			"DOI:10.1000/ABC.DEF",
			"10.1000/abc.def",
		},
		{
			"no doi",
			"A paper with no identifier at all, volume 12.",
			"",
		},
		{
			"registrant too short",
			"version 10.2/3 of the manual",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findDOI(tt.text); got != tt.want {
				t.Errorf("findDOI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstTitleLine(t *testing.T) {
	text := "Journal of Marine Biology Vol 12\n" +
		"   \n" +
		"short\n" +
		"Deep Sea Mining and Benthic Ecosystem Recovery\n" +
		"Maria Santos, Wei Zhang\n"

	got := firstTitleLine(text)
	if got != "Deep Sea Mining and Benthic Ecosystem Recovery" {
		t.Errorf("firstTitleLine() = %q", got)
	}
}

func TestIsHeaderLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Journal of Marine Biology", true},
		{"Volume 12, Issue 3", true},
		{"Copyright 2021 The Authors", true},
		{"https://doi.org/10.1000/x printed here", true},
		{"Deep Sea Mining and Benthic Ecosystem Recovery", false},
	}

	for _, tt := range tests {
		if got := isHeaderLine(tt.line); got != tt.want {
			t.Errorf("isHeaderLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestEntryFromText(t *testing.T) {
	text := "Journal of Marine Biology Vol 12\n" +
		"Deep Sea Mining and Benthic Ecosystem Recovery\n" +
		"Maria Santos, Wei Zhang (2023)\n" +
		"doi: 10.1093/marbio/mining\n"

	e := entryFromText("/papers/mining-recovery.pdf", text)

	if e.DOI != "10.1093/marbio/mining" {
		t.Errorf("DOI = %q", e.DOI)
	}
	if e.Title != "Deep Sea Mining and Benthic Ecosystem Recovery" {
		t.Errorf("Title = %q", e.Title)
	}
	if e.Year != 2023 {
		t.Errorf("Year = %d, want 2023", e.Year)
	}
	if e.Grammar != reference.GrammarFootnoteDef {
		t.Errorf("Grammar = %q", e.Grammar)
	}
	if e.PrimaryID() != "deep2023" {
		t.Errorf("PrimaryID = %q, want deep2023", e.PrimaryID())
	}
}

func TestEntryFromText_FallsBackToFileStem(t *testing.T) {
	// No title, no year: the tag comes from the file name.
	e := entryFromText("/papers/Kelp Forest SURVEY.pdf", "x\ny\n")

	if e.PrimaryID() != "kelp-forest-survey" {
		t.Errorf("PrimaryID = %q, want kelp-forest-survey", e.PrimaryID())
	}
	if e.Title != "" {
		t.Errorf("Title = %q, want empty", e.Title)
	}
}

func TestFileStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/papers/Santos 2021 (final).pdf", "santos-2021--final"},
		{"plain.pdf", "plain"},
		{"/a/b/ARCHIVE.PDF", "archive"},
	}

	for _, tt := range tests {
		if got := fileStem(tt.in); got != tt.want {
			t.Errorf("fileStem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
