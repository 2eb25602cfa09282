package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matsen/refmark/internal/metadata"
	"github.com/matsen/refmark/internal/reference"
)

const foldingWork = `{
	"message": {
		"DOI": "10.1093/nar/folding",
		"type": "journal-article",
		"title": ["Protein Folding at Scale"],
		"container-title": ["Nucleic Acids Research"],
		"author": [
			{"given": "Maria", "family": "Santos"},
			{"given": "Wei", "family": "Zhang"}
		],
		"issued": {"date-parts": [[2021, 6, 14]]},
		"URL": "https://doi.org/10.1093/nar/folding"
	}
}`

func TestResolve_ByDOI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/works/10.1093/nar/folding" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(foldingWork))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	in := reference.Entry{
		LocalIDs: []string{"3"},
		Raw:      "3. https://doi.org/10.1093/nar/folding",
		DOI:      "10.1093/nar/folding",
	}
	got, err := c.Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if got.Title != "Protein Folding at Scale" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.AuthorText != "Maria Santos, Wei Zhang" {
		t.Errorf("AuthorText = %q", got.AuthorText)
	}
	if got.Year != 2021 {
		t.Errorf("Year = %d, want 2021", got.Year)
	}
	if got.Journal != "Nucleic Acids Research" {
		t.Errorf("Journal = %q", got.Journal)
	}
	if got.Kind != reference.KindJournal {
		t.Errorf("Kind = %q, want journal", got.Kind)
	}
	// Resolution must not disturb document bookkeeping.
	if len(got.LocalIDs) != 1 || got.LocalIDs[0] != "3" {
		t.Errorf("LocalIDs = %v, want [3]", got.LocalIDs)
	}
	if got.Raw != in.Raw {
		t.Errorf("Raw changed: %q", got.Raw)
	}
}

func TestResolve_ByDOI_FillsOnlyGaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(foldingWork))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	in := reference.Entry{
		DOI:        "10.1093/nar/folding",
		Title:      "Protein Folding at Scale",
		AuthorText: "Santos et al.",
		Year:       2021,
	}
	got, err := c.Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// Existing values win; the service only fills what was empty.
	if got.AuthorText != "Santos et al." {
		t.Errorf("AuthorText = %q, want Santos et al.", got.AuthorText)
	}
	if got.Journal != "Nucleic Acids Research" {
		t.Errorf("Journal = %q, want filled", got.Journal)
	}
}

func TestResolve_TruncatedTitleReplaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(foldingWork))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	in := reference.Entry{
		DOI:   "10.1093/nar/folding",
		Title: "Protein Folding at...",
	}
	got, err := c.Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Title != "Protein Folding at Scale" {
		t.Errorf("Title = %q, want full title", got.Title)
	}
}

func TestResolve_ByTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/works" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("query.title"); got != "Protein Folding at Scale" {
			t.Errorf("query.title = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"message": {
				"items": [
					{"DOI": "10.9999/wrong", "title": ["Another Paper Entirely"]},
					{"DOI": "10.1093/nar/folding", "title": ["Protein Folding at Scale!"],
					 "issued": {"date-parts": [[2021]]}}
				]
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	in := reference.Entry{Title: "Protein Folding at Scale"}
	got, err := c.Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.DOI != "10.1093/nar/folding" {
		t.Errorf("DOI = %q", got.DOI)
	}
	if got.Year != 2021 {
		t.Errorf("Year = %d", got.Year)
	}
}

func TestResolve_ByTitle_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message": {"items": [{"DOI": "10.9999/x", "title": ["Unrelated"]}]}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	_, err := c.Resolve(context.Background(), reference.Entry{Title: "Deep Sea Mining Impacts"})
	if !errors.Is(err, metadata.ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}

func TestResolve_NotFoundStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	_, err := c.Resolve(context.Background(), reference.Entry{DOI: "10.1/gone"})
	if !errors.Is(err, metadata.ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
}

func TestResolve_RateLimitedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	_, err := c.Resolve(context.Background(), reference.Entry{DOI: "10.1/busy"})
	if !IsRateLimited(err) {
		t.Errorf("IsRateLimited(%v) = false", err)
	}
}

func TestResolve_NothingToResolve(t *testing.T) {
	// No server: entries without a DOI or complete title never hit the network.
	c := NewClient(WithBaseURL("http://127.0.0.1:0"), WithRateLimit(1000))

	_, err := c.Resolve(context.Background(), reference.Entry{Title: "Clipped Title That Ends In..."})
	if !errors.Is(err, metadata.ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}

func TestResolve_MailtoSent(t *testing.T) {
	var gotMailto string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMailto = r.URL.Query().Get("mailto")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(foldingWork))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000), WithMailto("reader@example.org"))

	if _, err := c.Resolve(context.Background(), reference.Entry{DOI: "10.1093/nar/folding"}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if gotMailto != "reader@example.org" {
		t.Errorf("mailto = %q, want reader@example.org", gotMailto)
	}
}

func TestKindFromType(t *testing.T) {
	tests := []struct {
		in   string
		want reference.Kind
	}{
		{"journal-article", reference.KindJournal},
		{"proceedings-article", reference.KindJournal},
		{"book", reference.KindBook},
		{"book-chapter", reference.KindBook},
		{"posted-content", reference.KindBlog},
		{"dataset", reference.KindUnknown},
		{"", reference.KindUnknown},
	}

	for _, tt := range tests {
		if got := kindFromType(tt.in); got != tt.want {
			t.Errorf("kindFromType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Protein Folding at Scale!", "protein folding at scale"},
		{"  Protein   Folding,  at Scale  ", "protein folding at scale"},
		{"DEEP-SEA mining", "deep sea mining"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeTitle(tt.in); got != tt.want {
			t.Errorf("normalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
