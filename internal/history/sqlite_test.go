package history

import (
	"path/filepath"
	"testing"
	"time"
)

func testRun(id, document string, at time.Time, health int) Run {
	return Run{
		ID:        id,
		Document:  document,
		Command:   "check",
		RunAt:     at,
		Health:    health,
		Entries:   4,
		Citations: 7,
		Missing:   1,
		Changed:   false,
	}
}

func TestOpenDB_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	// A fresh ledger lists nothing.
	runs, err := db.List("", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("List() returned %d runs, want 0", len(runs))
	}
}

func TestRecordAndList(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	early := testRun("run-1", "notes.md", base, 92)
	late := testRun("run-2", "notes.md", base.Add(time.Hour), 100)
	other := testRun("run-3", "draft.md", base.Add(30*time.Minute), 76)

	for _, run := range []Run{early, late, other} {
		if err := db.Record(run); err != nil {
			t.Fatalf("Record(%s) error = %v", run.ID, err)
		}
	}

	// All runs, newest first.
	runs, err := db.List("", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("List() returned %d runs, want 3", len(runs))
	}
	wantOrder := []string{"run-2", "run-3", "run-1"}
	for i, id := range wantOrder {
		if runs[i].ID != id {
			t.Errorf("List()[%d].ID = %s, want %s", i, runs[i].ID, id)
		}
	}

	// Filtered by document with a limit.
	runs, err = db.List("notes.md", 1)
	if err != nil {
		t.Fatalf("List(notes.md, 1) error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-2" {
		t.Errorf("List(notes.md, 1) = %v, want [run-2]", runs)
	}

	// Round-trip preserves fields.
	if runs[0].Health != 100 {
		t.Errorf("Health = %d, want 100", runs[0].Health)
	}
	if runs[0].Citations != 7 {
		t.Errorf("Citations = %d, want 7", runs[0].Citations)
	}
	if !runs[0].RunAt.Equal(base.Add(time.Hour)) {
		t.Errorf("RunAt = %v, want %v", runs[0].RunAt, base.Add(time.Hour))
	}
	if runs[0].Changed {
		t.Error("Changed = true, want false")
	}
}

func TestLatest(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	if err := db.Record(testRun("run-1", "notes.md", base, 80)); err != nil {
		t.Fatal(err)
	}
	if err := db.Record(testRun("run-2", "notes.md", base.Add(time.Minute), 95)); err != nil {
		t.Fatal(err)
	}

	got, err := db.Latest("notes.md")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got == nil || got.ID != "run-2" {
		t.Errorf("Latest() = %v, want run-2", got)
	}

	// Unknown document yields nil, not an error.
	got, err = db.Latest("missing.md")
	if err != nil {
		t.Fatalf("Latest(missing) error = %v", err)
	}
	if got != nil {
		t.Errorf("Latest(missing) = %v, want nil", got)
	}
}

func TestDocuments(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	for i, doc := range []string{"b.md", "a.md", "b.md"} {
		run := testRun(string(rune('x'+i)), doc, base.Add(time.Duration(i)*time.Minute), 90)
		if err := db.Record(run); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := db.Documents()
	if err != nil {
		t.Fatalf("Documents() error = %v", err)
	}
	if len(docs) != 2 || docs[0] != "a.md" || docs[1] != "b.md" {
		t.Errorf("Documents() = %v, want [a.md b.md]", docs)
	}
}

func TestLedgerPersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	run := testRun("run-1", "notes.md", time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), 92)
	if err := db.Record(run); err != nil {
		t.Fatal(err)
	}
	db.Close()

	reopened, err := OpenDB(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	runs, err := reopened.List("", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Errorf("List() after reopen = %v, want [run-1]", runs)
	}
}
