// Package history persists audit runs and exported label mappings.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/matsen/refmark/internal/audit"
)

// Run records one command invocation against a document.
type Run struct {
	ID         string    `json:"id"`
	Document   string    `json:"document"`
	Command    string    `json:"command"` // check or normalize
	RunAt      time.Time `json:"run_at"`
	Health     int       `json:"health"`
	Entries    int       `json:"entries"`   // canonical records in the registry
	Citations  int       `json:"citations"` // citation ids seen in prose
	Duplicates int       `json:"duplicates"`
	Orphans    int       `json:"orphans"`
	Missing    int       `json:"missing"`
	Unresolved int       `json:"unresolved"`
	Repeats    int       `json:"repeats"` // adjacent same-source citation runs
	Mismatches int       `json:"mismatches"`
	Changed    bool      `json:"changed"` // normalize produced different output
}

// FromReport builds a Run from an audit report, stamped with a fresh ID
// and the current time.
func FromReport(document, command string, rep *audit.Report, entries, citations int, changed bool) Run {
	return Run{
		ID:         uuid.New().String(),
		Document:   document,
		Command:    command,
		RunAt:      time.Now().UTC(),
		Health:     rep.Health,
		Entries:    entries,
		Citations:  citations,
		Duplicates: len(rep.Duplicates),
		Orphans:    len(rep.Orphans),
		Missing:    len(rep.Missing),
		Unresolved: len(rep.Unresolved),
		Repeats:    len(rep.Runs),
		Mismatches: len(rep.Mismatches),
		Changed:    changed,
	}
}
