package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite run ledger.
type DB struct {
	db *sql.DB
}

// selectRunFields contains the standard field list for SELECT queries.
const selectRunFields = `id, document, command, run_at, health,
	entries, citations, duplicates, orphans, missing, unresolved,
	repeats, mismatches, changed`

// OpenDB opens or creates the ledger at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			command TEXT NOT NULL,
			run_at TEXT NOT NULL,
			health INTEGER NOT NULL,
			entries INTEGER NOT NULL,
			citations INTEGER NOT NULL,
			duplicates INTEGER NOT NULL,
			orphans INTEGER NOT NULL,
			missing INTEGER NOT NULL,
			unresolved INTEGER NOT NULL,
			repeats INTEGER NOT NULL,
			mismatches INTEGER NOT NULL,
			changed INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document);
		CREATE INDEX IF NOT EXISTS idx_runs_run_at ON runs(run_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Record inserts one run into the ledger.
func (d *DB) Record(run Run) error {
	_, err := d.db.Exec(`
		INSERT INTO runs (
			id, document, command, run_at, health,
			entries, citations, duplicates, orphans, missing, unresolved,
			repeats, mismatches, changed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Document, run.Command, run.RunAt.UTC().Format(time.RFC3339), run.Health,
		run.Entries, run.Citations, run.Duplicates, run.Orphans, run.Missing, run.Unresolved,
		run.Repeats, run.Mismatches, boolToInt(run.Changed),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

// List returns runs newest first. An empty document matches all documents;
// limit <= 0 means no limit.
func (d *DB) List(document string, limit int) ([]Run, error) {
	query := `SELECT ` + selectRunFields + ` FROM runs`
	var args []any
	if document != "" {
		query += ` WHERE document = ?`
		args = append(args, document)
	}
	query += ` ORDER BY run_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Latest returns the most recent run for a document, or nil when the
// document has never been recorded.
func (d *DB) Latest(document string) (*Run, error) {
	row := d.db.QueryRow(`
		SELECT `+selectRunFields+`
		FROM runs
		WHERE document = ?
		ORDER BY run_at DESC, id
		LIMIT 1`, document)
	return scanRun(row)
}

// Documents returns the distinct document paths in the ledger.
func (d *DB) Documents() ([]string, error) {
	rows, err := d.db.Query(`SELECT DISTINCT document FROM runs ORDER BY document`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []string
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var runAt string
	var changed int

	err := s.Scan(
		&run.ID, &run.Document, &run.Command, &runAt, &run.Health,
		&run.Entries, &run.Citations, &run.Duplicates, &run.Orphans,
		&run.Missing, &run.Unresolved, &run.Repeats, &run.Mismatches,
		&changed,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	run.RunAt, err = time.Parse(time.RFC3339, runAt)
	if err != nil {
		return nil, fmt.Errorf("parsing run_at for %s: %w", run.ID, err)
	}
	run.Changed = changed != 0

	return &run, nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run != nil {
			runs = append(runs, *run)
		}
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
