package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matsen/refmark/internal/registry"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// MappingRecord is one exported source: the stable label a document's
// registry assigned, with enough metadata to recognize the source elsewhere.
type MappingRecord struct {
	Document string   `json:"document"`
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Title    string   `json:"title,omitempty"`
	Year     int      `json:"year,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	Sections []int    `json:"sections,omitempty"`  // Sections the source is defined in
	LocalIDs []string `json:"local_ids,omitempty"` // Author-written ids bound to the label
}

// BuildMappings flattens a registry into export records, one per source.
func BuildMappings(document string, reg *registry.Registry) []MappingRecord {
	var recs []MappingRecord
	for _, c := range reg.Canons() {
		rec := MappingRecord{
			Document: document,
			Key:      string(c.Key),
			Label:    c.Label,
			Title:    c.Primary.Title,
			Year:     c.Primary.Year,
			DOI:      c.Primary.DOI,
		}

		seenSection := make(map[int]bool)
		for _, src := range c.Sources {
			if !seenSection[src.Section] {
				seenSection[src.Section] = true
				rec.Sections = append(rec.Sections, src.Section)
			}
		}

		seenID := make(map[string]bool)
		for _, m := range reg.Mappings() {
			if m.Key == c.Key && !seenID[m.LocalID] {
				seenID[m.LocalID] = true
				rec.LocalIDs = append(rec.LocalIDs, m.LocalID)
			}
		}

		recs = append(recs, rec)
	}
	return recs
}

// ReadMappings reads all mapping records from a JSONL file.
func ReadMappings(path string) ([]MappingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Missing file returns empty slice
		}
		return nil, fmt.Errorf("opening mappings file: %w", err)
	}
	defer f.Close()

	var recs []MappingRecord
	scanner := bufio.NewScanner(f)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var rec MappingRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		recs = append(recs, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading mappings file: %w", err)
	}

	return recs, nil
}

// WriteDocumentMappings replaces one document's records in the mappings
// file, leaving other documents' records in place.
func WriteDocumentMappings(path, document string, recs []MappingRecord) error {
	existing, err := ReadMappings(path)
	if err != nil {
		return err
	}

	var kept []MappingRecord
	for _, rec := range existing {
		if rec.Document != document {
			kept = append(kept, rec)
		}
	}
	kept = append(kept, recs...)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating mappings file: %w", err)
	}
	defer f.Close()

	for i, rec := range kept {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}

		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
		if _, err := f.WriteString("\n"); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}

	return nil
}
