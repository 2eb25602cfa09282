// Package metadata defines how reference entries are enriched from outside
// services and rendered back into text.
package metadata

import (
	"context"
	"errors"

	"github.com/matsen/refmark/internal/reference"
)

// ErrNotFound reports that no external record matched the entry.
var ErrNotFound = errors.New("metadata not found")

// Resolver fills in missing fields of an entry from an external source,
// returning the enriched copy. The input is never modified.
type Resolver interface {
	Resolve(ctx context.Context, e reference.Entry) (reference.Entry, error)
}

// Renderer turns one canonical entry into a footnote definition line.
type Renderer interface {
	Definition(label string, e reference.Entry) string
}
