// Package state persists the sync journal in SQLite: last-known
// content hashes that survive restarts, plus save and conflict history
// for diagnostics.
package state

import "time"

// ComponentRecord is one tracked component.
type ComponentRecord struct {
	ID        string
	Path      string
	LastHash  string
	UpdatedAt time.Time
}

// SaveRecord is one completed write.
type SaveRecord struct {
	ID          string
	ComponentID string
	Hash        string
	Bytes       int
	Mode        string
	CreatedAt   time.Time
}

// ConflictRecord is one detected divergence.
type ConflictRecord struct {
	ID          string
	ComponentID string
	Reason      string
	Resolution  string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// Save modes recorded in the journal.
const (
	SaveModeMutation = "mutation"
	SaveModePatch    = "patch"
	SaveModeFresh    = "fresh"
)
