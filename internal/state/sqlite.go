package state

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore is the SQLite-backed journal.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates an unopened store.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens the database. Use ":memory:" for an in-memory journal.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema creates the journal tables.
func (s *SQLiteStore) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// --- Component operations ---

// UpsertComponent records the last-known hash for a component.
func (s *SQLiteStore) UpsertComponent(id, path, hash string) error {
	_, err := s.db.Exec(`
		INSERT INTO components (id, path, last_hash, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET path = excluded.path,
			last_hash = excluded.last_hash, updated_at = excluded.updated_at`,
		id, path, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert component %s: %w", id, err)
	}
	return nil
}

// GetHash returns the last-known hash for a component.
func (s *SQLiteStore) GetHash(id string) (string, bool, error) {
	var hash string
	err := s.db.QueryRow(`SELECT last_hash FROM components WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load hash for %s: %w", id, err)
	}
	return hash, true, nil
}

// DeleteComponent removes a component and keeps its history rows.
func (s *SQLiteStore) DeleteComponent(id string) error {
	if _, err := s.db.Exec(`DELETE FROM components WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete component %s: %w", id, err)
	}
	return nil
}

// ListComponents returns all tracked components ordered by identifier.
func (s *SQLiteStore) ListComponents() ([]ComponentRecord, error) {
	rows, err := s.db.Query(`SELECT id, path, last_hash, updated_at FROM components ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	defer rows.Close()

	var out []ComponentRecord
	for rows.Next() {
		var rec ComponentRecord
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.LastHash, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- Save history ---

// RecordSave appends one completed write to the history.
func (s *SQLiteStore) RecordSave(id, hash string, bytes int, mode string) error {
	_, err := s.db.Exec(`
		INSERT INTO saves (id, component_id, hash, bytes, mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		generateID(), id, hash, bytes, mode, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record save for %s: %w", id, err)
	}
	return nil
}

// History returns the most recent saves for a component, newest first.
func (s *SQLiteStore) History(id string, limit int) ([]SaveRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, component_id, hash, bytes, mode, created_at
		FROM saves WHERE component_id = ?
		ORDER BY created_at DESC LIMIT ?`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", id, err)
	}
	defer rows.Close()

	var out []SaveRecord
	for rows.Next() {
		var rec SaveRecord
		if err := rows.Scan(&rec.ID, &rec.ComponentID, &rec.Hash, &rec.Bytes, &rec.Mode, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- Conflict history ---

// RecordConflict appends an open conflict.
func (s *SQLiteStore) RecordConflict(id, reason string) error {
	_, err := s.db.Exec(`
		INSERT INTO conflicts (id, component_id, reason, created_at)
		VALUES (?, ?, ?, ?)`,
		generateID(), id, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record conflict for %s: %w", id, err)
	}
	return nil
}

// MarkConflictResolved closes all open conflicts for a component with
// the chosen strategy.
func (s *SQLiteStore) MarkConflictResolved(id, strategy string) error {
	_, err := s.db.Exec(`
		UPDATE conflicts SET resolution = ?, resolved_at = ?
		WHERE component_id = ? AND resolution IS NULL`,
		strategy, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve conflicts for %s: %w", id, err)
	}
	return nil
}

// OpenConflicts returns components with unresolved conflicts.
func (s *SQLiteStore) OpenConflicts() ([]ConflictRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, component_id, reason, COALESCE(resolution, ''), created_at, resolved_at
		FROM conflicts WHERE resolution IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	defer rows.Close()

	var out []ConflictRecord
	for rows.Next() {
		var rec ConflictRecord
		if err := rows.Scan(&rec.ID, &rec.ComponentID, &rec.Reason, &rec.Resolution, &rec.CreatedAt, &rec.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
