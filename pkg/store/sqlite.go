// Package store persists knowledge-graph entities and relations in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vanderheijden86/kgview/pkg/model"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an entity ID does not exist.
var ErrNotFound = errors.New("entity not found")

// Store wraps a SQLite database connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// createSchema creates the tables if they don't exist. Relations reference
// entities by ID or name and are deliberately not foreign keys: deleting an
// entity leaves its relations dangling, and readers drop them.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS entities (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			weight REAL NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);

		CREATE TABLE IF NOT EXISTS relations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT ''
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Seed replaces the whole graph with ds in one transaction.
func (s *Store) Seed(ctx context.Context, ds model.Dataset) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("validating dataset: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM relations"); err != nil {
		return fmt.Errorf("clearing relations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entities"); err != nil {
		return fmt.Errorf("clearing entities: %w", err)
	}

	entStmt, err := tx.PrepareContext(ctx, `INSERT INTO entities (id, name, type, weight) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entity insert: %w", err)
	}
	defer entStmt.Close()
	for _, e := range ds.Entities {
		if _, err := entStmt.ExecContext(ctx, e.ID, e.Name, e.Type, e.Weight); err != nil {
			return fmt.Errorf("inserting entity %s: %w", e.ID, err)
		}
	}

	relStmt, err := tx.PrepareContext(ctx, `INSERT INTO relations (id, source, target, label) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing relation insert: %w", err)
	}
	defer relStmt.Close()
	for _, r := range ds.Relations {
		if _, err := relStmt.ExecContext(ctx, r.ID, r.Source, r.Target, r.Label); err != nil {
			return fmt.Errorf("inserting relation %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}
	return nil
}

// Dataset reads every entity and relation in insertion order.
func (s *Store) Dataset(ctx context.Context) (model.Dataset, error) {
	var ds model.Dataset

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type, weight FROM entities ORDER BY seq`)
	if err != nil {
		return ds, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Weight); err != nil {
			return ds, fmt.Errorf("scanning entity: %w", err)
		}
		ds.Entities = append(ds.Entities, e)
	}
	if err := rows.Err(); err != nil {
		return ds, fmt.Errorf("iterating entities: %w", err)
	}

	relRows, err := s.db.QueryContext(ctx, `SELECT id, source, target, label FROM relations ORDER BY seq`)
	if err != nil {
		return ds, fmt.Errorf("querying relations: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var r model.Relation
		if err := relRows.Scan(&r.ID, &r.Source, &r.Target, &r.Label); err != nil {
			return ds, fmt.Errorf("scanning relation: %w", err)
		}
		ds.Relations = append(ds.Relations, r)
	}
	if err := relRows.Err(); err != nil {
		return ds, fmt.Errorf("iterating relations: %w", err)
	}
	return ds, nil
}

// Entity returns one entity by ID.
func (s *Store) Entity(ctx context.Context, id string) (model.Entity, error) {
	var e model.Entity
	err := s.db.QueryRowContext(ctx, `SELECT id, name, type, weight FROM entities WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Type, &e.Weight)
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return e, fmt.Errorf("querying entity %s: %w", id, err)
	}
	return e, nil
}

// UpdateEntity applies a partial update and returns the stored result.
func (s *Store) UpdateEntity(ctx context.Context, id string, patch model.EntityPatch) (model.Entity, error) {
	if err := patch.Validate(); err != nil {
		return model.Entity{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Entity{}, fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback()

	var cur model.Entity
	err = tx.QueryRowContext(ctx, `SELECT id, name, type, weight FROM entities WHERE id = ?`, id).
		Scan(&cur.ID, &cur.Name, &cur.Type, &cur.Weight)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entity{}, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Entity{}, fmt.Errorf("querying entity %s: %w", id, err)
	}

	next := patch.Apply(cur)
	if _, err := tx.ExecContext(ctx, `UPDATE entities SET name = ?, type = ?, weight = ? WHERE id = ?`,
		next.Name, next.Type, next.Weight, id); err != nil {
		return model.Entity{}, fmt.Errorf("updating entity %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Entity{}, fmt.Errorf("committing update: %w", err)
	}
	return next, nil
}

// DeleteEntity removes one entity. Its relations are left in place.
func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteEntities removes every listed entity in one transaction and returns
// how many existed. Unknown IDs are skipped.
func (s *Store) DeleteEntities(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting entities: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting entities: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing delete: %w", err)
	}
	return int(n), nil
}

// Counts returns the number of stored entities and relations, including
// relations whose endpoints no longer exist.
func (s *Store) Counts(ctx context.Context) (entities, relations int, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&entities); err != nil {
		return 0, 0, fmt.Errorf("counting entities: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM relations`).Scan(&relations); err != nil {
		return 0, 0, fmt.Errorf("counting relations: %w", err)
	}
	return entities, relations, nil
}
