/*
Package sqlite provides a SQLite-backed implementation of the table source
interfaces.

PURPOSE:
  Source CSVs (UN population prospects in particular) are large and slow to
  re-parse. They are imported once into SQLite and then served by logical
  name, so the study never touches file paths.

INTERFACES IMPLEMENTED:
  generic.TableSource: Load a table by logical name
  generic.TableLister: List imported tables
  generic.TableWriter: Import (or replace) a table

KEY TABLES:
  datasets:      One row per logical table (name, header, source, import time)
  dataset_rows:  One row per data row, cells as a JSON array of strings

  Cells are stored exactly as read. Numeric parsing happens in
  generic.Table so decimal values survive a round trip unchanged.

REPLACE SEMANTICS:
  SaveTable() deletes the previous rows of the same name and inserts the
  new ones inside one SQL transaction. Readers never see a half-imported
  table.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, on top of SQLite's own locking.

USAGE:
  store, err := sqlite.New("./data/copd.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  tbl, _ := csvfile.ReadTable("population", f)
  err = store.SaveTable(ctx, tbl)

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
  - store/csvfile/source.go: CSV reading
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/copd-rates/generic"
)

// Store implements the table source interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// TableInfo describes an imported table without its rows.
type TableInfo struct {
	Name       string
	Columns    []string
	Rows       int
	Source     string
	ImportedAt time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		name TEXT PRIMARY KEY,
		columns_json TEXT NOT NULL,
		source TEXT,
		row_count INTEGER NOT NULL DEFAULT 0,
		imported_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dataset_rows (
		dataset TEXT NOT NULL REFERENCES datasets(name) ON DELETE CASCADE,
		row_index INTEGER NOT NULL,
		values_json TEXT NOT NULL,
		PRIMARY KEY (dataset, row_index)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TABLE SOURCE (generic.TableSource, generic.TableWriter)
// =============================================================================

// SaveTable imports t under t.Name, replacing any previous table.
func (s *Store) SaveTable(ctx context.Context, t *generic.Table) error {
	return s.SaveTableFrom(ctx, t, "")
}

// SaveTableFrom is SaveTable with a note of where the data came from.
func (s *Store) SaveTableFrom(ctx context.Context, t *generic.Table, source string) error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	columnsJSON, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode columns: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE dataset = ?`, t.Name); err != nil {
		return fmt.Errorf("failed to clear table %q: %w", t.Name, err)
	}
	if _, err := sqlTx.ExecContext(ctx, `
		INSERT INTO datasets (name, columns_json, source, row_count, imported_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			columns_json = excluded.columns_json,
			source = excluded.source,
			row_count = excluded.row_count,
			imported_at = excluded.imported_at
	`, t.Name, string(columnsJSON), nullString(source), len(t.Rows), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save table %q: %w", t.Name, err)
	}

	stmt, err := sqlTx.PrepareContext(ctx, `INSERT INTO dataset_rows (dataset, row_index, values_json) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		valuesJSON, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i+1, err)
		}
		if _, err := stmt.ExecContext(ctx, t.Name, i, string(valuesJSON)); err != nil {
			return fmt.Errorf("failed to insert row %d of %q: %w", i+1, t.Name, err)
		}
	}

	return sqlTx.Commit()
}

// Table loads an imported table by logical name.
func (s *Store) Table(ctx context.Context, name string) (*generic.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var columnsJSON string
	err := s.db.QueryRowContext(ctx, `SELECT columns_json FROM datasets WHERE name = ?`, name).Scan(&columnsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %q", generic.ErrTableNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load table %q: %w", name, err)
	}

	t := &generic.Table{Name: name}
	if err := json.Unmarshal([]byte(columnsJSON), &t.Columns); err != nil {
		return nil, fmt.Errorf("failed to decode columns of %q: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT values_json FROM dataset_rows WHERE dataset = ? ORDER BY row_index`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows of %q: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var valuesJSON string
		if err := rows.Scan(&valuesJSON); err != nil {
			return nil, err
		}
		var row []string
		if err := json.Unmarshal([]byte(valuesJSON), &row); err != nil {
			return nil, fmt.Errorf("failed to decode row of %q: %w", name, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

// Names lists imported tables in name order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	infos, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}

// ListTables returns metadata of all imported tables.
func (s *Store) ListTables(ctx context.Context) ([]TableInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, columns_json, source, row_count, imported_at
		FROM datasets ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []TableInfo
	for rows.Next() {
		var (
			info        TableInfo
			columnsJSON string
			source      sql.NullString
			importedAt  string
		)
		if err := rows.Scan(&info.Name, &columnsJSON, &source, &info.Rows, &importedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(columnsJSON), &info.Columns); err != nil {
			return nil, fmt.Errorf("failed to decode columns of %q: %w", info.Name, err)
		}
		info.Source = source.String
		if info.ImportedAt, err = time.Parse(time.RFC3339, importedAt); err != nil {
			return nil, fmt.Errorf("failed to decode import time of %q: %w", info.Name, err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteTable removes an imported table. Deleting an unknown table is an
// ErrTableNotFound.
func (s *Store) DeleteTable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	// dataset_rows follow through ON DELETE CASCADE.
	res, err := sqlTx.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete table %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete table %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", generic.ErrTableNotFound, name)
	}
	return sqlTx.Commit()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"dataset_rows", "datasets"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Compile-time interface checks
var (
	_ generic.TableSource = (*Store)(nil)
	_ generic.TableLister = (*Store)(nil)
	_ generic.TableWriter = (*Store)(nil)
)
