/*
store.go - Table source interface

PURPOSE:
  Defines the interface between the pipeline and wherever its input tables
  live. Callers ask for a table by LOGICAL name ("mortality",
  "standard_weights", "population"); the source decides whether that is a
  CSV file, a SQLite table or an in-memory fixture.

KEY INTERFACES:
  TableSource:  Load a table by logical name (read-only)
  TableLister:  Optional, enumerate available tables
  TableWriter:  Optional, store a table under a logical name

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for tests and uploads
  - store/sqlite/sqlite.go:  Tables imported once into SQLite
  - store/csvfile/source.go: CSV files read through gota dataframes

EXAMPLE:
  src := store.NewMemory()
  src.Put(generic.NewTable("standard_weights", cols, rows))
  t, err := src.Table(ctx, "standard_weights")
  if errors.Is(err, generic.ErrTableNotFound) {
      ...
  }

SEE ALSO:
  - table.go: Table type and typed column access
  - copd/study.go: Resolves logical names through a TableSource
*/
package generic

import "context"

// TableSource loads tables by logical name. Implementations return
// ErrTableNotFound (possibly wrapped) for unknown names, and must return a
// table the caller is free to keep; later writes must not alter it.
type TableSource interface {
	Table(ctx context.Context, name string) (*Table, error)
}

// TableLister is implemented by sources that can enumerate their tables.
type TableLister interface {
	Names(ctx context.Context) ([]string, error)
}

// TableWriter is implemented by sources that accept new tables.
// Saving under an existing name replaces that table.
type TableWriter interface {
	SaveTable(ctx context.Context, t *Table) error
}
