package generic

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Table is a tabular dataset with named columns. Cells are kept as the
// strings the source produced; typed access parses on demand.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// NewTable copies columns and rows into a new table.
func NewTable(name string, columns []string, rows [][]string) *Table {
	t := &Table{Name: name, Columns: append([]string(nil), columns...)}
	t.Rows = make([][]string, len(rows))
	for i, r := range rows {
		t.Rows[i] = append([]string(nil), r...)
	}
	return t
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	return NewTable(t.Name, t.Columns, t.Rows)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the index of the named column. Header whitespace and
// surrounding quotes are ignored.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if strings.TrimSpace(strings.Trim(c, "\"")) == name {
			return i, nil
		}
	}
	return -1, &ColumnError{Table: t.Name, Column: name}
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, err := t.ColumnIndex(name)
	return err == nil
}

// Strings returns the trimmed values of a column.
func (t *Table) Strings(column string) ([]string, error) {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		if idx < len(r) {
			out[i] = strings.TrimSpace(r[idx])
		}
	}
	return out, nil
}

// Decimals parses a numeric column. Empty or unparsable cells are errors;
// missing data is never read as zero.
func (t *Table) Decimals(column string) ([]decimal.Decimal, error) {
	vals, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, &ColumnError{Table: t.Name, Column: column, Row: i + 1, Value: v, Err: err}
		}
		out[i] = d
	}
	return out, nil
}

// Ints parses an integer column.
func (t *Table) Ints(column string) ([]int, error) {
	vals, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &ColumnError{Table: t.Name, Column: column, Row: i + 1, Value: v, Err: err}
		}
		out[i] = n
	}
	return out, nil
}
