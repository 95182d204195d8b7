// Package sheet provides a generic tabular persistence layer: named tabs of
// ordered rows under an explicit header, with batched sparse cell updates.
// Backends exist for memory, SQLite, Postgres, and XLSX workbooks.
package sheet

import (
	"context"

	"github.com/rotisserie/eris"
)

// Row is one record of a tab, keyed by column name. Columns absent from the
// map read as empty.
type Row map[string]string

// Table is the full contents of a tab: an ordered header and ordered rows.
type Table struct {
	Header []string
	Rows   []Row
}

// CellUpdate is one sparse cell write. Row is the 1-based data row index
// (the header is not addressable).
type CellUpdate struct {
	Row    int
	Column string
	Value  string
}

// ErrTabNotFound is returned when an operation targets a tab the backend
// does not have.
var ErrTabNotFound = eris.New("sheet: tab not found")

// Store is the backing tabular store contract. ReadAll returns an empty
// table for an absent or empty tab. WriteAll is a full replace. Append adds
// rows without disturbing existing ones and behaves like WriteAll on an
// empty tab. UpdateCells issues a batch of sparse cell writes. EnsureColumn
// adds a column if absent and returns its 0-based index either way.
type Store interface {
	ReadAll(ctx context.Context, tab string) (*Table, error)
	WriteAll(ctx context.Context, tab string, t *Table) error
	Append(ctx context.Context, tab string, t *Table) error
	UpdateCells(ctx context.Context, tab string, updates []CellUpdate) error
	EnsureColumn(ctx context.Context, tab string, name string) (int, error)
	Close() error
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// ColumnIndex returns the 0-based index of a header column, -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Header: append([]string(nil), t.Header...)}
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Clone copies the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AlignTo projects the table's rows onto the given header: columns missing
// from a row are filled empty, columns outside the header are dropped.
func (t *Table) AlignTo(header []string) *Table {
	out := &Table{Header: append([]string(nil), header...)}
	for _, r := range t.Rows {
		aligned := make(Row, len(header))
		for _, col := range header {
			aligned[col] = r[col]
		}
		out.Rows = append(out.Rows, aligned)
	}
	return out
}

// Values renders a row to cell values in header order.
func (t *Table) Values(r Row) []string {
	vals := make([]string, len(t.Header))
	for i, col := range t.Header {
		vals[i] = r[col]
	}
	return vals
}
