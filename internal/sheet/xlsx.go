package sheet

import (
	"context"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXStore implements Store over a single XLSX workbook: one sheet per
// tab, first row is the header. Every operation loads the workbook, applies
// the change in memory and writes the file back, so the file on disk is
// always a complete snapshot.
type XLSXStore struct {
	path string
}

// NewXLSX creates a store backed by the workbook at path. The file does not
// need to exist yet; the first write creates it.
func NewXLSX(path string) *XLSXStore {
	return &XLSXStore{path: path}
}

func (s *XLSXStore) Close() error { return nil }

func (s *XLSXStore) ReadAll(ctx context.Context, tab string) (*Table, error) {
	tabs, _, err := s.load()
	if err != nil {
		return nil, err
	}
	t, ok := tabs[tab]
	if !ok {
		return &Table{}, nil
	}
	return t, nil
}

func (s *XLSXStore) WriteAll(ctx context.Context, tab string, t *Table) error {
	return s.mutate(func(tabs map[string]*Table, order *[]string) error {
		if _, ok := tabs[tab]; !ok {
			*order = append(*order, tab)
		}
		tabs[tab] = t.Clone()
		return nil
	})
}

func (s *XLSXStore) Append(ctx context.Context, tab string, t *Table) error {
	return s.mutate(func(tabs map[string]*Table, order *[]string) error {
		existing, ok := tabs[tab]
		if !ok || len(existing.Header) == 0 {
			if !ok {
				*order = append(*order, tab)
			}
			tabs[tab] = t.Clone()
			return nil
		}
		aligned := t.AlignTo(existing.Header)
		existing.Rows = append(existing.Rows, aligned.Rows...)
		return nil
	})
}

func (s *XLSXStore) UpdateCells(ctx context.Context, tab string, updates []CellUpdate) error {
	return s.mutate(func(tabs map[string]*Table, _ *[]string) error {
		t, ok := tabs[tab]
		if !ok {
			return eris.Wrapf(ErrTabNotFound, "xlsx: update cells %s", tab)
		}
		for _, u := range updates {
			if u.Row < 1 || u.Row > len(t.Rows) {
				continue
			}
			t.Rows[u.Row-1][u.Column] = u.Value
		}
		return nil
	})
}

func (s *XLSXStore) EnsureColumn(ctx context.Context, tab string, name string) (int, error) {
	idx := -1
	err := s.mutate(func(tabs map[string]*Table, order *[]string) error {
		t, ok := tabs[tab]
		if !ok {
			t = &Table{}
			tabs[tab] = t
			*order = append(*order, tab)
		}
		if i := t.ColumnIndex(name); i >= 0 {
			idx = i
			return nil
		}
		t.Header = append(t.Header, name)
		idx = len(t.Header) - 1
		return nil
	})
	return idx, err
}

// load reads the whole workbook into tables, preserving sheet order.
func (s *XLSXStore) load() (map[string]*Table, []string, error) {
	tabs := make(map[string]*Table)
	var order []string

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return tabs, order, nil
	}

	f, err := xlsx.OpenFile(s.path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "xlsx: open %s", s.path)
	}

	for _, sh := range f.Sheets {
		t := &Table{}
		for i, row := range sh.Rows {
			cells := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = cell.String()
			}
			if i == 0 {
				t.Header = cells
				continue
			}
			r := make(Row, len(t.Header))
			for j, col := range t.Header {
				if j < len(cells) {
					r[col] = cells[j]
				} else {
					r[col] = ""
				}
			}
			t.Rows = append(t.Rows, r)
		}
		tabs[sh.Name] = t
		order = append(order, sh.Name)
	}
	return tabs, order, nil
}

// mutate applies fn to the in-memory workbook and saves it back.
func (s *XLSXStore) mutate(fn func(tabs map[string]*Table, order *[]string) error) error {
	tabs, order, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(tabs, &order); err != nil {
		return err
	}
	return s.save(tabs, order)
}

func (s *XLSXStore) save(tabs map[string]*Table, order []string) error {
	f := xlsx.NewFile()

	// Keep load order for known sheets, then any stragglers sorted.
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		seen[name] = true
	}
	var extra []string
	for name := range tabs {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	for _, name := range order {
		t, ok := tabs[name]
		if !ok {
			continue
		}
		sh, err := f.AddSheet(name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %s", name)
		}
		hdr := sh.AddRow()
		for _, col := range t.Header {
			hdr.AddCell().SetString(col)
		}
		for _, r := range t.Rows {
			row := sh.AddRow()
			for _, col := range t.Header {
				row.AddCell().SetString(r[col])
			}
		}
	}

	if len(f.Sheets) == 0 {
		// tealeg refuses to save a sheetless workbook.
		return nil
	}
	return eris.Wrapf(f.Save(s.path), "xlsx: save %s", s.path)
}
