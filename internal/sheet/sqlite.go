package sheet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. Each tab keeps its
// header as a JSON array and its rows as JSON objects ordered by position.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode
// and runs the schema migration.
func NewSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tabs (
	name   TEXT PRIMARY KEY,
	header TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tab_rows (
	id    TEXT PRIMARY KEY,
	tab   TEXT NOT NULL REFERENCES tabs(name),
	pos   INTEGER NOT NULL,
	cells TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tab_rows_tab_pos ON tab_rows(tab, pos);
`

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReadAll(ctx context.Context, tab string) (*Table, error) {
	var headerJSON string
	err := s.db.QueryRowContext(ctx, `SELECT header FROM tabs WHERE name = ?`, tab).Scan(&headerJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: read header %s", tab)
	}

	t := &Table{}
	if err := json.Unmarshal([]byte(headerJSON), &t.Header); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode header %s", tab)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT cells FROM tab_rows WHERE tab = ? ORDER BY pos`, tab)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: read rows %s", tab)
	}
	defer rows.Close()

	for rows.Next() {
		var cellsJSON string
		if err := rows.Scan(&cellsJSON); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan row %s", tab)
		}
		var r Row
		if err := json.Unmarshal([]byte(cellsJSON), &r); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode row %s", tab)
		}
		t.Rows = append(t.Rows, r)
	}
	return t, eris.Wrapf(rows.Err(), "sqlite: iterate rows %s", tab)
}

func (s *SQLiteStore) WriteAll(ctx context.Context, tab string, t *Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM tab_rows WHERE tab = ?`, tab); err != nil {
		return eris.Wrapf(err, "sqlite: clear rows %s", tab)
	}
	if err := upsertHeader(ctx, tx, tab, t.Header); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, tab, t, 0); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit write")
}

func (s *SQLiteStore) Append(ctx context.Context, tab string, t *Table) error {
	existing, err := s.ReadAll(ctx, tab)
	if err != nil {
		return err
	}
	if len(existing.Header) == 0 {
		return s.WriteAll(ctx, tab, t)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	aligned := t.AlignTo(existing.Header)
	if err := insertRows(ctx, tx, tab, aligned, len(existing.Rows)); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit append")
}

func (s *SQLiteStore) UpdateCells(ctx context.Context, tab string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	existing, err := s.ReadAll(ctx, tab)
	if err != nil {
		return err
	}
	if len(existing.Header) == 0 {
		return eris.Wrapf(ErrTabNotFound, "sqlite: update cells %s", tab)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	touched := make(map[int]Row)
	for _, u := range updates {
		if u.Row < 1 || u.Row > len(existing.Rows) {
			continue
		}
		r, ok := touched[u.Row]
		if !ok {
			r = existing.Rows[u.Row-1]
			touched[u.Row] = r
		}
		r[u.Column] = u.Value
	}

	for pos, r := range touched {
		cellsJSON, err := json.Marshal(r)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode row %d", pos)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tab_rows SET cells = ? WHERE tab = ? AND pos = ?`,
			string(cellsJSON), tab, pos-1,
		); err != nil {
			return eris.Wrapf(err, "sqlite: update row %d", pos)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit update")
}

func (s *SQLiteStore) EnsureColumn(ctx context.Context, tab string, name string) (int, error) {
	existing, err := s.ReadAll(ctx, tab)
	if err != nil {
		return 0, err
	}
	if idx := existing.ColumnIndex(name); idx >= 0 {
		return idx, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	header := append(append([]string(nil), existing.Header...), name)
	if err := upsertHeader(ctx, tx, tab, header); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit column")
	}
	return len(header) - 1, nil
}

func upsertHeader(ctx context.Context, tx *sql.Tx, tab string, header []string) error {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return eris.Wrapf(err, "sqlite: encode header %s", tab)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tabs (name, header) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET header = excluded.header`,
		tab, string(headerJSON),
	)
	return eris.Wrapf(err, "sqlite: upsert header %s", tab)
}

func insertRows(ctx context.Context, tx *sql.Tx, tab string, t *Table, startPos int) error {
	for i, r := range t.Rows {
		cellsJSON, err := json.Marshal(r)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode row %d", startPos+i)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tab_rows (id, tab, pos, cells) VALUES (?, ?, ?, ?)`,
			uuid.New().String(), tab, startPos+i, string(cellsJSON),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert row %d", startPos+i)
		}
	}
	return nil
}
