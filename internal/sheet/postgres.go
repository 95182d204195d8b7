package sheet

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the PostgresStore uses. It is
// satisfied by pgxmock.PgxPoolIface in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool with the same tab/row layout
// as the SQLite backend, JSONB-encoded.
type PostgresStore struct {
	pool Pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tabs (
	name   TEXT PRIMARY KEY,
	header JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS tab_rows (
	id    TEXT PRIMARY KEY,
	tab   TEXT NOT NULL REFERENCES tabs(name),
	pos   INTEGER NOT NULL,
	cells JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tab_rows_tab_pos ON tab_rows(tab, pos);
`

// NewPostgres creates a PostgresStore with a connection pool and runs the
// schema migration.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	s := &PostgresStore{pool: pool}
	if _, err := pool.Exec(ctx, postgresMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: migrate")
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ReadAll(ctx context.Context, tab string) (*Table, error) {
	var headerJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT header FROM tabs WHERE name = $1`, tab).Scan(&headerJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: read header %s", tab)
	}

	t := &Table{}
	if err := json.Unmarshal(headerJSON, &t.Header); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode header %s", tab)
	}

	rows, err := s.pool.Query(ctx, `SELECT cells FROM tab_rows WHERE tab = $1 ORDER BY pos`, tab)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: read rows %s", tab)
	}
	defer rows.Close()

	for rows.Next() {
		var cellsJSON []byte
		if err := rows.Scan(&cellsJSON); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan row %s", tab)
		}
		var r Row
		if err := json.Unmarshal(cellsJSON, &r); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode row %s", tab)
		}
		t.Rows = append(t.Rows, r)
	}
	return t, eris.Wrapf(rows.Err(), "postgres: iterate rows %s", tab)
}

func (s *PostgresStore) WriteAll(ctx context.Context, tab string, t *Table) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM tab_rows WHERE tab = $1`, tab); err != nil {
		return eris.Wrapf(err, "postgres: clear rows %s", tab)
	}
	if err := pgUpsertHeader(ctx, tx, tab, t.Header); err != nil {
		return err
	}
	if err := pgInsertRows(ctx, tx, tab, t, 0); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit write")
}

func (s *PostgresStore) Append(ctx context.Context, tab string, t *Table) error {
	existing, err := s.ReadAll(ctx, tab)
	if err != nil {
		return err
	}
	if len(existing.Header) == 0 {
		return s.WriteAll(ctx, tab, t)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	aligned := t.AlignTo(existing.Header)
	if err := pgInsertRows(ctx, tx, tab, aligned, len(existing.Rows)); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit append")
}

func (s *PostgresStore) UpdateCells(ctx context.Context, tab string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, u := range updates {
		if _, err := tx.Exec(ctx,
			`UPDATE tab_rows SET cells = jsonb_set(cells, ARRAY[$1], to_jsonb($2::text)) WHERE tab = $3 AND pos = $4`,
			u.Column, u.Value, tab, u.Row-1,
		); err != nil {
			return eris.Wrapf(err, "postgres: update cell %s:%d", u.Column, u.Row)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit update")
}

func (s *PostgresStore) EnsureColumn(ctx context.Context, tab string, name string) (int, error) {
	existing, err := s.ReadAll(ctx, tab)
	if err != nil {
		return 0, err
	}
	if idx := existing.ColumnIndex(name); idx >= 0 {
		return idx, nil
	}

	header := append(append([]string(nil), existing.Header...), name)
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: encode header %s", tab)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO tabs (name, header) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET header = EXCLUDED.header`,
		tab, headerJSON,
	); err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert header %s", tab)
	}
	return len(header) - 1, nil
}

func pgUpsertHeader(ctx context.Context, tx pgx.Tx, tab string, header []string) error {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return eris.Wrapf(err, "postgres: encode header %s", tab)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO tabs (name, header) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET header = EXCLUDED.header`,
		tab, headerJSON,
	)
	return eris.Wrapf(err, "postgres: upsert header %s", tab)
}

func pgInsertRows(ctx context.Context, tx pgx.Tx, tab string, t *Table, startPos int) error {
	for i, r := range t.Rows {
		cellsJSON, err := json.Marshal(r)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode row %d", startPos+i)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO tab_rows (id, tab, pos, cells) VALUES ($1, $2, $3, $4)`,
			uuid.New().String(), tab, startPos+i, cellsJSON,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert row %d", startPos+i)
		}
	}
	return nil
}
