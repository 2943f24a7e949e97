package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/JonMunkholm/tabular/internal/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_tables (
	session_id   TEXT PRIMARY KEY,
	snapshot     BLOB NOT NULL,
	fingerprint  TEXT NOT NULL,
	row_count    INTEGER NOT NULL,
	column_count INTEGER NOT NULL,
	updated_at   TEXT NOT NULL
)`

// SQLite stores table snapshots in a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use
// ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, storageErr("sqlite", "open", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("sqlite", "open", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, storageErr("sqlite", "migrate", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context, id string) (*core.Table, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM session_tables WHERE session_id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("sqlite", "load", err)
	}

	t, err := core.DecodeSnapshot(data)
	if err != nil {
		return nil, storageErr("sqlite", "load", err)
	}
	return t, nil
}

func (s *SQLite) Save(ctx context.Context, id string, t *core.Table) error {
	row, err := newSnapshotRow(t)
	if err != nil {
		return storageErr("sqlite", "save", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_tables (session_id, snapshot, fingerprint, row_count, column_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			snapshot = excluded.snapshot,
			fingerprint = excluded.fingerprint,
			row_count = excluded.row_count,
			column_count = excluded.column_count,
			updated_at = excluded.updated_at`,
		id, row.snapshot, row.fingerprint, row.rows, row.columns, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return storageErr("sqlite", "save", err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_tables WHERE session_id = ?`, id); err != nil {
		return storageErr("sqlite", "clear", err)
	}
	return nil
}

// Fingerprint returns the stored fingerprint of a session's table.
func (s *SQLite) Fingerprint(ctx context.Context, id string) (string, error) {
	var fp string
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint FROM session_tables WHERE session_id = ?`, id,
	).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", storageErr("sqlite", "fingerprint", err)
	}
	return fp, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// snapshotRow is the encoded form of a table as written to a database.
type snapshotRow struct {
	snapshot    []byte
	fingerprint string
	rows        int
	columns     int
}

func newSnapshotRow(t *core.Table) (snapshotRow, error) {
	data, err := core.EncodeSnapshot(t)
	if err != nil {
		return snapshotRow{}, err
	}
	fp, err := core.Fingerprint(t)
	if err != nil {
		return snapshotRow{}, fmt.Errorf("fingerprint: %w", err)
	}
	return snapshotRow{
		snapshot:    data,
		fingerprint: fp,
		rows:        t.RowCount(),
		columns:     t.ColumnCount(),
	}, nil
}
