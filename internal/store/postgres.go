package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/tabular/internal/config"
	"github.com/JonMunkholm/tabular/internal/core"
)

// Postgres stores table snapshots in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to cfg.DatabaseURL, applying migrations first when
// cfg.Migrate is set.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*Postgres, error) {
	if cfg.Migrate {
		if err := RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, storageErr("postgres", "migrate", err)
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, storageErr("postgres", "open", fmt.Errorf("parse database URL: %w", err))
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, storageErr("postgres", "open", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storageErr("postgres", "ping", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Load(ctx context.Context, id string) (*core.Table, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT snapshot FROM session_tables WHERE session_id = $1`, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("postgres", "load", err)
	}

	t, err := core.DecodeSnapshot(data)
	if err != nil {
		return nil, storageErr("postgres", "load", err)
	}
	return t, nil
}

func (p *Postgres) Save(ctx context.Context, id string, t *core.Table) error {
	row, err := newSnapshotRow(t)
	if err != nil {
		return storageErr("postgres", "save", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO session_tables (session_id, snapshot, fingerprint, row_count, column_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (session_id) DO UPDATE SET
			snapshot = EXCLUDED.snapshot,
			fingerprint = EXCLUDED.fingerprint,
			row_count = EXCLUDED.row_count,
			column_count = EXCLUDED.column_count,
			updated_at = EXCLUDED.updated_at`,
		id, row.snapshot, row.fingerprint, row.rows, row.columns,
	)
	if err != nil {
		return storageErr("postgres", "save", err)
	}
	return nil
}

func (p *Postgres) Clear(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM session_tables WHERE session_id = $1`, id); err != nil {
		return storageErr("postgres", "clear", err)
	}
	return nil
}

// Fingerprint returns the stored fingerprint of a session's table.
func (p *Postgres) Fingerprint(ctx context.Context, id string) (string, error) {
	var fp string
	err := p.pool.QueryRow(ctx,
		`SELECT fingerprint FROM session_tables WHERE session_id = $1`, id,
	).Scan(&fp)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", storageErr("postgres", "fingerprint", err)
	}
	return fp, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// DatabaseName returns the database name from a connection URL, for logging.
func DatabaseName(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
