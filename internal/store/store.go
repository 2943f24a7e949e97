// Package store persists the current table of every session.
//
// A TableStore keeps at most one table per session identity. Save replaces
// the stored table atomically: a failed Save leaves the previous table (or
// its absence) intact. Backends:
//
//	memory   - per-session map held in process memory
//	single   - one process-global slot shared by every session
//	file     - xz-compressed snapshot files, per session or at one fixed path
//	sqlite   - snapshot rows in a SQLite database
//	postgres - snapshot rows in PostgreSQL, schema managed by migrations
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/JonMunkholm/tabular/internal/config"
	"github.com/JonMunkholm/tabular/internal/core"
)

// ErrNotFound is returned by Load when the session has no stored table.
var ErrNotFound = errors.New("table not found")

// TableStore loads, saves and clears the table of a session.
type TableStore interface {
	Load(ctx context.Context, id string) (*core.Table, error)
	Save(ctx context.Context, id string, t *core.Table) error
	Clear(ctx context.Context, id string) error
	Close() error
}

// Keyer is implemented by stores that keep several session identities in
// one slot. Key returns the identity the table for id is stored under, so
// callers serializing writers lock the slot rather than the session.
type Keyer interface {
	Key(id string) string
}

// Fingerprinter is implemented by stores that persist the table
// fingerprint next to the snapshot, so it can be read without decoding
// the table.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, id string) (string, error)
}

var (
	_ Keyer         = (*Single)(nil)
	_ Keyer         = (*File)(nil)
	_ Fingerprinter = (*SQLite)(nil)
	_ Fingerprinter = (*Postgres)(nil)
)

// StorageError reports a failure of the underlying storage medium.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Backend: backend, Op: op, Err: err}
}

// sessionIDPattern restricts identities to characters that are safe in
// file names and SQL keys.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func checkID(backend, op, id string) error {
	if !sessionIDPattern.MatchString(id) {
		return storageErr(backend, op, fmt.Errorf("invalid session id %q", id))
	}
	return nil
}

// New opens the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StoreConfig) (TableStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendMemory, "":
		return NewMemory(), nil
	case config.BackendSingle:
		return NewSingle(), nil
	case config.BackendFile:
		if cfg.FilePath != "" {
			return NewFixedFile(cfg.FilePath)
		}
		return NewFile(cfg.Dir)
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
