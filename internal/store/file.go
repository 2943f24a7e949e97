package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	"github.com/JonMunkholm/tabular/internal/core"
)

// snapshotExt is appended to the session id to name its snapshot file.
const snapshotExt = ".json.xz"

// File stores tables as xz-compressed snapshots on disk.
//
// In directory mode every session gets its own file under dir. In fixed
// mode (path set) all sessions share one file. Writes go to a temporary
// file in the same directory and are renamed into place, so readers see
// either the old snapshot or the new one.
type File struct {
	dir  string
	path string
}

// NewFile returns a store keeping one snapshot per session under dir.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, storageErr("file", "open", err)
	}
	return &File{dir: dir}, nil
}

// NewFixedFile returns a store that keeps every session's table in path.
func NewFixedFile(path string) (*File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, storageErr("file", "open", err)
	}
	return &File{dir: dir, path: path}, nil
}

func (f *File) pathFor(op, id string) (string, error) {
	if f.path != "" {
		return f.path, nil
	}
	if err := checkID("file", op, id); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, id+snapshotExt), nil
}

// Key returns id in directory mode and the shared path in fixed mode.
func (f *File) Key(id string) string {
	if f.path != "" {
		return "file:" + f.path
	}
	return id
}

func (f *File) Load(ctx context.Context, id string) (*core.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.pathFor("load", id)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("file", "load", err)
	}
	defer file.Close()

	xr, err := xz.NewReader(file)
	if err != nil {
		return nil, storageErr("file", "load", fmt.Errorf("create xz reader: %w", err))
	}
	data, err := io.ReadAll(xr)
	if err != nil {
		return nil, storageErr("file", "load", fmt.Errorf("decompress %s: %w", filepath.Base(path), err))
	}

	t, err := core.DecodeSnapshot(data)
	if err != nil {
		return nil, storageErr("file", "load", err)
	}
	return t, nil
}

func (f *File) Save(ctx context.Context, id string, t *core.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.pathFor("save", id)
	if err != nil {
		return err
	}

	data, err := core.EncodeSnapshot(t)
	if err != nil {
		return storageErr("file", "save", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".snapshot-*.tmp")
	if err != nil {
		return storageErr("file", "save", err)
	}
	tmpName := tmp.Name()
	// Removing after a successful rename is a no-op.
	defer os.Remove(tmpName)

	if err := writeCompressed(tmp, data); err != nil {
		tmp.Close()
		return storageErr("file", "save", err)
	}
	if err := tmp.Close(); err != nil {
		return storageErr("file", "save", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return storageErr("file", "save", err)
	}
	return nil
}

func writeCompressed(file *os.File, data []byte) error {
	xw, err := xz.NewWriter(file)
	if err != nil {
		return fmt.Errorf("create xz writer: %w", err)
	}
	if _, err := xw.Write(data); err != nil {
		xw.Close()
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := xw.Close(); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	return file.Sync()
}

func (f *File) Clear(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.pathFor("clear", id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageErr("file", "clear", err)
	}
	return nil
}

func (f *File) Close() error { return nil }
