// Package file stores the known set as a JSON array of strings on local disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/observability/metrics"
	"deltawatch/internal/repository"
)

const backend = "file"

// ChangeStore keeps the known set in a single JSON file. The array is written
// sorted so successive saves of the same set are byte-identical.
type ChangeStore struct {
	path string
}

// NewChangeStore returns a store backed by path. The file need not exist.
func NewChangeStore(path string) repository.ChangeStore {
	return &ChangeStore{path: path}
}

// Path returns the backing file.
func (s *ChangeStore) Path() string {
	return s.path
}

// Load implements repository.ChangeStore. A missing file is an empty set.
func (s *ChangeStore) Load(ctx context.Context) (known *entity.KnownSet, err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOperation(backend, "load", time.Since(start), err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entity.NewKnownSet(), nil
	}
	if err != nil {
		return nil, s.storageErr(entity.StorageUnreadable, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, s.storageErr(entity.StorageUnreadable, fmt.Errorf("decode: %w", err))
	}
	return entity.NewKnownSet(ids...), nil
}

// Save implements repository.ChangeStore.
//
// The set is written to a temporary file in the target directory, synced,
// and renamed over the target; the directory is synced afterwards so the
// rename survives a crash.
func (s *ChangeStore) Save(ctx context.Context, known *entity.KnownSet) (err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOperation(backend, "save", time.Since(start), err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	ids := known.IDs()
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return s.storageErr(entity.StorageUnwritable, fmt.Errorf("encode: %w", err))
	}

	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return s.storageErr(entity.StorageUnwritable, err)
	}
	return nil
}

func (s *ChangeStore) storageErr(kind entity.StorageErrorKind, err error) error {
	return &entity.StorageError{Kind: kind, Location: s.path, Err: err}
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return syncDir(dir)
}

// syncDir flushes directory metadata. Platforms that cannot open or sync a
// directory are tolerated.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer func() { _ = d.Close() }()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync directory: %w", err)
	}
	return nil
}
