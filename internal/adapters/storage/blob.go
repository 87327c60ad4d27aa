// Package storage persists the quote library on a filesystem.
//
// Blobs are written atomically: data goes to a temp file in the target
// directory, is synced and closed, then renamed over the target. Readers see
// either the old blob or the new one, never a partial write.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jsamuelsen/quotebox/internal/domain"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FileBlobStore stores each key as a file in one directory.
type FileBlobStore struct {
	fs  afero.Fs
	dir string
}

// NewFileBlobStore creates a blob store rooted at dir on fs.
// Tests pass afero.NewMemMapFs(); production passes afero.NewOsFs().
func NewFileBlobStore(fs afero.Fs, dir string) *FileBlobStore {
	return &FileBlobStore{fs: fs, dir: dir}
}

// Read returns the blob for key, or a domain.NotFoundError if it was never written.
func (s *FileBlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.NewNotFoundError("blob", key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return data, nil
}

// Write atomically replaces the blob for key.
func (s *FileBlobStore) Write(ctx context.Context, key string, data []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("creating %s: %w", s.dir, err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, "."+key+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = s.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}

	if err = s.fs.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("setting mode on %s: %w", tmpName, err)
	}

	if err = s.fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}

// Rename moves the blob under from to to.
func (s *FileBlobStore) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := s.path(from)
	if err != nil {
		return err
	}

	dst, err := s.path(to)
	if err != nil {
		return err
	}

	err = s.fs.Rename(src, dst)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewNotFoundError("blob", from)
	}
	if err != nil {
		return fmt.Errorf("renaming %s: %w", src, err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (s *FileBlobStore) Name() string { return "storage" }

// Check verifies the directory can be written to.
func (s *FileBlobStore) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.fs.MkdirAll(s.dir, dirPerm); err != nil {
		return domain.NewUnavailableError("storage", err.Error())
	}

	probe, err := afero.TempFile(s.fs, s.dir, ".probe-*")
	if err != nil {
		return domain.NewUnavailableError("storage", err.Error())
	}

	name := probe.Name()
	_ = probe.Close()

	return s.fs.Remove(name)
}

// path maps a key to a file in the store directory.
// Keys are plain file names; anything that could escape the directory is rejected.
func (s *FileBlobStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || filepath.Base(key) != key {
		return "", domain.NewValidationErrorWithValue("key", "must be a plain file name", key)
	}

	return filepath.Join(s.dir, key), nil
}
