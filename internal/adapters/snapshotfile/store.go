// Package snapshotfile keeps the durable review snapshot as a JSON file.
package snapshotfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"flex_reviews/internal/domain"
)

type Store struct {
	path string
}

func New(path string) *Store { return &Store{path: path} }

func (s *Store) Backend() string { return "file" }
func (s *Store) Path() string    { return s.path }

func (s *Store) Load(ctx context.Context) ([]byte, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshotfile: read %s: %w", s.path, err)
	}
	return b, nil
}

// Save replaces the snapshot atomically: the body goes to a temp file in the
// same directory, is synced, then renamed over the target.
func (s *Store) Save(ctx context.Context, body []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshotfile: mkdir %s: %w", dir, err)
	}

	mode := fs.FileMode(0o644)
	if st, err := os.Stat(s.path); err == nil {
		mode = st.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("snapshotfile: create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("snapshotfile: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("snapshotfile: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("snapshotfile: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return fmt.Errorf("snapshotfile: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("snapshotfile: rename: %w", err)
	}
	return nil
}
