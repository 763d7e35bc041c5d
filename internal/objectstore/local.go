package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements Store on the local filesystem, one directory per
// bucket. Writes go to a temp file that is renamed into place, so a key is
// either absent or complete.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("local object store directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating object store directory: %w", err)
	}
	return &LocalStore{root: dir}, nil
}

// Backend implements Store.
func (s *LocalStore) Backend() string { return BackendLocal }

// Put writes body to <root>/<bucket>/<key>.
func (s *LocalStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64) error {
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating bucket directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("writing file: %w", err)
	}
	if size >= 0 && written != size {
		tmp.Close()
		return fmt.Errorf("writing file: got %d bytes, expected %d", written, size)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving file into place: %w", err)
	}
	return nil
}

// Exists implements Store.
func (s *LocalStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", key, err)
	}
	return true, nil
}

// objectPath rejects bucket or key values that would escape the root.
func (s *LocalStore) objectPath(bucket, key string) (string, error) {
	for _, part := range []string{bucket, key} {
		if part == "" || part == "." || part == ".." ||
			strings.ContainsAny(part, `/\`) || strings.HasPrefix(part, ".upload-") {
			return "", fmt.Errorf("invalid object name %q", part)
		}
	}
	return filepath.Join(s.root, bucket, key), nil
}
