package treestore

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FileStore stores documents on the local filesystem.
type FileStore struct {
	dir     string
	maxSize int64
}

// NewFileStore creates a new FileStore.
//
// Parameters:
//   - dir: Directory keys are resolved against ("" for the working directory)
//   - maxSize: Maximum document size in bytes (0 = DefaultMaxSize)
func NewFileStore(dir string, maxSize int64) *FileStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &FileStore{dir: dir, maxSize: maxSize}
}

// path resolves key inside the store. Rooted stores reject keys that would
// leave the root.
func (s *FileStore) path(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	if s.dir == "" {
		return key, nil
	}
	if !filepath.IsLocal(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key), nil
}

// Get reads the document stored under key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	// +1 to detect overflow
	data, err := io.ReadAll(io.LimitReader(f, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Put writes data under key, creating parent directories as needed. The
// document is written to a temp file first and renamed into place.
func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if int64(len(data)) > s.maxSize {
		return ErrTooLarge
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".treestore-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// List returns the slash-separated keys under the store directory that
// start with prefix.
func (s *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	root := s.dir
	if root == "" {
		root = "."
	}

	var keys []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".treestore-") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}
