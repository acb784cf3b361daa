package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	celerrors "github.com/celestio/celestio/internal/errors"
)

// Filesystem stores objects as plain files under a root directory.
// Keys map to relative paths; parent directories are created on Put.
type Filesystem struct {
	root string
}

// NewFilesystem creates a filesystem store rooted at dir
func NewFilesystem(dir string) (*Filesystem, error) {
	if dir == "" {
		return nil, celerrors.ConfigError("filesystem store requires a root directory", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, celerrors.StoreUnavailable(
			fmt.Sprintf("failed to create store root %s", dir), err)
	}
	return &Filesystem{root: dir}, nil
}

// resolve maps a key to a path under the root, rejecting traversal
func (s *Filesystem) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", celerrors.InvalidArgument(fmt.Sprintf("invalid store key %q", key), nil)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *Filesystem) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, celerrors.StoreUnavailable(fmt.Sprintf("failed to stat %s", path), err)
	}
	return !info.IsDir(), nil
}

func (s *Filesystem) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, celerrors.NotFound(key)
		}
		return nil, celerrors.StoreUnavailable(fmt.Sprintf("failed to read %s", path), err)
	}
	return data, nil
}

func (s *Filesystem) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return celerrors.StoreUnavailable(fmt.Sprintf("failed to create directory for %s", path), err)
	}
	// Write to a temp file and rename so readers never observe partial content
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return celerrors.StoreUnavailable(fmt.Sprintf("failed to create temp file for %s", path), err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return celerrors.StoreUnavailable(fmt.Sprintf("failed to write %s", path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return celerrors.StoreUnavailable(fmt.Sprintf("failed to close %s", path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return celerrors.StoreUnavailable(fmt.Sprintf("failed to rename into %s", path), err)
	}
	return nil
}

func (s *Filesystem) Kind() Kind { return KindFilesystem }
