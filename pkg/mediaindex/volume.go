package mediaindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mwantia/memobox/pkg/errdefs"
)

// Volume holds the bytes of index entries, addressed by key.
type Volume interface {
	Create(ctx context.Context, key string) (io.WriteCloser, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes key; a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// DirVolume stores entries as plain files below a directory.
type DirVolume struct {
	root string
}

func NewDirVolume(root string) (*DirVolume, error) {
	if root == "" {
		return nil, fmt.Errorf("volume path is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errdefs.IO("create volume directory", err)
	}
	return &DirVolume{root: root}, nil
}

func (v *DirVolume) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid volume key '%s'", key)
	}
	return filepath.Join(v.root, clean), nil
}

func (v *DirVolume) Create(ctx context.Context, key string) (io.WriteCloser, error) {
	p, err := v.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

func (v *DirVolume) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := v.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (v *DirVolume) Remove(ctx context.Context, key string) error {
	p, err := v.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (v *DirVolume) Ping(ctx context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("volume path '%s' is not a directory", v.root)
	}
	return nil
}
