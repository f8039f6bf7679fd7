package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mwantia/memobox/pkg/errdefs"
	"github.com/mwantia/memobox/pkg/log"
)

// DirectBackend keeps files below a local root directory.
type DirectBackend struct {
	root      string
	chunkSize int
	log       log.LoggerService
}

func NewDirectBackend(root string, chunkSize int, logger log.LoggerService) (*DirectBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, errdefs.IO("create storage root", err)
	}

	return &DirectBackend{
		root:      abs,
		chunkSize: chunkSize,
		log:       logger,
	}, nil
}

func (b *DirectBackend) Strategy() Strategy {
	return StrategyDirect
}

func (b *DirectBackend) Root() string {
	return b.root
}

func (b *DirectBackend) Close() error {
	return nil
}

func (b *DirectBackend) Store(ctx context.Context, r io.Reader, mimeType string) (*Location, error) {
	category := CategoryFor(mimeType)
	name := NewFileName(mimeType)

	dir := filepath.Join(b.root, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errdefs.IO("create category directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".pending-*")
	if err != nil {
		return nil, errdefs.IO("create temp file", err)
	}

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
				b.log.Warn("Failed to remove temp file '%s': %v", tmp.Name(), err)
			}
		}
	}()

	size, err := copyChunked(ctx, tmp, r, b.chunkSize)
	if err != nil {
		return nil, errdefs.IO("write file", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, errdefs.IO("sync file", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, errdefs.IO("close file", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return nil, errdefs.IO("commit file", err)
	}
	committed = true

	b.log.Debug("Stored %d bytes as '%s/%s'", size, category, name)

	return &Location{
		RelativePath: path.Join(category, name),
		FileName:     name,
		Size:         size,
		MimeType:     mimeType,
	}, nil
}

func (b *DirectBackend) Open(ctx context.Context, relativePath string) (io.ReadCloser, error) {
	full, err := b.resolve(relativePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, errdefs.IO("open file", err)
	}
	return f, nil
}

func (b *DirectBackend) Delete(ctx context.Context, relativePath string) (bool, error) {
	full, err := b.resolve(relativePath)
	if err != nil {
		return false, err
	}

	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errdefs.IO("delete file", err)
	}
	return true, nil
}

func (b *DirectBackend) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	err := filepath.WalkDir(b.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, errdefs.IO("walk storage root", err)
	}
	return total, nil
}

func (b *DirectBackend) resolve(relativePath string) (string, error) {
	category, name, err := splitRelativePath(relativePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, category, name), nil
}
