package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/mwantia/memobox/pkg/errdefs"
	"github.com/mwantia/memobox/pkg/log"
)

// ErrEntryNotFound is returned by a ContentIndex when no committed entry matches.
var ErrEntryNotFound = errors.New("content entry not found")

// ContentIndex is the content-indexing service the mediated strategy writes
// through. Pending entries are invisible to every lookup.
type ContentIndex interface {
	Insert(ctx context.Context, displayName, relativePath, mimeType string) (uint, error)
	OpenWriter(ctx context.Context, id uint) (io.WriteCloser, error)
	Publish(ctx context.Context, id uint, size int64) error
	Remove(ctx context.Context, id uint) error
	OpenReader(ctx context.Context, relativePath, displayName string) (io.ReadCloser, error)
	DeleteByDisplayName(ctx context.Context, relativePath, displayName string) (bool, error)
	SumSize(ctx context.Context, prefix string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// AbortWriter is a writer that can discard what was written instead of
// committing it. Content index writers may implement it.
type AbortWriter interface {
	io.WriteCloser
	CloseWithError(err error) error
}

// MediatedBackend stores files through a ContentIndex below a collection
// prefix such as "Download/memobox".
type MediatedBackend struct {
	index      ContentIndex
	collection string
	chunkSize  int
	log        log.LoggerService
}

func NewMediatedBackend(index ContentIndex, collection string, chunkSize int, logger log.LoggerService) (*MediatedBackend, error) {
	if index == nil {
		return nil, fmt.Errorf("content index is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &MediatedBackend{
		index:      index,
		collection: path.Clean(collection),
		chunkSize:  chunkSize,
		log:        logger,
	}, nil
}

func (b *MediatedBackend) Strategy() Strategy {
	return StrategyMediated
}

func (b *MediatedBackend) Root() string {
	return b.collection
}

// Close releases the content index.
func (b *MediatedBackend) Close() error {
	return b.index.Close()
}

func (b *MediatedBackend) Store(ctx context.Context, r io.Reader, mimeType string) (*Location, error) {
	category := CategoryFor(mimeType)
	name := NewFileName(mimeType)

	id, err := b.index.Insert(ctx, name, path.Join(b.collection, category), mimeType)
	if err != nil {
		return nil, errdefs.IO("insert content entry", err)
	}

	size, err := b.write(ctx, id, r)
	if err == nil {
		err = b.index.Publish(ctx, id, size)
	}
	if err != nil {
		// ctx may be the reason the write failed
		if rmErr := b.index.Remove(context.WithoutCancel(ctx), id); rmErr != nil {
			b.log.Warn("Failed to remove pending entry %d: %v", id, rmErr)
		}
		return nil, errdefs.IO("write content entry", err)
	}

	b.log.Debug("Stored %d bytes as entry %d '%s/%s'", size, id, category, name)

	return &Location{
		RelativePath: path.Join(category, name),
		FileName:     name,
		Size:         size,
		MimeType:     mimeType,
	}, nil
}

func (b *MediatedBackend) write(ctx context.Context, id uint, r io.Reader) (int64, error) {
	w, err := b.index.OpenWriter(ctx, id)
	if err != nil {
		return 0, err
	}

	size, err := copyChunked(ctx, w, r, b.chunkSize)
	if err != nil {
		if aw, ok := w.(AbortWriter); ok {
			aw.CloseWithError(err)
		} else {
			w.Close()
		}
		return size, err
	}
	return size, w.Close()
}

func (b *MediatedBackend) Open(ctx context.Context, relativePath string) (io.ReadCloser, error) {
	category, name, err := splitRelativePath(relativePath)
	if err != nil {
		return nil, err
	}

	rc, err := b.index.OpenReader(ctx, path.Join(b.collection, category), name)
	if err != nil {
		return nil, errdefs.IO("open content entry", err)
	}
	return rc, nil
}

func (b *MediatedBackend) Delete(ctx context.Context, relativePath string) (bool, error) {
	category, name, err := splitRelativePath(relativePath)
	if err != nil {
		return false, err
	}

	deleted, err := b.index.DeleteByDisplayName(ctx, path.Join(b.collection, category), name)
	if err != nil {
		return false, errdefs.IO("delete content entry", err)
	}
	return deleted, nil
}

func (b *MediatedBackend) TotalBytes(ctx context.Context) (int64, error) {
	total, err := b.index.SumSize(ctx, b.collection)
	if err != nil {
		return 0, errdefs.IO("sum content entries", err)
	}
	return total, nil
}
