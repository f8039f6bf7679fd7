package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/mwantia/memobox/pkg/errdefs"
)

// DefaultChunkSize is the copy buffer size used when streaming payloads.
const DefaultChunkSize = 8192

// Strategy names a file placement strategy.
type Strategy string

const (
	StrategyDirect   Strategy = "direct"
	StrategyMediated Strategy = "mediated"
)

// ErrInvalidPath is returned for relative paths that escape the storage root
// or do not follow the {category}/{name} layout.
var ErrInvalidPath = errors.New("invalid relative path")

// Location describes where a stored file lives.
type Location struct {
	RelativePath string
	FileName     string
	Size         int64
	MimeType     string
}

// Backend maps byte streams to durable file locations.
//
// Store is all-or-nothing: either a complete Location is returned or no
// resolvable file is left behind. Delete of a missing path returns false
// without an error.
type Backend interface {
	Store(ctx context.Context, r io.Reader, mimeType string) (*Location, error)
	Open(ctx context.Context, relativePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, relativePath string) (bool, error)
	TotalBytes(ctx context.Context) (int64, error)
	Strategy() Strategy
	Root() string
	Close() error
}

// CopyFile stores the content of a local file.
func CopyFile(ctx context.Context, backend Backend, sourcePath, mimeType string) (*Location, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, errdefs.IO("open source file", err)
	}
	defer f.Close()

	return backend.Store(ctx, f, mimeType)
}

// splitRelativePath validates relativePath and splits it into category and
// file name.
func splitRelativePath(relativePath string) (string, string, error) {
	clean := path.Clean(strings.ReplaceAll(relativePath, "\\", "/"))
	if clean == "." || path.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", "", fmt.Errorf("%w: '%s'", ErrInvalidPath, relativePath)
	}

	category, name := path.Split(clean)
	category = strings.TrimSuffix(category, "/")
	if category == "" || name == "" || strings.Contains(category, "/") || strings.HasPrefix(name, ".") {
		return "", "", fmt.Errorf("%w: '%s'", ErrInvalidPath, relativePath)
	}

	return category, name, nil
}

// copyChunked streams r into w in chunks of chunkSize bytes.
func copyChunked(ctx context.Context, w io.Writer, r io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			m, writeErr := w.Write(buf[:n])
			written += int64(m)
			if writeErr != nil {
				return written, writeErr
			}
			if m != n {
				return written, io.ErrShortWrite
			}
		}

		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
