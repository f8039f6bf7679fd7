package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwantia/memobox/internal/config"
	"github.com/mwantia/memobox/pkg/errdefs"
	"github.com/mwantia/memobox/pkg/mediaindex"
	"github.com/mwantia/memobox/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendFactory func(t *testing.T) storage.Backend

func newDirect(t *testing.T) storage.Backend {
	t.Helper()

	b, err := storage.NewDirectBackend(t.TempDir(), 512, nil)
	require.NoError(t, err)
	return b
}

func newMediated(t *testing.T) storage.Backend {
	t.Helper()

	dir := t.TempDir()
	volume, err := mediaindex.NewDirVolume(filepath.Join(dir, "volume"))
	require.NoError(t, err)

	index, err := mediaindex.New(context.Background(), filepath.Join(dir, "index.db"), volume, nil)
	require.NoError(t, err)

	b, err := storage.NewMediatedBackend(index, "Download/memobox", 512, nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

var backends = map[string]backendFactory{
	"direct":   newDirect,
	"mediated": newMediated,
}

// failingReader yields some bytes and then fails.
type failingReader struct {
	remaining int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, errors.New("stream interrupted")
	}
	n := min(len(p), r.remaining)
	r.remaining -= n
	return n, nil
}

func readAll(t *testing.T, b storage.Backend, rel string) []byte {
	t.Helper()

	rc, err := b.Open(context.Background(), rel)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestBackend_StorePNGThenDeleteTwice(t *testing.T) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			b := factory(t)
			ctx := context.Background()

			payload := bytes.Repeat([]byte{0x89}, 1500)
			loc, err := b.Store(ctx, bytes.NewReader(payload), "image/png")
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(loc.RelativePath, "images/"))
			assert.True(t, strings.HasSuffix(loc.FileName, ".png"))
			assert.Equal(t, int64(1500), loc.Size)
			assert.Equal(t, "image/png", loc.MimeType)

			deleted, err := b.Delete(ctx, loc.RelativePath)
			require.NoError(t, err)
			assert.True(t, deleted)

			deleted, err = b.Delete(ctx, loc.RelativePath)
			require.NoError(t, err)
			assert.False(t, deleted)
		})
	}
}

func TestBackend_RoundTrip(t *testing.T) {
	payloads := map[string][]byte{
		"empty":      {},
		"small":      []byte("buy milk"),
		"multichunk": bytes.Repeat([]byte("0123456789"), 300),
	}

	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			b := factory(t)
			ctx := context.Background()

			for label, payload := range payloads {
				loc, err := b.Store(ctx, bytes.NewReader(payload), "text/plain")
				require.NoError(t, err, label)
				assert.Equal(t, int64(len(payload)), loc.Size, label)
				assert.True(t, strings.HasPrefix(loc.RelativePath, "texts/"), label)

				assert.Equal(t, payload, readAll(t, b, loc.RelativePath), label)
			}
		})
	}
}

func TestBackend_DistinctNames(t *testing.T) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			b := factory(t)
			ctx := context.Background()

			a, err := b.Store(ctx, strings.NewReader("a"), "image/jpeg")
			require.NoError(t, err)
			c, err := b.Store(ctx, strings.NewReader("a"), "image/jpeg")
			require.NoError(t, err)

			assert.NotEqual(t, a.RelativePath, c.RelativePath)
		})
	}
}

func TestBackend_FailedStoreLeavesNothing(t *testing.T) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			b := factory(t)
			ctx := context.Background()

			loc, err := b.Store(ctx, &failingReader{remaining: 2000}, "image/png")
			require.Error(t, err)
			assert.Nil(t, loc)
			assert.ErrorIs(t, err, errdefs.ErrIOFailure)

			total, err := b.TotalBytes(ctx)
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	}
}

func TestBackend_TotalBytes(t *testing.T) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			b := factory(t)
			ctx := context.Background()

			_, err := b.Store(ctx, bytes.NewReader(make([]byte, 1500)), "image/png")
			require.NoError(t, err)
			_, err = b.Store(ctx, strings.NewReader("hello"), "text/plain")
			require.NoError(t, err)

			total, err := b.TotalBytes(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1505), total)

			usage, err := storage.GetUsage(ctx, b)
			require.NoError(t, err)
			assert.Equal(t, int64(1505), usage.Bytes)
			assert.Equal(t, b.Strategy(), usage.Strategy)
		})
	}
}

func TestBackend_RejectsTraversal(t *testing.T) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			b := factory(t)
			ctx := context.Background()

			_, err := b.Open(ctx, "../etc/passwd")
			assert.ErrorIs(t, err, storage.ErrInvalidPath)

			_, err = b.Delete(ctx, "images/../../secret")
			assert.ErrorIs(t, err, storage.ErrInvalidPath)
		})
	}
}

func TestDirectBackend_Layout(t *testing.T) {
	root := t.TempDir()
	b, err := storage.NewDirectBackend(root, 0, nil)
	require.NoError(t, err)

	loc, err := b.Store(context.Background(), strings.NewReader("%PDF"), "application/pdf")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "documents", loc.FileName))
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size())

	entries, err := os.ReadDir(filepath.Join(root, "documents"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDirectBackend_FailedStoreRemovesTempFile(t *testing.T) {
	root := t.TempDir()
	b, err := storage.NewDirectBackend(root, 0, nil)
	require.NoError(t, err)

	_, err = b.Store(context.Background(), &failingReader{remaining: 100}, "image/png")
	require.Error(t, err)

	var files []string
	require.NoError(t, filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, p)
		}
		return err
	}))
	assert.Empty(t, files)
}

func TestDirectBackend_HidesPendingFiles(t *testing.T) {
	root := t.TempDir()
	b, err := storage.NewDirectBackend(root, 0, nil)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "images"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "images", ".pending-1234"), []byte("half"), 0644))

	_, err = b.Open(context.Background(), "images/.pending-1234")
	assert.ErrorIs(t, err, storage.ErrInvalidPath)

	_, err = b.Delete(context.Background(), "images/.pending-1234")
	assert.ErrorIs(t, err, storage.ErrInvalidPath)
}

func TestCopyFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "memo.txt")
	require.NoError(t, os.WriteFile(src, []byte("buy milk"), 0644))

	b := newDirect(t)
	loc, err := storage.CopyFile(context.Background(), b, src, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, []byte("buy milk"), readAll(t, b, loc.RelativePath))

	_, err = storage.CopyFile(context.Background(), b, filepath.Join(t.TempDir(), "missing"), "text/plain")
	assert.ErrorIs(t, err, errdefs.ErrIOFailure)
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := config.StorageConfig{
		Strategy: config.StrategyAuto,
		Root:     filepath.Join(dir, "files"),
		Index: config.StorageIndexConfig{
			Path:       filepath.Join(dir, "index.db"),
			Collection: "Download/memobox",
			Volume:     config.VolumeDir,
			VolumePath: filepath.Join(dir, "volume"),
		},
	}
	open := func(ctx context.Context) (storage.ContentIndex, error) {
		return mediaindex.Open(ctx, cfg.Index, nil)
	}
	unavailable := func(ctx context.Context) (storage.ContentIndex, error) {
		return nil, errors.New("no content index on this host")
	}

	b, err := storage.Select(ctx, cfg, open, nil)
	require.NoError(t, err)
	assert.Equal(t, storage.StrategyMediated, b.Strategy())
	require.NoError(t, b.Close())

	b, err = storage.Select(ctx, cfg, unavailable, nil)
	require.NoError(t, err)
	assert.Equal(t, storage.StrategyDirect, b.Strategy())

	cfg.Strategy = config.StrategyDirect
	b, err = storage.Select(ctx, cfg, open, nil)
	require.NoError(t, err)
	assert.Equal(t, storage.StrategyDirect, b.Strategy())

	cfg.Strategy = config.StrategyMediated
	_, err = storage.Select(ctx, cfg, unavailable, nil)
	assert.Error(t, err)

	cfg.Strategy = "cloud"
	_, err = storage.Select(ctx, cfg, open, nil)
	assert.Error(t, err)
}
