package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mwantia/memobox/pkg/db/live"
	"github.com/mwantia/memobox/pkg/db/models"
	"github.com/mwantia/memobox/pkg/db/store"
	"github.com/mwantia/memobox/pkg/errdefs"
	"github.com/mwantia/memobox/pkg/log"
	"github.com/mwantia/memobox/pkg/storage"
	"github.com/mwantia/memobox/pkg/worker"
)

const (
	DefaultItemWorkers = 2

	// Capture stores photos and memos with these types.
	PhotoMimeType = "image/jpeg"
	MemoMimeType  = "text/plain"
)

var (
	ErrTagRequired  = errors.New("a tag is required")
	ErrEmptyCapture = errors.New("a photo or a memo is required")
)

// FileFailure records a physical file that could not be deleted.
type FileFailure struct {
	Path string
	Err  error
}

// DeleteResult reports what happened to the physical files of a deleted item.
// Kept lists paths left in place because another item still refers to them.
type DeleteResult struct {
	ItemID  uint
	Deleted []string
	Missing []string
	Kept    []string
	Failed  []FileFailure
}

// Complete reports whether no physical delete failed.
func (r DeleteResult) Complete() bool {
	return len(r.Failed) == 0
}

// CaptureRequest describes a new item made of an optional photo and an
// optional memo. Photo is consumed on the worker; callers must not read
// from it after submitting.
type CaptureRequest struct {
	Title string
	Memo  string
	Photo io.Reader
	TagID uint
}

// ItemRepository composes the metadata store and the storage backend for
// items and their files. Mutations and one-shot reads run on its own queue.
type ItemRepository struct {
	store   store.MetadataStore
	backend storage.Backend
	queue   *worker.Queue
	log     log.LoggerService
}

func NewItemRepository(st store.MetadataStore, backend storage.Backend, workers int, logger log.LoggerService) (*ItemRepository, error) {
	if st == nil || backend == nil {
		return nil, fmt.Errorf("item repository requires a store and a backend")
	}
	if workers <= 0 {
		workers = DefaultItemWorkers
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	queue, err := worker.NewQueue("items", workers, logger)
	if err != nil {
		return nil, err
	}

	return &ItemRepository{
		store:   st,
		backend: backend,
		queue:   queue,
		log:     logger,
	}, nil
}

// Backend returns the storage backend files are placed with.
func (r *ItemRepository) Backend() storage.Backend {
	return r.backend
}

// CreateItem inserts item with files and tag associations in one
// transaction and resolves with the new item id. If the insert fails the
// physical files behind files are deleted unless another file row still
// refers to them.
func (r *ItemRepository) CreateItem(ctx context.Context, item models.Item, files []models.ItemFile, tagIDs []uint) *worker.Future[uint] {
	files = append([]models.ItemFile(nil), files...)
	tagIDs = append([]uint(nil), tagIDs...)

	return worker.Submit(ctx, r.queue, func(ctx context.Context) (uint, error) {
		return r.createItem(ctx, &item, files, tagIDs)
	})
}

func (r *ItemRepository) createItem(ctx context.Context, item *models.Item, files []models.ItemFile, tagIDs []uint) (uint, error) {
	item.ID = 0
	if err := r.store.CreateItemWithRelations(ctx, item, files, tagIDs); err != nil {
		r.discard(ctx, files)
		return 0, fmt.Errorf("failed to create item: %w", err)
	}

	r.log.Debug("Created item %d with %d files and %d tags", item.ID, len(files), len(tagIDs))
	return item.ID, nil
}

// discard deletes physical files best-effort. Paths still referenced by a
// file row are kept, as are all paths when the references cannot be read.
func (r *ItemRepository) discard(ctx context.Context, files []models.ItemFile) {
	if len(files) == 0 {
		return
	}

	paths, err := r.store.ListFilePaths(ctx)
	if err != nil {
		r.log.Warn("Not discarding %d files, failed to list referenced paths: %v", len(files), err)
		return
	}

	referenced := make(map[string]bool, len(paths))
	for _, p := range paths {
		referenced[p] = true
	}

	for _, f := range files {
		if f.FilePath == "" || referenced[f.FilePath] {
			continue
		}
		if _, err := r.backend.Delete(ctx, f.FilePath); err != nil {
			r.log.Warn("Failed to discard file '%s': %v", f.FilePath, err)
		}
	}
}

// Capture stores the photo and memo of req, then creates an item tagged
// with req.TagID that owns them.
func (r *ItemRepository) Capture(ctx context.Context, req CaptureRequest) *worker.Future[uint] {
	if req.TagID == 0 {
		return worker.Resolved(uint(0), fmt.Errorf("%w: %w", errdefs.ErrConstraintViolation, ErrTagRequired))
	}
	if req.Photo == nil && strings.TrimSpace(req.Memo) == "" {
		return worker.Resolved(uint(0), fmt.Errorf("%w: %w", errdefs.ErrConstraintViolation, ErrEmptyCapture))
	}

	return worker.Submit(ctx, r.queue, func(ctx context.Context) (uint, error) {
		var files []models.ItemFile

		if req.Photo != nil {
			f, err := r.storeFile(ctx, req.Photo, PhotoMimeType)
			if err != nil {
				return 0, fmt.Errorf("failed to store photo: %w", err)
			}
			files = append(files, f)
		}

		if strings.TrimSpace(req.Memo) != "" {
			f, err := r.storeFile(ctx, strings.NewReader(req.Memo), MemoMimeType)
			if err != nil {
				r.discard(ctx, files)
				return 0, fmt.Errorf("failed to store memo: %w", err)
			}
			files = append(files, f)
		}

		item := &models.Item{
			Title:       req.Title,
			Description: req.Memo,
		}
		return r.createItem(ctx, item, files, []uint{req.TagID})
	})
}

func (r *ItemRepository) storeFile(ctx context.Context, rd io.Reader, mimeType string) (models.ItemFile, error) {
	loc, err := r.backend.Store(ctx, rd, mimeType)
	if err != nil {
		return models.ItemFile{}, err
	}

	return models.ItemFile{
		FilePath: loc.RelativePath,
		FileName: loc.FileName,
		FileType: models.FileTypeForMime(mimeType),
		FileSize: loc.Size,
		MimeType: loc.MimeType,
	}, nil
}

func (r *ItemRepository) UpdateItem(ctx context.Context, item models.Item) *worker.Future[struct{}] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (struct{}, error) {
		if err := r.store.UpdateItem(ctx, &item); err != nil {
			return struct{}{}, fmt.Errorf("failed to update item %d: %w", item.ID, err)
		}
		return struct{}{}, nil
	})
}

// DeleteItem deletes the physical files of the item best-effort, then the
// item row, which cascades to its file and tag rows. Physical failures are
// logged and reported in the result; they never abort the delete.
func (r *ItemRepository) DeleteItem(ctx context.Context, itemID uint) *worker.Future[DeleteResult] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (DeleteResult, error) {
		result := DeleteResult{ItemID: itemID}

		files, err := r.store.ListFilesByItem(ctx, itemID)
		if err != nil {
			return result, fmt.Errorf("failed to list files of item %d: %w", itemID, err)
		}

		shared, err := r.sharedPaths(ctx, files)
		if err != nil {
			return result, fmt.Errorf("failed to list file references: %w", err)
		}

		for _, f := range files {
			if shared[f.FilePath] {
				result.Kept = append(result.Kept, f.FilePath)
				continue
			}

			deleted, err := r.backend.Delete(ctx, f.FilePath)
			switch {
			case err != nil:
				r.log.Warn("Failed to delete file '%s' of item %d: %v", f.FilePath, itemID, err)
				result.Failed = append(result.Failed, FileFailure{Path: f.FilePath, Err: err})
			case deleted:
				result.Deleted = append(result.Deleted, f.FilePath)
			default:
				result.Missing = append(result.Missing, f.FilePath)
			}
		}

		if err := r.store.DeleteItem(ctx, itemID); err != nil {
			if len(result.Deleted) > 0 {
				return result, errdefs.Partial("delete item", "delete item row", err)
			}
			return result, fmt.Errorf("failed to delete item %d: %w", itemID, err)
		}

		r.log.Debug("Deleted item %d (%d files removed, %d missing, %d failed)",
			itemID, len(result.Deleted), len(result.Missing), len(result.Failed))
		return result, nil
	})
}

// sharedPaths reports which paths of files are also referenced by file rows
// outside of files.
func (r *ItemRepository) sharedPaths(ctx context.Context, files []models.ItemFile) (map[string]bool, error) {
	if len(files) == 0 {
		return nil, nil
	}

	paths, err := r.store.ListFilePaths(ctx)
	if err != nil {
		return nil, err
	}

	refs := make(map[string]int, len(paths))
	for _, p := range paths {
		refs[p]++
	}
	for _, f := range files {
		refs[f.FilePath]--
	}

	shared := make(map[string]bool)
	for _, f := range files {
		if refs[f.FilePath] > 0 {
			shared[f.FilePath] = true
		}
	}
	return shared, nil
}

func (r *ItemRepository) GetAllItems(ctx context.Context) *worker.Future[[]models.Item] {
	return worker.Submit(ctx, r.queue, r.store.ListItems)
}

// GetItemByID resolves with the item including its files and tags.
func (r *ItemRepository) GetItemByID(ctx context.Context, id uint) *worker.Future[*models.Item] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (*models.Item, error) {
		return r.store.GetItemDetails(ctx, id)
	})
}

func (r *ItemRepository) GetItemsByTag(ctx context.Context, tagID uint) *worker.Future[[]models.Item] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) ([]models.Item, error) {
		return r.store.ListItemsByTag(ctx, tagID)
	})
}

func (r *ItemRepository) GetRecentlyViewedItems(ctx context.Context) *worker.Future[[]models.Item] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) ([]models.Item, error) {
		return r.store.ListRecentlyViewed(ctx, store.RecentlyViewedLimit)
	})
}

// UpdateLastViewed marks the item as viewed now. No result is reported.
func (r *ItemRepository) UpdateLastViewed(ctx context.Context, id uint) {
	viewedAt := time.Now()
	r.queue.Go(ctx, "update last viewed", func(ctx context.Context) error {
		return r.store.UpdateLastViewed(ctx, id, viewedAt)
	})
}

func (r *ItemRepository) AddTagToItem(ctx context.Context, itemID, tagID uint) *worker.Future[struct{}] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.store.AddItemTag(ctx, itemID, tagID)
	})
}

func (r *ItemRepository) RemoveTagFromItem(ctx context.Context, itemID, tagID uint) *worker.Future[struct{}] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.store.RemoveItemTag(ctx, itemID, tagID)
	})
}

func (r *ItemRepository) GetFilesByItemID(ctx context.Context, itemID uint) *worker.Future[[]models.ItemFile] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) ([]models.ItemFile, error) {
		return r.store.ListFilesByItem(ctx, itemID)
	})
}

// GetFilesByType resolves with the files of every item classified as fileType.
func (r *ItemRepository) GetFilesByType(ctx context.Context, fileType models.FileType) *worker.Future[[]models.ItemFile] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) ([]models.ItemFile, error) {
		return r.store.ListFilesByType(ctx, fileType)
	})
}

// OpenFile resolves a stored file for reading. Caller must close it.
func (r *ItemRepository) OpenFile(ctx context.Context, relativePath string) (io.ReadCloser, error) {
	return r.backend.Open(ctx, relativePath)
}

func (r *ItemRepository) StorageUsage(ctx context.Context) *worker.Future[storage.Usage] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (storage.Usage, error) {
		return storage.GetUsage(ctx, r.backend)
	})
}

func (r *ItemRepository) WatchItems(ctx context.Context) *live.Subscription[[]models.Item] {
	return r.store.WatchItems(ctx)
}

func (r *ItemRepository) WatchItem(ctx context.Context, id uint) *live.Subscription[*models.Item] {
	return r.store.WatchItem(ctx, id)
}

func (r *ItemRepository) WatchItemsByTag(ctx context.Context, tagID uint) *live.Subscription[[]models.Item] {
	return r.store.WatchItemsByTag(ctx, tagID)
}

func (r *ItemRepository) WatchRecentlyViewedItems(ctx context.Context) *live.Subscription[[]models.Item] {
	return r.store.WatchRecentlyViewed(ctx, store.RecentlyViewedLimit)
}

func (r *ItemRepository) WatchFilesByItemID(ctx context.Context, itemID uint) *live.Subscription[[]models.ItemFile] {
	return r.store.WatchFilesByItem(ctx, itemID)
}

// Close waits for queued operations and stops the queue.
func (r *ItemRepository) Close(ctx context.Context) error {
	return r.queue.Close(ctx)
}
