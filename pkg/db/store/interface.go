package store

import (
	"context"
	"time"

	"github.com/mwantia/memobox/pkg/db/live"
	"github.com/mwantia/memobox/pkg/db/models"
)

// RecentlyViewedLimit bounds the recently viewed item window.
const RecentlyViewedLimit = 10

// MetadataStore defines the interface for relational operations on items,
// tags, files and their associations. Constraint violations are reported
// as errdefs.ErrConstraintViolation, absent targets as errdefs.ErrNotFound.
type MetadataStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	// Item operations
	CreateItem(ctx context.Context, item *models.Item) error
	CreateItemWithRelations(ctx context.Context, item *models.Item, files []models.ItemFile, tagIDs []uint) error
	GetItem(ctx context.Context, id uint) (*models.Item, error)
	GetItemDetails(ctx context.Context, id uint) (*models.Item, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	ListItemsByTag(ctx context.Context, tagID uint) ([]models.Item, error)
	ListRecentlyViewed(ctx context.Context, limit int) ([]models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	UpdateLastViewed(ctx context.Context, id uint, viewedAt time.Time) error
	DeleteItem(ctx context.Context, id uint) error

	// File operations
	CreateFile(ctx context.Context, file *models.ItemFile) error
	ListFilesByItem(ctx context.Context, itemID uint) ([]models.ItemFile, error)
	ListFilesByType(ctx context.Context, fileType models.FileType) ([]models.ItemFile, error)
	ListFilePaths(ctx context.Context) ([]string, error)

	// Tag operations
	CreateTag(ctx context.Context, tag *models.Tag) error
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
	GetTagByName(ctx context.Context, name string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	ListTagsForItem(ctx context.Context, itemID uint) ([]models.Tag, error)
	CountItemsForTag(ctx context.Context, tagID uint) (int64, error)
	UpdateTag(ctx context.Context, tag *models.Tag) error
	DeleteTag(ctx context.Context, id uint) error

	// Item/tag association operations
	AddItemTag(ctx context.Context, itemID, tagID uint) error
	RemoveItemTag(ctx context.Context, itemID, tagID uint) error

	// Live queries
	WatchItems(ctx context.Context) *live.Subscription[[]models.Item]
	WatchItem(ctx context.Context, id uint) *live.Subscription[*models.Item]
	WatchItemsByTag(ctx context.Context, tagID uint) *live.Subscription[[]models.Item]
	WatchRecentlyViewed(ctx context.Context, limit int) *live.Subscription[[]models.Item]
	WatchFilesByItem(ctx context.Context, itemID uint) *live.Subscription[[]models.ItemFile]
	WatchTags(ctx context.Context) *live.Subscription[[]models.Tag]
	WatchTag(ctx context.Context, id uint) *live.Subscription[*models.Tag]
	WatchTagsForItem(ctx context.Context, itemID uint) *live.Subscription[[]models.Tag]
	WatchItemCountForTag(ctx context.Context, tagID uint) *live.Subscription[int64]
}
