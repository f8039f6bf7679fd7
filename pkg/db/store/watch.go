package store

import (
	"context"
	"fmt"

	"github.com/mwantia/memobox/pkg/db/live"
	"github.com/mwantia/memobox/pkg/db/models"
	"gorm.io/gorm"
)

const (
	tableItems    = "items"
	tableTags     = "tags"
	tableFiles    = "files"
	tableItemTags = "item_tags"
)

// cascades lists the tables a write to the key table can change,
// following the ON DELETE CASCADE foreign keys of the schema.
var cascades = map[string][]string{
	tableItems:    {tableItems, tableFiles, tableItemTags},
	tableTags:     {tableTags, tableItemTags},
	tableFiles:    {tableFiles},
	tableItemTags: {tableItemTags},
}

var allTables = []string{tableItems, tableTags, tableFiles, tableItemTags}

func (s *SQLiteStore) registerCallbacks() error {
	notify := func(db *gorm.DB) {
		if db.Error != nil || db.Statement == nil {
			return
		}

		if affected, ok := cascades[db.Statement.Table]; ok {
			s.hub.Notify(affected...)
			return
		}

		// Raw statements carry no table; refresh everything
		if db.Statement.Table == "" {
			s.hub.Notify(allTables...)
		}
	}

	callbacks := s.db.Callback()
	if err := callbacks.Create().After("gorm:create").Register("memobox:notify_create", notify); err != nil {
		return fmt.Errorf("create callback: %w", err)
	}
	if err := callbacks.Update().After("gorm:update").Register("memobox:notify_update", notify); err != nil {
		return fmt.Errorf("update callback: %w", err)
	}
	if err := callbacks.Delete().After("gorm:delete").Register("memobox:notify_delete", notify); err != nil {
		return fmt.Errorf("delete callback: %w", err)
	}
	if err := callbacks.Raw().After("gorm:raw").Register("memobox:notify_raw", notify); err != nil {
		return fmt.Errorf("raw callback: %w", err)
	}
	return nil
}

func (s *SQLiteStore) WatchItems(ctx context.Context) *live.Subscription[[]models.Item] {
	return live.Subscribe(ctx, s.hub, s.ListItems, tableItems)
}

func (s *SQLiteStore) WatchItem(ctx context.Context, id uint) *live.Subscription[*models.Item] {
	return live.Subscribe(ctx, s.hub, func(ctx context.Context) (*models.Item, error) {
		return s.GetItem(ctx, id)
	}, tableItems)
}

func (s *SQLiteStore) WatchItemsByTag(ctx context.Context, tagID uint) *live.Subscription[[]models.Item] {
	return live.Subscribe(ctx, s.hub, func(ctx context.Context) ([]models.Item, error) {
		return s.ListItemsByTag(ctx, tagID)
	}, tableItems, tableItemTags)
}

func (s *SQLiteStore) WatchRecentlyViewed(ctx context.Context, limit int) *live.Subscription[[]models.Item] {
	return live.Subscribe(ctx, s.hub, func(ctx context.Context) ([]models.Item, error) {
		return s.ListRecentlyViewed(ctx, limit)
	}, tableItems)
}

func (s *SQLiteStore) WatchFilesByItem(ctx context.Context, itemID uint) *live.Subscription[[]models.ItemFile] {
	return live.Subscribe(ctx, s.hub, func(ctx context.Context) ([]models.ItemFile, error) {
		return s.ListFilesByItem(ctx, itemID)
	}, tableFiles)
}

func (s *SQLiteStore) WatchTags(ctx context.Context) *live.Subscription[[]models.Tag] {
	return live.Subscribe(ctx, s.hub, s.ListTags, tableTags)
}

func (s *SQLiteStore) WatchTag(ctx context.Context, id uint) *live.Subscription[*models.Tag] {
	return live.Subscribe(ctx, s.hub, func(ctx context.Context) (*models.Tag, error) {
		return s.GetTag(ctx, id)
	}, tableTags)
}

func (s *SQLiteStore) WatchTagsForItem(ctx context.Context, itemID uint) *live.Subscription[[]models.Tag] {
	return live.Subscribe(ctx, s.hub, func(ctx context.Context) ([]models.Tag, error) {
		return s.ListTagsForItem(ctx, itemID)
	}, tableTags, tableItemTags)
}

func (s *SQLiteStore) WatchItemCountForTag(ctx context.Context, tagID uint) *live.Subscription[int64] {
	return live.Subscribe(ctx, s.hub, func(ctx context.Context) (int64, error) {
		return s.CountItemsForTag(ctx, tagID)
	}, tableItemTags)
}
