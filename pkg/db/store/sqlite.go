package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/memobox/pkg/db/live"
	"github.com/mwantia/memobox/pkg/db/migrations"
	"github.com/mwantia/memobox/pkg/db/models"
	"github.com/mwantia/memobox/pkg/errdefs"
	"github.com/mwantia/memobox/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements MetadataStore using SQLite
type SQLiteStore struct {
	db   *gorm.DB
	path string
	hub  *live.Hub
	log  log.LoggerService
}

// DB returns the underlying GORM database instance
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path        string
	BusyTimeout int
	LogLevel    logger.LogLevel
	Logger      log.LoggerService
}

// NewSQLiteStore creates a new SQLite-backed metadata store
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5000
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		cfg.Path, cfg.BusyTimeout)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(cfg.LogLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	s := &SQLiteStore{
		db:   db,
		path: cfg.Path,
		hub:  live.NewHub(),
		log:  cfg.Logger,
	}

	if err := s.registerCallbacks(); err != nil {
		return nil, fmt.Errorf("failed to register change callbacks: %w", err)
	}

	return s, nil
}

// Connect initializes the database connection
func (s *SQLiteStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(1) // SQLite only supports 1 writer
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.log.Debug("Connected to '%s'", s.path)
	return nil
}

// Close closes the database connection and ends all live queries
func (s *SQLiteStore) Close() error {
	s.hub.Close()

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return migrations.NewMigrator(s.db).Migrate(ctx)
}

// MigrationStatus lists every known migration and whether it is applied.
func (s *SQLiteStore) MigrationStatus(ctx context.Context) ([]migrations.MigrationStatus, error) {
	return migrations.NewMigrator(s.db).Status(ctx)
}

// Rollback reverts the last applied migration.
func (s *SQLiteStore) Rollback(ctx context.Context) error {
	return migrations.NewMigrator(s.db).Rollback(ctx)
}

// Health checks database connectivity
func (s *SQLiteStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Item operations

func (s *SQLiteStore) CreateItem(ctx context.Context, item *models.Item) error {
	return classify(s.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error)
}

// CreateItemWithRelations inserts the item, its files and its tag
// associations in one transaction. Files are stamped with the new item id.
func (s *SQLiteStore) CreateItemWithRelations(ctx context.Context, item *models.Item, files []models.ItemFile, tagIDs []uint) error {
	for i := range files {
		if !files[i].Valid() {
			return fmt.Errorf("%w: file %d is missing required fields", errdefs.ErrConstraintViolation, i)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
			return fmt.Errorf("insert item: %w", err)
		}

		for i := range files {
			files[i].ID = 0
			files[i].ItemID = item.ID
			if err := tx.Create(&files[i]).Error; err != nil {
				return fmt.Errorf("insert file '%s': %w", files[i].FileName, err)
			}
		}

		for _, tagID := range tagIDs {
			if err := tx.Create(&models.ItemTag{ItemID: item.ID, TagID: tagID}).Error; err != nil {
				return fmt.Errorf("associate tag %d: %w", tagID, err)
			}
		}

		return nil
	})
	if err != nil {
		item.ID = 0
		return classify(err)
	}

	return nil
}

func (s *SQLiteStore) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, classify(err)
	}
	return &item, nil
}

// GetItemDetails returns the item with its files and tags loaded.
func (s *SQLiteStore) GetItemDetails(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("files.id ASC") }).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") }).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, classify(err)
	}
	return &item, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&items).Error
	return items, classify(err)
}

func (s *SQLiteStore) ListItemsByTag(ctx context.Context, tagID uint) ([]models.Item, error) {
	var items []models.Item
	db := s.db.WithContext(ctx)
	err := db.
		Where("id IN (?)", db.Model(&models.ItemTag{}).Select("item_id").Where("tag_id = ?", tagID)).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	return items, classify(err)
}

// ListRecentlyViewed returns up to limit items that were opened at least once,
// most recently viewed first.
func (s *SQLiteStore) ListRecentlyViewed(ctx context.Context, limit int) ([]models.Item, error) {
	if limit <= 0 || limit > RecentlyViewedLimit {
		limit = RecentlyViewedLimit
	}

	var items []models.Item
	err := s.db.WithContext(ctx).
		Where("last_viewed IS NOT NULL").
		Order("last_viewed DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	return items, classify(err)
}

func (s *SQLiteStore) UpdateItem(ctx context.Context, item *models.Item) error {
	if item.ID == 0 {
		return notFound("item", item.ID)
	}

	result := s.db.WithContext(ctx).
		Model(item).
		Select("title", "description", "updated_at").
		Updates(item)
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("item", item.ID)
	}
	return nil
}

// UpdateLastViewed sets only the last_viewed column; updated_at stays untouched.
func (s *SQLiteStore) UpdateLastViewed(ctx context.Context, id uint, viewedAt time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		UpdateColumn("last_viewed", viewedAt.UTC())
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("item", id)
	}
	return nil
}

// DeleteItem removes the item; files and item_tags rows cascade in the schema.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Item{}, id)
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("item", id)
	}
	return nil
}

// File operations

func (s *SQLiteStore) CreateFile(ctx context.Context, file *models.ItemFile) error {
	if !file.Valid() {
		return fmt.Errorf("%w: file is missing required fields", errdefs.ErrConstraintViolation)
	}
	return classify(s.db.WithContext(ctx).Create(file).Error)
}

func (s *SQLiteStore) ListFilesByItem(ctx context.Context, itemID uint) ([]models.ItemFile, error) {
	var files []models.ItemFile
	err := s.db.WithContext(ctx).Where("item_id = ?", itemID).Order("id ASC").Find(&files).Error
	return files, classify(err)
}

func (s *SQLiteStore) ListFilesByType(ctx context.Context, fileType models.FileType) ([]models.ItemFile, error) {
	var files []models.ItemFile
	err := s.db.WithContext(ctx).Where("file_type = ?", fileType).Order("id ASC").Find(&files).Error
	return files, classify(err)
}

func (s *SQLiteStore) ListFilePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := s.db.WithContext(ctx).Model(&models.ItemFile{}).Order("id ASC").Pluck("file_path", &paths).Error
	return paths, classify(err)
}

// Tag operations

func (s *SQLiteStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	if !tag.Valid() {
		return fmt.Errorf("%w: tag name is required", errdefs.ErrConstraintViolation)
	}
	return classify(s.db.WithContext(ctx).Create(tag).Error)
}

func (s *SQLiteStore) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&tag).Error
	if err != nil {
		return nil, classify(err)
	}
	return &tag, nil
}

func (s *SQLiteStore) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
	if err != nil {
		return nil, classify(err)
	}
	return &tag, nil
}

func (s *SQLiteStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error
	return tags, classify(err)
}

func (s *SQLiteStore) ListTagsForItem(ctx context.Context, itemID uint) ([]models.Tag, error) {
	var tags []models.Tag
	db := s.db.WithContext(ctx)
	err := db.
		Where("id IN (?)", db.Model(&models.ItemTag{}).Select("tag_id").Where("item_id = ?", itemID)).
		Order("name ASC").
		Find(&tags).Error
	return tags, classify(err)
}

func (s *SQLiteStore) CountItemsForTag(ctx context.Context, tagID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ItemTag{}).Where("tag_id = ?", tagID).Count(&count).Error
	return count, classify(err)
}

func (s *SQLiteStore) UpdateTag(ctx context.Context, tag *models.Tag) error {
	if tag.ID == 0 {
		return notFound("tag", tag.ID)
	}
	if !tag.Valid() {
		return fmt.Errorf("%w: tag name is required", errdefs.ErrConstraintViolation)
	}

	result := s.db.WithContext(ctx).Model(tag).Select("name", "color").Updates(tag)
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("tag", tag.ID)
	}
	return nil
}

// DeleteTag removes the tag; its item_tags rows cascade, items stay.
func (s *SQLiteStore) DeleteTag(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Tag{}, id)
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("tag", id)
	}
	return nil
}

// Item/tag association operations

func (s *SQLiteStore) AddItemTag(ctx context.Context, itemID, tagID uint) error {
	return classify(s.db.WithContext(ctx).Create(&models.ItemTag{ItemID: itemID, TagID: tagID}).Error)
}

func (s *SQLiteStore) RemoveItemTag(ctx context.Context, itemID, tagID uint) error {
	result := s.db.WithContext(ctx).Delete(&models.ItemTag{}, "item_id = ? AND tag_id = ?", itemID, tagID)
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("item tag", fmt.Sprintf("%d/%d", itemID, tagID))
	}
	return nil
}
