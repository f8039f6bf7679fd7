package mediaindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/memobox/internal/config"
	"github.com/mwantia/memobox/pkg/log"
	"github.com/mwantia/memobox/pkg/storage"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Entry is one file known to the index.
type Entry struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	DisplayName  string    `gorm:"not null;index:idx_media_entries_location"`
	RelativePath string    `gorm:"not null;index:idx_media_entries_location"`
	MimeType     string    `gorm:"not null"`
	Size         int64     `gorm:"not null;default:0"`
	IsPending    bool      `gorm:"not null"`
	DateAdded    time.Time `gorm:"autoCreateTime"`
	DateModified time.Time `gorm:"autoUpdateTime"`
}

func (Entry) TableName() string {
	return "media_entries"
}

// Key addresses the entry on its volume.
func (e *Entry) Key() string {
	return path.Join(e.RelativePath, e.DisplayName)
}

// Index is a local content-indexing service: entry metadata lives in its
// own SQLite database, bytes live on a Volume.
type Index struct {
	db     *gorm.DB
	volume Volume
	log    log.LoggerService
}

var _ storage.ContentIndex = (*Index)(nil)

// Open creates the index described by cfg, including its volume.
func Open(ctx context.Context, cfg config.StorageIndexConfig, logger log.LoggerService) (*Index, error) {
	var (
		volume Volume
		err    error
	)

	switch cfg.Volume {
	case config.VolumeDir, "":
		volume, err = NewDirVolume(cfg.VolumePath)
	case config.VolumeMinio:
		volume, err = NewMinioVolume(ctx, cfg.Minio)
	default:
		err = fmt.Errorf("unknown index volume '%s'", cfg.Volume)
	}
	if err != nil {
		return nil, err
	}

	return New(ctx, cfg.Path, volume, logger)
}

// New opens the index database at dbPath on top of volume.
func New(ctx context.Context, dbPath string, volume Volume, logger log.LoggerService) (*Index, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("index path is required")
	}
	if volume == nil {
		return nil, fmt.Errorf("index volume is required")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get index database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate index: %w", err)
	}

	return &Index{
		db:     db,
		volume: volume,
		log:    logger,
	}, nil
}

// Insert adds a pending entry and returns its id.
func (i *Index) Insert(ctx context.Context, displayName, relativePath, mimeType string) (uint, error) {
	entry := &Entry{
		DisplayName:  displayName,
		RelativePath: path.Clean(relativePath),
		MimeType:     mimeType,
		IsPending:    true,
	}
	if err := i.db.WithContext(ctx).Create(entry).Error; err != nil {
		return 0, fmt.Errorf("failed to insert entry: %w", err)
	}
	return entry.ID, nil
}

// OpenWriter opens the volume object of a pending entry for writing.
func (i *Index) OpenWriter(ctx context.Context, id uint) (io.WriteCloser, error) {
	var entry Entry
	err := i.db.WithContext(ctx).Where("id = ? AND is_pending = ?", id, true).First(&entry).Error
	if err != nil {
		return nil, i.lookupError(err)
	}
	return i.volume.Create(ctx, entry.Key())
}

// Publish records the final size of a pending entry and makes it visible.
func (i *Index) Publish(ctx context.Context, id uint, size int64) error {
	result := i.db.WithContext(ctx).Model(&Entry{}).
		Where("id = ? AND is_pending = ?", id, true).
		Updates(map[string]any{
			"size":       size,
			"is_pending": false,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to publish entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrEntryNotFound
	}
	return nil
}

// Remove deletes an entry and its bytes whether pending or not.
func (i *Index) Remove(ctx context.Context, id uint) error {
	var entry Entry
	if err := i.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find entry: %w", err)
	}
	return i.remove(ctx, &entry)
}

func (i *Index) remove(ctx context.Context, entry *Entry) error {
	if err := i.volume.Remove(ctx, entry.Key()); err != nil {
		return fmt.Errorf("failed to remove '%s' from volume: %w", entry.Key(), err)
	}
	if err := i.db.WithContext(ctx).Delete(&Entry{}, entry.ID).Error; err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	i.log.Debug("Removed entry %d '%s'", entry.ID, entry.Key())
	return nil
}

// Find returns the committed entry at relativePath with displayName.
func (i *Index) Find(ctx context.Context, relativePath, displayName string) (*Entry, error) {
	var entry Entry
	err := i.db.WithContext(ctx).
		Where("relative_path = ? AND display_name = ? AND is_pending = ?", path.Clean(relativePath), displayName, false).
		First(&entry).Error
	if err != nil {
		return nil, i.lookupError(err)
	}
	return &entry, nil
}

func (i *Index) OpenReader(ctx context.Context, relativePath, displayName string) (io.ReadCloser, error) {
	entry, err := i.Find(ctx, relativePath, displayName)
	if err != nil {
		return nil, err
	}
	return i.volume.Open(ctx, entry.Key())
}

// DeleteByDisplayName removes the committed entry matching displayName.
// It reports false when no such entry exists.
func (i *Index) DeleteByDisplayName(ctx context.Context, relativePath, displayName string) (bool, error) {
	entry, err := i.Find(ctx, relativePath, displayName)
	if errors.Is(err, storage.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := i.remove(ctx, entry); err != nil {
		return false, err
	}
	return true, nil
}

// SumSize adds up the size of all committed entries at or below prefix.
func (i *Index) SumSize(ctx context.Context, prefix string) (int64, error) {
	prefix = path.Clean(prefix)

	var total int64
	err := i.db.WithContext(ctx).Model(&Entry{}).
		Select("COALESCE(SUM(size), 0)").
		Where("is_pending = ? AND (relative_path = ? OR relative_path LIKE ?)", false, prefix, prefix+"/%").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum entries: %w", err)
	}
	return total, nil
}

// Ping checks that both the database and the volume are reachable.
func (i *Index) Ping(ctx context.Context) error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("index database unreachable: %w", err)
	}
	if err := i.volume.Ping(ctx); err != nil {
		return fmt.Errorf("index volume unreachable: %w", err)
	}
	return nil
}

func (i *Index) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (i *Index) lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrEntryNotFound
	}
	return fmt.Errorf("failed to find entry: %w", err)
}
