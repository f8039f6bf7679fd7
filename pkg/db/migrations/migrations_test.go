package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "migrations.db")
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

func TestMigrate_CreatesSchema(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m := NewMigrator(db)
	require.NoError(t, m.Migrate(ctx))

	for _, table := range []string{"items", "tags", "files", "item_tags"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}

	for _, index := range []string{
		"idx_items_created_at",
		"idx_items_last_viewed",
		"idx_files_item_id",
		"idx_files_file_type",
		"idx_item_tags_item_id",
		"idx_item_tags_tag_id",
	} {
		var count int64
		require.NoError(t, db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", index).Scan(&count).Error)
		assert.Equal(t, int64(1), count, "missing index %s", index)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m := NewMigrator(db)
	require.NoError(t, m.Migrate(ctx))
	require.NoError(t, m.Migrate(ctx))

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)
}

func TestRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m := NewMigrator(db)
	require.NoError(t, m.Migrate(ctx))
	require.NoError(t, m.Rollback(ctx))

	assert.False(t, db.Migrator().HasTable("items"))

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, statuses[0].Applied)

	assert.Error(t, m.Rollback(ctx))
}

func TestStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	statuses, err := NewMigrator(db).Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, 1, statuses[0].Version)
	assert.False(t, statuses[0].Applied)
}
