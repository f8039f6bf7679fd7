package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          func(*gorm.DB) error
	Down        func(*gorm.DB) error
}

// migrationHistory tracks applied migrations
type migrationHistory struct {
	ID          uint   `gorm:"primaryKey"`
	Version     int    `gorm:"uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	AppliedAt   int64  `gorm:"autoCreateTime"`
}

// Migrator handles database migrations
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: allMigrations(),
	}
}

// Migrate runs all pending migrations
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&migrationHistory{}); err != nil {
		return fmt.Errorf("failed to create migration history table: %w", err)
	}

	appliedVersions, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if appliedVersions[migration.Version] {
			continue
		}

		if err := m.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}
	}

	return nil
}

// Rollback rolls back the last applied migration
func (m *Migrator) Rollback(ctx context.Context) error {
	var last migrationHistory
	if err := m.db.WithContext(ctx).Order("version DESC").First(&last).Error; err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last.Version {
			migration = &m.migrations[i]
			break
		}
	}

	if migration == nil {
		return fmt.Errorf("migration %d not found", last.Version)
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := migration.Down(tx); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}

		if err := tx.Delete(&last).Error; err != nil {
			return fmt.Errorf("failed to update migration history: %w", err)
		}
		return nil
	})
}

// Status returns migration status
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&migrationHistory{}); err != nil {
		return nil, fmt.Errorf("failed to create migration history table: %w", err)
	}

	appliedVersions, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var statuses []MigrationStatus
	for _, migration := range m.migrations {
		statuses = append(statuses, MigrationStatus{
			Version:     migration.Version,
			Description: migration.Description,
			Applied:     appliedVersions[migration.Version],
		})
	}

	return statuses, nil
}

// MigrationStatus represents the status of a migration
type MigrationStatus struct {
	Version     int
	Description string
	Applied     bool
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int]bool, error) {
	var applied []migrationHistory
	if err := m.db.WithContext(ctx).Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}

	versions := make(map[int]bool, len(applied))
	for _, a := range applied {
		versions[a.Version] = true
	}
	return versions, nil
}

func (m *Migrator) runMigration(ctx context.Context, migration Migration) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := migration.Up(tx); err != nil {
			return err
		}

		history := migrationHistory{
			Version:     migration.Version,
			Description: migration.Description,
		}
		return tx.Create(&history).Error
	})
}

func execAll(db *gorm.DB, statements []string) error {
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// allMigrations returns all migrations in order
func allMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Initial schema creation",
			Up: func(db *gorm.DB) error {
				return execAll(db, initialSchema)
			},
			Down: func(db *gorm.DB) error {
				return execAll(db, []string{
					"DROP TABLE IF EXISTS item_tags",
					"DROP TABLE IF EXISTS files",
					"DROP TABLE IF EXISTS tags",
					"DROP TABLE IF EXISTS items",
				})
			},
		},
	}
}

// The cascades live in the schema so that deletes issued by any caller
// keep files and item_tags consistent with their parents.
var initialSchema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		title       TEXT,
		description TEXT NOT NULL DEFAULT '',
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL,
		last_viewed DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_created_at ON items (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_items_last_viewed ON items (last_viewed)`,

	`CREATE TABLE IF NOT EXISTS tags (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL CHECK (name <> ''),
		color      TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_name ON tags (name)`,

	`CREATE TABLE IF NOT EXISTS files (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id    INTEGER NOT NULL REFERENCES items (id) ON DELETE CASCADE,
		file_path  TEXT NOT NULL CHECK (file_path <> ''),
		file_name  TEXT NOT NULL CHECK (file_name <> ''),
		file_type  TEXT NOT NULL CHECK (file_type IN ('IMAGE', 'TEXT', 'OTHER')),
		file_size  INTEGER NOT NULL DEFAULT 0,
		mime_type  TEXT NOT NULL CHECK (mime_type <> ''),
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_item_id ON files (item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_files_file_type ON files (file_type)`,

	`CREATE TABLE IF NOT EXISTS item_tags (
		item_id INTEGER NOT NULL REFERENCES items (id) ON DELETE CASCADE,
		tag_id  INTEGER NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
		PRIMARY KEY (item_id, tag_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_item_tags_item_id ON item_tags (item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_item_tags_tag_id ON item_tags (tag_id)`,
}
