package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Tag represents a uniquely named label that can be attached to many items
type Tag struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"type:text;not null;uniqueIndex"`
	Color string `gorm:"type:text"`

	CreatedAt time.Time
}

func (Tag) TableName() string {
	return "tags"
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	t.CreatedAt = t.CreatedAt.UTC()
	return nil
}

// Valid reports whether the tag carries a usable name.
func (t *Tag) Valid() bool {
	return strings.TrimSpace(t.Name) != ""
}
