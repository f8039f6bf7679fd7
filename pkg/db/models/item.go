package models

import (
	"time"

	"gorm.io/gorm"
)

// Item represents a user-created note or record that tags and files attach to
type Item struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"type:text"`
	Description string `gorm:"type:text;not null"`

	// Timestamps
	CreatedAt  time.Time  `gorm:"index"`
	UpdatedAt  time.Time
	LastViewed *time.Time `gorm:"index"`

	// Relationships
	Files []ItemFile `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	Tags  []Tag      `gorm:"many2many:item_tags;joinForeignKey:ItemID;joinReferences:TagID"`
}

func (Item) TableName() string {
	return "items"
}

// BeforeCreate stores caller supplied timestamps in UTC. SQLite keeps them
// as text, so mixed zones would break ordering by created_at.
func (i *Item) BeforeCreate(tx *gorm.DB) error {
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	if i.LastViewed != nil {
		viewed := i.LastViewed.UTC()
		i.LastViewed = &viewed
	}
	return nil
}

// Viewed reports whether the item was ever opened.
func (i *Item) Viewed() bool {
	return i.LastViewed != nil
}
