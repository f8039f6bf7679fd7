package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// FileType classifies an attachment for presentation
type FileType string

const (
	FileTypeImage FileType = "IMAGE"
	FileTypeText  FileType = "TEXT"
	FileTypeOther FileType = "OTHER"
)

// FileTypeForMime derives the attachment class from a MIME type.
func FileTypeForMime(mimeType string) FileType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return FileTypeImage
	case strings.HasPrefix(mimeType, "text/"):
		return FileTypeText
	default:
		return FileTypeOther
	}
}

// ItemFile represents metadata of a physical attachment owned by one item.
// The bytes behind FilePath belong to the storage backend.
type ItemFile struct {
	ID     uint `gorm:"primaryKey"`
	ItemID uint `gorm:"not null;index"`

	// File metadata
	FilePath string   `gorm:"type:text;not null"`
	FileName string   `gorm:"type:text;not null"`
	FileType FileType `gorm:"type:text;not null;index"`
	FileSize int64    `gorm:"not null;default:0"`
	MimeType string   `gorm:"type:text;not null"`

	CreatedAt time.Time
}

func (ItemFile) TableName() string {
	return "files"
}

func (f *ItemFile) BeforeCreate(tx *gorm.DB) error {
	f.CreatedAt = f.CreatedAt.UTC()
	return nil
}

// Valid reports whether all required columns are present.
func (f *ItemFile) Valid() bool {
	return f.FilePath != "" && f.FileName != "" && f.MimeType != "" && f.FileType != ""
}
