package storage

import (
	"mime"
	"strings"

	"github.com/google/uuid"
)

const (
	CategoryImages    = "images"
	CategoryTexts     = "texts"
	CategoryVideos    = "videos"
	CategoryDocuments = "documents"
	CategoryOthers    = "others"

	// FallbackExtension is used when a MIME type has no known extension.
	FallbackExtension = "dat"
)

// Categories lists every category directory below a storage root.
var Categories = []string{
	CategoryImages,
	CategoryTexts,
	CategoryVideos,
	CategoryDocuments,
	CategoryOthers,
}

// preferredExtensions pins the extension for common types where the
// system MIME table lists several candidates.
var preferredExtensions = map[string]string{
	"image/jpeg":       "jpg",
	"image/png":        "png",
	"image/gif":        "gif",
	"image/webp":       "webp",
	"image/heic":       "heic",
	"image/heif":       "heif",
	"image/bmp":        "bmp",
	"image/svg+xml":    "svg",
	"text/plain":       "txt",
	"text/markdown":    "md",
	"text/html":        "html",
	"text/csv":         "csv",
	"video/mp4":        "mp4",
	"video/3gpp":       "3gp",
	"video/webm":       "webm",
	"video/quicktime":  "mov",
	"audio/mpeg":       "mp3",
	"application/pdf":  "pdf",
	"application/json": "json",
	"application/zip":  "zip",

	"application/msword":            "doc",
	"application/vnd.ms-excel":      "xls",
	"application/vnd.ms-powerpoint": "ppt",

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
}

func normalizeMime(mimeType string) string {
	if media, _, err := mime.ParseMediaType(mimeType); err == nil {
		return media
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// CategoryFor maps a MIME type onto its category directory.
func CategoryFor(mimeType string) string {
	m := normalizeMime(mimeType)

	switch {
	case strings.HasPrefix(m, "image/"):
		return CategoryImages
	case m == "text/plain":
		return CategoryTexts
	case strings.HasPrefix(m, "video/"):
		return CategoryVideos
	case m == "application/pdf",
		strings.HasPrefix(m, "application/msword"),
		strings.HasPrefix(m, "application/vnd.ms-excel"),
		strings.HasPrefix(m, "application/vnd.openxmlformats"):
		return CategoryDocuments
	default:
		return CategoryOthers
	}
}

// ExtensionFor derives a file extension without the leading dot.
func ExtensionFor(mimeType string) string {
	m := normalizeMime(mimeType)

	if ext, ok := preferredExtensions[m]; ok {
		return ext
	}

	if exts, err := mime.ExtensionsByType(m); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}

	return FallbackExtension
}

// NewFileName returns a random file name for mimeType. Names are never
// checked against existing files.
func NewFileName(mimeType string) string {
	return uuid.NewString() + "." + ExtensionFor(mimeType)
}
