package domain

import (
	"strings"
	"time"
)

type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

const (
	ContentTypeJPEG  = "image/jpeg"
	ContentTypeWebM  = "video/webm"
	ContentTypeMJPEG = "video/x-motion-jpeg"
)

// CapturedMedia is a photo or clip pending the user's decision. Exactly one of
// Data or URI is set; URI may be a data: URI produced by a file picker.
type CapturedMedia struct {
	Kind        MediaKind
	ContentType string
	Data        []byte
	URI         string
	// Duration is set for clips recorded through the capture adapter.
	Duration time.Duration
}

// KindForContentType mirrors the picker rule: images are photos, anything
// else is treated as video.
func KindForContentType(contentType string) MediaKind {
	if strings.HasPrefix(contentType, "image/") {
		return MediaPhoto
	}
	return MediaVideo
}

// Extension returns the file extension used for storage keys.
func Extension(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	case ContentTypeMJPEG:
		return ".mjpeg"
	default:
		return ".bin"
	}
}
