package imageedit

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage persists exported images. Implementations can wrap local disk or a
// cloud bucket; see storage/local for the file system one.
type Storage interface {
	// SaveFile saves image data under path and returns a URL for it.
	// The contentType is the image's MIME type (e.g., "image/png").
	SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error)
}

// StorageResult contains information about a saved image.
type StorageResult struct {
	// URL is where the image can be accessed
	URL string `json:"url"`

	// Path is the storage path/key where the image was saved
	Path string `json:"path"`

	// Size is the number of bytes saved
	Size int `json:"size"`
}

// ExportName returns the timestamp-derived file name an edited image is saved
// under, e.g. "edited-image-1729250000000.png".
func ExportName(mimeType string, at time.Time) string {
	return "edited-image-" + strconv.FormatInt(at.UnixMilli(), 10) + "." + extensionFromMIME(mimeType)
}

// ExportResult saves an edited image to storage under ExportName.
func ExportResult(ctx context.Context, storage Storage, img DisplayableImage, at time.Time) (StorageResult, error) {
	if storage == nil {
		return StorageResult{}, ErrStorageNotConfigured
	}
	if len(img.Data) == 0 {
		return StorageResult{}, ErrNoResult
	}

	path := ExportName(img.MIMEType, at)
	url, err := storage.SaveFile(ctx, img.Data, path, img.MIMEType)
	if err != nil {
		return StorageResult{}, err
	}

	return StorageResult{
		URL:  url,
		Path: path,
		Size: len(img.Data),
	}, nil
}

// MediaTypeFromPath guesses an image media type from a file extension.
// It returns "" for anything that is not a known image extension.
func MediaTypeFromPath(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return ""
	}
}

// extensionFromMIME returns a file extension for common image MIME types.
func extensionFromMIME(mime string) string {
	switch NormalizeMediaType(mime) {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
