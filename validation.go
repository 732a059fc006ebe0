package imageedit

import (
	"errors"
	"mime"
	"strings"
)

// Validation errors
var (
	ErrNotAnImage       = errors.New("not an image")
	ErrEmptyInstruction = errors.New("instruction cannot be empty")
	ErrNoImage          = errors.New("no image selected")
	ErrEmptyImageData   = errors.New("image data cannot be empty")
	ErrInvalidMIMEType  = errors.New("invalid or unsupported MIME type")
	ErrImageTooLarge    = errors.New("image data exceeds maximum size")
)

// MaxImageSize is the maximum allowed image size in bytes (20MB)
const MaxImageSize = 20 * 1024 * 1024

// ValidMIMETypes contains the image MIME types the Gemini models accept inline.
var ValidMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/heic": true,
	"image/heif": true,
}

// NormalizeMediaType lowercases a declared content kind and strips parameters.
// It returns "" when the value cannot be parsed.
func NormalizeMediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// IsImageMediaType reports whether a declared content kind identifies an image.
func IsImageMediaType(contentType string) bool {
	return strings.HasPrefix(NormalizeMediaType(contentType), "image/")
}

// ValidateInstruction rejects empty and whitespace-only instructions.
func ValidateInstruction(instruction string) error {
	if strings.TrimSpace(instruction) == "" {
		return invalidInput(ErrEmptyInstruction, "")
	}
	return nil
}

// ValidateInputImage validates an image before it is sent to a provider.
// Every failure matches ErrInvalidInput.
func ValidateInputImage(img InputImage) error {
	if len(img.Data) == 0 && img.URI == "" {
		return invalidInput(ErrEmptyImageData, "")
	}

	if len(img.Data) > 0 {
		if len(img.Data) > MaxImageSize {
			return invalidInput(ErrImageTooLarge, "%v: %d bytes (max %d)", ErrImageTooLarge, len(img.Data), MaxImageSize)
		}

		if img.MIMEType == "" {
			return invalidInput(ErrInvalidMIMEType, "%v: MIME type is required", ErrInvalidMIMEType)
		}

		if !ValidMIMETypes[NormalizeMediaType(img.MIMEType)] {
			return invalidInput(ErrInvalidMIMEType, "%v: %s", ErrInvalidMIMEType, img.MIMEType)
		}
	}

	return nil
}
