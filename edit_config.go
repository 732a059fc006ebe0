package imageedit

import (
	"fmt"
	"time"
)

// Model represents a specific image editing model.
type Model string

// ImageSize represents the output resolution for edited images.
type ImageSize string

const (
	ImageSize1K ImageSize = "1K"
	ImageSize2K ImageSize = "2K"
	ImageSize4K ImageSize = "4K"
)

// AspectRatio represents the aspect ratio for edited images.
type AspectRatio string

const (
	AspectRatio1x1  AspectRatio = "1:1"
	AspectRatio16x9 AspectRatio = "16:9"
	AspectRatio9x16 AspectRatio = "9:16"
	AspectRatio4x3  AspectRatio = "4:3"
	AspectRatio3x4  AspectRatio = "3:4"
	AspectRatio2x3  AspectRatio = "2:3"  // Photo portrait
	AspectRatio3x2  AspectRatio = "3:2"  // Photo landscape (35mm film ratio)
	AspectRatio4x5  AspectRatio = "4:5"  // Instagram portrait
	AspectRatio5x4  AspectRatio = "5:4"  // Large format photo
	AspectRatio21x9 AspectRatio = "21:9" // Ultrawide/cinematic
	AspectRatioAuto AspectRatio = ""
)

var knownSizes = map[ImageSize]bool{
	ImageSize1K: true,
	ImageSize2K: true,
	ImageSize4K: true,
}

var knownAspectRatios = map[AspectRatio]bool{
	AspectRatio1x1: true, AspectRatio16x9: true, AspectRatio9x16: true,
	AspectRatio4x3: true, AspectRatio3x4: true, AspectRatio2x3: true,
	AspectRatio3x2: true, AspectRatio4x5: true, AspectRatio5x4: true,
	AspectRatio21x9: true, AspectRatioAuto: true,
}

// ParseImageSize validates an output size name. An empty string means "model default".
func ParseImageSize(s string) (ImageSize, error) {
	if s == "" {
		return "", nil
	}
	size := ImageSize(s)
	if !knownSizes[size] {
		return "", fmt.Errorf("unknown image size %q", s)
	}
	return size, nil
}

// ParseAspectRatio validates an aspect ratio name. An empty string means "keep the input's".
func ParseAspectRatio(s string) (AspectRatio, error) {
	if s == "" {
		return "", nil
	}
	ratio := AspectRatio(s)
	if !knownAspectRatios[ratio] {
		return "", fmt.Errorf("unknown aspect ratio %q", s)
	}
	return ratio, nil
}

// EditConfig holds configuration options for an edit request.
type EditConfig struct {
	// Model to use for editing (if empty, uses manager's default)
	Model Model

	// Size of the output image (1K, 2K, 4K)
	Size ImageSize

	// AspectRatio of the output image
	AspectRatio AspectRatio

	// EnableThinking enables the model's thinking mode for complex instructions
	EnableThinking bool

	// Temperature controls randomness (0.0-2.0, default 1.0 for Gemini 3)
	Temperature *float32

	// SafetySettings for content filtering
	SafetySettings []SafetySetting

	// Metadata to attach to requests (for logging/tracking)
	Metadata map[string]string

	// WaitOnRateLimit, if true, causes the Manager to wait when rate limited.
	// If false, a RateLimitError is returned immediately.
	WaitOnRateLimit bool

	// MaxWaitDuration is the maximum time to wait when WaitOnRateLimit is true.
	// Zero means no limit.
	MaxWaitDuration time.Duration
}

// WithModel returns a copy of the config with the specified model.
func (c *EditConfig) WithModel(model Model) *EditConfig {
	if c == nil {
		return &EditConfig{Model: model}
	}
	cX := *c
	cX.Model = model
	return &cX
}

// DefaultConfig returns an EditConfig with sensible defaults.
func DefaultConfig() *EditConfig {
	temp := float32(1.0)
	return &EditConfig{
		Model:       ModelDefault,
		Size:        ImageSize2K,
		AspectRatio: AspectRatioAuto,
		Temperature: &temp,
	}
}

// InputImage represents an image input for editing operations.
type InputImage struct {
	// Data is the raw image bytes
	Data []byte

	// MIMEType of the image (e.g., "image/jpeg", "image/png")
	MIMEType string

	// URI is an optional URI reference (for cloud-stored images)
	URI string
}

func (s ImageSize) String() string {
	return string(s)
}

func (a AspectRatio) String() string {
	return string(a)
}

// String returns the model identifier.
func (m Model) String() string {
	return string(m)
}
