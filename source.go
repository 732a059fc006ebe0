package imageedit

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"

	// Decoders for the dimension probe and transcoding.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// RawFile is a user-supplied file: its bytes plus the content kind the
// picker or upload declared for it.
type RawFile struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// NormalizedImage is the in-memory form of an acquired image. Payload and
// Display describe the same bytes.
type NormalizedImage struct {
	// Payload is the image encoded as standard base64.
	Payload string

	// MediaType is the declared content kind, normalized (e.g. "image/jpeg").
	MediaType string

	// Display resolves to the original bytes until released.
	Display *DisplayHandle

	// Name is the original file name, if any.
	Name string

	// Size is the number of source bytes.
	Size int

	// Width and Height are zero when the format could not be read.
	Width  int
	Height int
}

// ImageSource turns raw files into NormalizedImages. It keeps no state of
// its own beyond the registry it issues display handles from.
type ImageSource struct {
	registry *DisplayRegistry
	maxSize  int
	accepted map[string]bool
	logger   *slog.Logger
}

// SourceOption configures an ImageSource.
type SourceOption func(*ImageSource)

// WithAcceptedTypes sets the media types passed through unchanged. Other
// image kinds are converted to PNG when they can be decoded and rejected
// otherwise. The default is ValidMIMETypes.
func WithAcceptedTypes(mediaTypes ...string) SourceOption {
	return func(s *ImageSource) {
		s.accepted = make(map[string]bool, len(mediaTypes))
		for _, mt := range mediaTypes {
			s.accepted[NormalizeMediaType(mt)] = true
		}
	}
}

// NewImageSource creates a source issuing handles from registry.
func NewImageSource(registry *DisplayRegistry, logger *slog.Logger, opts ...SourceOption) *ImageSource {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ImageSource{
		registry: registry,
		maxSize:  MaxImageSize,
		accepted: ValidMIMETypes,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry display handles are issued from.
func (s *ImageSource) Registry() *DisplayRegistry {
	return s.registry
}

type readResult struct {
	data []byte
	err  error
}

// Acquire validates and reads f. A file whose declared kind is not an image
// fails with an InvalidInputError before any byte is read. Image kinds the
// source does not accept are converted to PNG, or rejected as invalid input
// when they cannot be decoded.
func (s *ImageSource) Acquire(ctx context.Context, f RawFile) (*NormalizedImage, error) {
	mediaType := NormalizeMediaType(f.ContentType)
	if !IsImageMediaType(mediaType) {
		return nil, invalidInput(ErrNotAnImage, "")
	}
	if f.Reader == nil {
		return nil, invalidInput(ErrEmptyImageData, "")
	}

	done := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(f.Reader, int64(s.maxSize)+1))
		done <- readResult{data: data, err: err}
	}()

	var data []byte
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name, res.err)
		}
		data = res.data
	}

	if len(data) == 0 {
		return nil, invalidInput(ErrEmptyImageData, "")
	}
	if len(data) > s.maxSize {
		return nil, invalidInput(ErrImageTooLarge, "image is larger than %d MB", s.maxSize/(1024*1024))
	}

	name := f.Name
	if !s.accepted[mediaType] {
		converted, err := transcodePNG(data)
		if err != nil {
			s.logger.Info("unsupported image kind", "name", name, "media_type", mediaType, "error", err.Error())
			return nil, invalidInput(ErrInvalidMIMEType, "unsupported image type %s", mediaType)
		}
		if len(converted) > s.maxSize {
			return nil, invalidInput(ErrImageTooLarge, "image is larger than %d MB once converted to PNG", s.maxSize/(1024*1024))
		}
		s.logger.Debug("image converted to png", "name", name, "from", mediaType, "bytes", len(converted))
		data, mediaType = converted, "image/png"
	}

	img := &NormalizedImage{
		Payload:   base64.StdEncoding.EncodeToString(data),
		MediaType: mediaType,
		Display:   s.registry.Register(data, mediaType),
		Name:      name,
		Size:      len(data),
	}

	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width, img.Height = cfg.Width, cfg.Height
		s.logger.Debug("image acquired",
			"name", name,
			"media_type", mediaType,
			"format", format,
			"width", cfg.Width,
			"height", cfg.Height,
			"bytes", len(data),
		)
	} else {
		s.logger.Debug("image acquired without dimensions",
			"name", name,
			"media_type", mediaType,
			"bytes", len(data),
			"error", err.Error(),
		)
	}

	return img, nil
}

// transcodePNG re-encodes any registered image format as PNG.
func transcodePNG(data []byte) ([]byte, error) {
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
