package imageedit

import "encoding/base64"

// Outcome is the classified result of one edit request. It is exactly one of
// ImageProduced, TextOnly or Failure; the unexported method keeps the set closed.
type Outcome interface {
	outcome()

	// Variant names the variant, for logs and metrics.
	Variant() string
}

// DisplayableImage is an edited image ready to render or export.
type DisplayableImage struct {
	Data     []byte
	MIMEType string
}

// DataURL encodes the image as a data: URL that a browser can render directly.
func (d DisplayableImage) DataURL() string {
	return "data:" + d.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// ImageProduced means the model returned an image.
type ImageProduced struct {
	Image DisplayableImage

	// Text is any commentary that accompanied the image.
	Text string
}

// TextOnly means the model answered with text but no image, typically a
// refusal or a clarification request.
type TextOnly struct {
	Message string
}

// FailureKind distinguishes why an edit produced no usable result.
type FailureKind string

const (
	// FailureClassification: the call succeeded but carried neither image nor text.
	FailureClassification FailureKind = "classification"

	// FailureRemote: transport error or an error reported by the backend.
	FailureRemote FailureKind = "remote"

	// FailureInvalidInput: the request was refused locally before any remote call.
	FailureInvalidInput FailureKind = "invalid_input"

	// FailureInternal: an unexpected fault inside this process.
	FailureInternal FailureKind = "internal"
)

// Failure means no image was produced. Reason is user-visible.
type Failure struct {
	Reason string
	Kind   FailureKind
}

func (ImageProduced) outcome() {}
func (TextOnly) outcome()      {}
func (Failure) outcome()       {}

func (ImageProduced) Variant() string { return "image" }
func (TextOnly) Variant() string      { return "text" }

func (f Failure) Variant() string {
	return "failure_" + string(f.Kind)
}
