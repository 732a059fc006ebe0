package imageedit

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Request is one outbound edit: an image payload, its media type and the
// instruction. It is immutable once built.
type Request struct {
	payload     string
	mediaType   string
	instruction string
}

// BuildRequest pairs an acquired image with an instruction. It does no I/O.
func BuildRequest(img *NormalizedImage, instruction string) (Request, error) {
	if img == nil || img.Payload == "" {
		return Request{}, invalidInput(ErrNoImage, "")
	}
	if err := ValidateInstruction(instruction); err != nil {
		return Request{}, err
	}
	return Request{
		payload:     img.Payload,
		mediaType:   img.MediaType,
		instruction: strings.TrimSpace(instruction),
	}, nil
}

// Payload is the base64-encoded image.
func (r Request) Payload() string { return r.payload }

// MediaType is the image's content kind.
func (r Request) MediaType() string { return r.mediaType }

// Instruction is the trimmed edit instruction.
func (r Request) Instruction() string { return r.instruction }

// InputImage decodes the payload into the form ImageEditor implementations take.
func (r Request) InputImage() (InputImage, error) {
	data, err := base64.StdEncoding.DecodeString(r.payload)
	if err != nil {
		return InputImage{}, fmt.Errorf("invalid image payload: %w", err)
	}
	return InputImage{Data: data, MIMEType: r.mediaType}, nil
}
