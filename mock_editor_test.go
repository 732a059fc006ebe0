package imageedit

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// MockImageEditor is a mock implementation of ImageEditor.
type MockImageEditor struct {
	EditFunc   func(ctx context.Context, image InputImage, instruction string, config *EditConfig) (*EditResult, error)
	ModelsFunc func() []ModelInfo
	CloseFunc  func() error
}

func (m *MockImageEditor) Edit(ctx context.Context, image InputImage, instruction string, config *EditConfig) (*EditResult, error) {
	if m.EditFunc != nil {
		return m.EditFunc(ctx, image, instruction, config)
	}
	return &EditResult{}, nil
}

func (m *MockImageEditor) Models() []ModelInfo {
	if m.ModelsFunc != nil {
		return m.ModelsFunc()
	}
	return []ModelInfo{}
}

func (m *MockImageEditor) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, req Request) Outcome

func (f SubmitterFunc) Submit(ctx context.Context, req Request) Outcome {
	return f(ctx, req)
}

// recordingObserver captures session events.
type recordingObserver struct {
	mu          sync.Mutex
	transitions [][2]State
	outcomes    []Outcome
	stale       []bool
}

func (o *recordingObserver) StateChanged(from, to State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, [2]State{from, to})
}

func (o *recordingObserver) OutcomeReceived(outcome Outcome, _ time.Duration, stale bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
	o.stale = append(o.stale, stale)
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 80), B: 200, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func bmpBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testImage()))
	return buf.Bytes()
}

func tiffBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func rawFile(name, contentType string, data []byte) RawFile {
	return RawFile{Name: name, ContentType: contentType, Reader: bytes.NewReader(data)}
}

func textFile() RawFile {
	return RawFile{Name: "notes.txt", ContentType: "text/plain", Reader: strings.NewReader("hello")}
}
