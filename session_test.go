package imageedit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(editor ImageEditor, opts ...SessionOption) *Session {
	client := NewClient(editor, WithClientLogger(nopLogger()))
	opts = append([]SessionOption{WithSessionLogger(nopLogger())}, opts...)
	return NewSession(newTestSource(), client, opts...)
}

func editorReturning(result *EditResult, err error) *MockImageEditor {
	return &MockImageEditor{
		EditFunc: func(context.Context, InputImage, string, *EditConfig) (*EditResult, error) {
			return result, err
		},
	}
}

func TestSession_ImageProduced(t *testing.T) {
	artifact := []byte("black and white")
	var gotImage InputImage
	editor := &MockImageEditor{
		EditFunc: func(_ context.Context, img InputImage, _ string, _ *EditConfig) (*EditResult, error) {
			gotImage = img
			return &EditResult{Images: []GeneratedImage{{Data: artifact, MIMEType: "image/png"}}}, nil
		},
	}
	s := newTestSession(editor)

	jpeg := jpegBytes(t)
	require.NoError(t, s.AcquireImage(context.Background(), rawFile("photo.jpg", "image/jpeg", jpeg)))
	s.SetInstruction("Convert to black and white")

	snap, started := s.Generate(context.Background())
	require.True(t, started)

	assert.Equal(t, StateSuccess, snap.State)
	assert.Equal(t, DisplayOriginalAndResult, snap.Display)
	assert.Empty(t, snap.Error)
	assert.Equal(t, jpeg, gotImage.Data)
	assert.Equal(t, "image/jpeg", gotImage.MIMEType)

	result, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, artifact, result.Data)

	original, ok := s.Original()
	require.True(t, ok)
	assert.Equal(t, jpeg, original.Data)
}

func TestSession_ErrorOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		result  *EditResult
		err     error
		wantMsg string
	}{
		{name: "text only", result: &EditResult{Text: "I cannot do that"}, wantMsg: "I cannot do that"},
		{name: "transport fault", err: errors.New("timeout"), wantMsg: "timeout"},
		{name: "empty response", result: &EditResult{}, wantMsg: msgNoImageOrText},
		{name: "blank error", err: errors.New(" "), wantMsg: msgGenericFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(editorReturning(tt.result, tt.err))
			require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
			s.SetInstruction("test")

			snap, started := s.Generate(context.Background())
			require.True(t, started)

			assert.Equal(t, StateError, snap.State)
			assert.Equal(t, tt.wantMsg, snap.Error)
			assert.False(t, snap.HasResult)
			assert.Equal(t, DisplayOriginal, snap.Display)

			_, ok := s.Result()
			assert.False(t, ok)
		})
	}
}

func TestSession_AcquireRejectsNonImage(t *testing.T) {
	s := newTestSession(&MockImageEditor{})

	err := s.AcquireImage(context.Background(), textFile())
	assert.ErrorIs(t, err, ErrInvalidInput)

	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.HasImage)
	assert.Equal(t, DisplayNone, snap.Display)

	// A rejected file leaves an existing image and result untouched.
	s = newTestSession(editorReturning(&EditResult{Images: []GeneratedImage{{Data: []byte{1}}}}, nil))
	require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
	s.SetInstruction("sharpen")
	before, _ := s.Generate(context.Background())
	require.Equal(t, StateSuccess, before.State)

	require.ErrorIs(t, s.AcquireImage(context.Background(), textFile()), ErrNotAnImage)
	assert.Equal(t, before, s.Snapshot())
}

func TestSession_AcquireReplacesImage(t *testing.T) {
	s := newTestSession(editorReturning(&EditResult{Text: "no"}, nil))
	registry := s.source.Registry()

	require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
	first := s.Snapshot().DisplayID
	s.SetInstruction("x")
	snap, _ := s.Generate(context.Background())
	require.Equal(t, StateError, snap.State)

	require.NoError(t, s.AcquireImage(context.Background(), rawFile("b.jpg", "image/jpeg", jpegBytes(t))))

	snap = s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Error)
	assert.Equal(t, "b.jpg", snap.ImageName)
	assert.Equal(t, "x", snap.Instruction, "instruction survives a new image")
	assert.NotEqual(t, first, snap.DisplayID)

	_, _, ok := registry.Resolve(first)
	assert.False(t, ok, "previous handle is released")
	assert.Equal(t, 1, registry.Len())
}

func TestSession_GenerateNoOp(t *testing.T) {
	calls := 0
	editor := &MockImageEditor{
		EditFunc: func(context.Context, InputImage, string, *EditConfig) (*EditResult, error) {
			calls++
			return &EditResult{Text: "nope"}, nil
		},
	}
	s := newTestSession(editor)

	_, started := s.Generate(context.Background())
	assert.False(t, started, "no image")

	require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
	s.SetInstruction("go")
	failed, started := s.Generate(context.Background())
	require.True(t, started)
	require.Equal(t, StateError, failed.State)

	for _, instruction := range []string{"", "   ", "\n\t"} {
		s.SetInstruction(instruction)
		snap, started := s.Generate(context.Background())
		assert.False(t, started)
		assert.Equal(t, StateError, snap.State)
		assert.Equal(t, "nope", snap.Error)
		assert.False(t, snap.CanGenerate())
	}
	assert.Equal(t, 1, calls)
}

func TestSession_Reset(t *testing.T) {
	states := map[string]func(t *testing.T, s *Session){
		"idle without image": func(*testing.T, *Session) {},
		"idle with image": func(t *testing.T, s *Session) {
			require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
			s.SetInstruction("x")
		},
		"success": func(t *testing.T, s *Session) {
			require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
			s.SetInstruction("ok")
			snap, _ := s.Generate(context.Background())
			require.Equal(t, StateSuccess, snap.State)
		},
		"error": func(t *testing.T, s *Session) {
			require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
			s.SetInstruction("fail")
			snap, _ := s.Generate(context.Background())
			require.Equal(t, StateError, snap.State)
		},
	}

	editor := &MockImageEditor{
		EditFunc: func(_ context.Context, _ InputImage, instruction string, _ *EditConfig) (*EditResult, error) {
			if instruction == "fail" {
				return nil, errors.New("backend down")
			}
			return &EditResult{Images: []GeneratedImage{{Data: []byte{1}, MIMEType: "image/png"}}}, nil
		},
	}

	for name, setup := range states {
		t.Run(name, func(t *testing.T) {
			s := newTestSession(editor)
			setup(t, s)

			s.Reset()
			s.Reset()

			snap := s.Snapshot()
			assert.Equal(t, StateIdle, snap.State)
			assert.False(t, snap.HasImage)
			assert.False(t, snap.HasResult)
			assert.Empty(t, snap.Error)
			assert.Empty(t, snap.Instruction)
			assert.Equal(t, DisplayNone, snap.Display)
			assert.Zero(t, s.source.Registry().Len())
		})
	}
}

// blockedEditor holds every Edit call until release is closed.
type blockedEditor struct {
	MockImageEditor
	started chan struct{}
	release chan struct{}
	result  *EditResult
}

func newBlockedEditor(result *EditResult) *blockedEditor {
	e := &blockedEditor{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		result:  result,
	}
	e.EditFunc = func(context.Context, InputImage, string, *EditConfig) (*EditResult, error) {
		e.started <- struct{}{}
		<-e.release
		return e.result, nil
	}
	return e
}

func TestSession_ResetDiscardsLateResponse(t *testing.T) {
	editor := newBlockedEditor(&EditResult{Images: []GeneratedImage{{Data: []byte{1}, MIMEType: "image/png"}}})
	observer := &recordingObserver{}
	s := newTestSession(editor, WithObserver(observer))

	require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
	s.SetInstruction("make it pop")

	done := make(chan Snapshot, 1)
	go func() {
		snap, _ := s.Generate(context.Background())
		done <- snap
	}()

	<-editor.started
	assert.Equal(t, StateLoading, s.Snapshot().State)

	s.Reset()
	close(editor.release)

	var snap Snapshot
	select {
	case snap = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("generate did not return")
	}

	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.HasImage)
	assert.False(t, snap.HasResult)
	assert.Equal(t, StateIdle, s.Snapshot().State)

	observer.mu.Lock()
	defer observer.mu.Unlock()
	require.Len(t, observer.stale, 1)
	assert.True(t, observer.stale[0])
	assert.Equal(t, [][2]State{{StateIdle, StateLoading}, {StateLoading, StateIdle}}, observer.transitions)
}

func TestSession_SingleRequestInFlight(t *testing.T) {
	editor := newBlockedEditor(&EditResult{Text: "done"})
	s := newTestSession(editor)

	require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
	s.SetInstruction("go")

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Generate(context.Background())
	}()
	<-editor.started

	snap, started := s.Generate(context.Background())
	assert.False(t, started)
	assert.Equal(t, StateLoading, snap.State)
	assert.False(t, snap.CanGenerate())

	err := s.AcquireImage(context.Background(), rawFile("b.png", "image/png", pngBytes(t)))
	assert.ErrorIs(t, err, ErrSessionBusy)

	// Reset does not lift the guard until the orphaned call returns.
	s.Reset()
	assert.ErrorIs(t, s.AcquireImage(context.Background(), rawFile("b.png", "image/png", pngBytes(t))), ErrSessionBusy)

	close(editor.release)
	<-done

	assert.NoError(t, s.AcquireImage(context.Background(), rawFile("b.png", "image/png", pngBytes(t))))
	assert.Equal(t, StateIdle, s.Snapshot().State)
	assert.Equal(t, 1, s.source.Registry().Len())
}

func TestSession_SubmitterPanics(t *testing.T) {
	submitter := SubmitterFunc(func(context.Context, Request) Outcome {
		panic("submitter exploded")
	})
	s := NewSession(newTestSource(), submitter, WithSessionLogger(nopLogger()))

	require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
	s.SetInstruction("x")

	snap, started := s.Generate(context.Background())
	require.True(t, started)
	assert.Equal(t, StateError, snap.State)
	assert.Contains(t, snap.Error, "submitter exploded")
}

func TestSession_Observer(t *testing.T) {
	observer := &recordingObserver{}
	s := newTestSession(editorReturning(&EditResult{Images: []GeneratedImage{{Data: []byte{1}}}}, nil), WithObserver(observer))

	require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
	s.SetInstruction("x")
	s.Generate(context.Background())
	s.Reset()

	assert.Equal(t, [][2]State{
		{StateIdle, StateLoading},
		{StateLoading, StateSuccess},
		{StateSuccess, StateIdle},
	}, observer.transitions)
	require.Len(t, observer.outcomes, 1)
	assert.Equal(t, "image", observer.outcomes[0].Variant())
	assert.Equal(t, []bool{false}, observer.stale)
}

func TestSession_EmptyImageProducedIsAnError(t *testing.T) {
	submitter := SubmitterFunc(func(context.Context, Request) Outcome {
		return ImageProduced{Image: DisplayableImage{MIMEType: "image/png"}, Text: "done"}
	})
	observer := &recordingObserver{}
	s := NewSession(newTestSource(), submitter, WithSessionLogger(nopLogger()), WithObserver(observer))

	require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
	s.SetInstruction("x")

	snap, started := s.Generate(context.Background())
	require.True(t, started)
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, msgNoImageOrText, snap.Error)
	assert.False(t, snap.HasResult)
	assert.Equal(t, DisplayOriginal, snap.Display)

	_, ok := s.Result()
	assert.False(t, ok)
	assert.Equal(t, [2]State{StateLoading, StateError}, observer.transitions[len(observer.transitions)-1])
}

func TestSession_ConvertsImagesTheBackendCannotTake(t *testing.T) {
	var got InputImage
	editor := &MockImageEditor{
		ModelsFunc: testModels(RateLimits{}),
		EditFunc: func(_ context.Context, img InputImage, _ string, _ *EditConfig) (*EditResult, error) {
			got = img
			return &EditResult{Images: []GeneratedImage{{Data: []byte("out"), MIMEType: "image/png"}}}, nil
		},
	}
	manager := NewManager(editor, WithLogger(nopLogger()), WithDefaultModel("test-model"))
	s := NewSession(newTestSource(), NewClient(manager, WithClientLogger(nopLogger())), WithSessionLogger(nopLogger()))

	require.NoError(t, s.AcquireImage(context.Background(), rawFile("scan.bmp", "image/bmp", bmpBytes(t))))
	assert.Equal(t, "image/png", s.Snapshot().ImageMediaType)

	s.SetInstruction("Convert to black and white")
	snap, started := s.Generate(context.Background())
	require.True(t, started)

	assert.Equal(t, StateSuccess, snap.State, snap.Error)
	assert.Equal(t, "image/png", got.MIMEType, "the provider is reached with a kind it accepts")
}

func TestSession_UnsupportedImageKindIsInvalidInput(t *testing.T) {
	s := newTestSession(&MockImageEditor{})
	require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
	before := s.Snapshot()

	err := s.AcquireImage(context.Background(), rawFile("logo.svg", "image/svg+xml", []byte("<svg/>")))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrInvalidMIMEType)
	assert.Equal(t, before, s.Snapshot())
}

// chainObserver checks every transition starts where the previous one ended.
type chainObserver struct {
	mu     sync.Mutex
	last   State
	broken [][2]State
	count  int
}

func (o *chainObserver) StateChanged(from, to State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if from != o.last {
		o.broken = append(o.broken, [2]State{o.last, from})
	}
	o.last = to
	o.count++
}

func (o *chainObserver) OutcomeReceived(Outcome, time.Duration, bool) {}

func TestSession_TransitionsReportedInOrder(t *testing.T) {
	submitter := SubmitterFunc(func(context.Context, Request) Outcome {
		return ImageProduced{Image: DisplayableImage{Data: []byte{1}, MIMEType: "image/png"}}
	})
	observer := &chainObserver{last: StateIdle}
	s := NewSession(newTestSource(), submitter, WithSessionLogger(nopLogger()), WithObserver(observer))
	data := pngBytes(t)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				switch (w + i) % 3 {
				case 0:
					_ = s.AcquireImage(context.Background(), rawFile("a.png", "image/png", data))
					s.SetInstruction("x")
				case 1:
					s.Generate(context.Background())
				case 2:
					s.Reset()
				}
			}
		}(w)
	}
	wg.Wait()

	observer.mu.Lock()
	defer observer.mu.Unlock()
	assert.Empty(t, observer.broken)
	assert.Equal(t, s.Snapshot().State, observer.last)
}

type memoryStorage struct {
	saved map[string][]byte
}

func (m *memoryStorage) SaveFile(_ context.Context, data []byte, path, _ string) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[path] = data
	return "mem://" + path, nil
}

func TestSession_Export(t *testing.T) {
	s := newTestSession(editorReturning(&EditResult{Images: []GeneratedImage{{Data: []byte("out"), MIMEType: "image/jpeg"}}}, nil))
	storage := &memoryStorage{}

	_, err := s.Export(context.Background(), storage)
	assert.ErrorIs(t, err, ErrNoResult)

	require.NoError(t, s.AcquireImage(context.Background(), rawFile("a.png", "image/png", pngBytes(t))))
	s.SetInstruction("x")
	s.Generate(context.Background())

	res, err := s.Export(context.Background(), storage)
	require.NoError(t, err)
	assert.Regexp(t, `^edited-image-\d+\.jpg$`, res.Path)
	assert.Equal(t, "mem://"+res.Path, res.URL)
	assert.Equal(t, 3, res.Size)
	assert.Equal(t, []byte("out"), storage.saved[res.Path])
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "success", StateSuccess.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "state(9)", State(9).String())
}
