package imageedit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the phase of an edit cycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Display says which images a presentation layer can show.
type Display string

const (
	DisplayNone              Display = "none"
	DisplayOriginal          Display = "original"
	DisplayOriginalAndResult Display = "original_and_result"
)

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	SessionID   string  `json:"session_id"`
	State       State   `json:"state"`
	Display     Display `json:"display"`
	Instruction string  `json:"instruction"`

	HasImage       bool   `json:"has_image"`
	ImageName      string `json:"image_name,omitempty"`
	ImageMediaType string `json:"image_media_type,omitempty"`
	ImageWidth     int    `json:"image_width,omitempty"`
	ImageHeight    int    `json:"image_height,omitempty"`
	DisplayID      string `json:"display_id,omitempty"`

	HasResult      bool   `json:"has_result"`
	ResultMIMEType string `json:"result_mime_type,omitempty"`
	ResultText     string `json:"result_text,omitempty"`

	Error string `json:"error,omitempty"`
}

// CanGenerate reports whether Generate would start a request.
func (s Snapshot) CanGenerate() bool {
	return s.State != StateLoading && s.HasImage && strings.TrimSpace(s.Instruction) != ""
}

// Session owns one edit cycle: the acquired image, the instruction, and the
// last outcome. It is the only mutator of that state and is safe for
// concurrent use. At most one request is in flight at a time.
type Session struct {
	id        string
	source    *ImageSource
	submitter Submitter
	observer  SessionObserver
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	image       *NormalizedImage
	instruction string
	result      *ImageProduced
	errMsg      string

	// epoch changes whenever an in-flight response must no longer apply.
	epoch    uint64
	inFlight bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithObserver registers an observer for transitions and outcomes.
func WithObserver(o SessionObserver) SessionOption {
	return func(s *Session) {
		s.observer = o
	}
}

// WithSessionLogger sets the session's logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session in the idle state with no image.
func NewSession(source *ImageSource, submitter Submitter, opts ...SessionOption) *Session {
	s := &Session{
		id:        uuid.NewString(),
		source:    source,
		submitter: submitter,
		logger:    slog.Default(),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.id)
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// AcquireImage reads and installs a new image. On success the session is idle
// with the image present and any previous result or error cleared. On failure
// the error is returned and the session is left as it was.
func (s *Session) AcquireImage(ctx context.Context, f RawFile) error {
	s.mu.Lock()
	busy := s.inFlight
	s.mu.Unlock()
	if busy {
		return ErrSessionBusy
	}

	img, err := s.source.Acquire(ctx, f)
	if err != nil {
		s.logger.Info("image rejected", "name", f.Name, "content_type", f.ContentType, "error", err.Error())
		return err
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		img.Display.Release()
		return ErrSessionBusy
	}
	prev := s.state
	s.image.releaseDisplay()
	s.image = img
	s.result = nil
	s.errMsg = ""
	s.state = StateIdle
	s.epoch++
	if prev != StateIdle {
		s.transitionedLocked(prev, StateIdle)
	}
	s.mu.Unlock()

	s.logger.Info("image acquired", "name", img.Name, "media_type", img.MediaType, "bytes", img.Size)
	return nil
}

// SetInstruction stores the instruction used by the next Generate.
func (s *Session) SetInstruction(instruction string) {
	s.mu.Lock()
	s.instruction = instruction
	s.mu.Unlock()
}

// Generate submits the current image and instruction and waits for the
// outcome. It is a no-op, returning false, unless an image and a non-blank
// instruction are present and no request is in flight.
//
// If the session is reset or given a new image while the request runs, the
// late outcome is discarded and the newer state is kept.
func (s *Session) Generate(ctx context.Context) (Snapshot, bool) {
	s.mu.Lock()
	if s.inFlight || s.state == StateLoading {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, false
	}
	req, err := BuildRequest(s.image, s.instruction)
	if err != nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, false
	}
	prev := s.state
	s.state = StateLoading
	s.result = nil
	s.errMsg = ""
	s.inFlight = true
	s.epoch++
	epoch := s.epoch
	s.transitionedLocked(prev, StateLoading)
	s.mu.Unlock()

	start := time.Now()
	outcome := s.submit(ctx, req)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.inFlight = false
	stale := epoch != s.epoch
	if stale {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.logger.Info("discarding stale outcome", "outcome", outcome.Variant())
		s.observed(outcome, elapsed, true)
		return snap, true
	}

	next := s.applyLocked(outcome)
	s.transitionedLocked(StateLoading, next)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.observed(outcome, elapsed, false)
	return snap, true
}

// submit calls the submitter, turning a panic into a Failure.
func (s *Session) submit(ctx context.Context, req Request) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("submitter panicked", "panic", fmt.Sprint(r))
			out = Failure{Reason: fmt.Sprintf("unexpected error: %v", r), Kind: FailureInternal}
		}
	}()
	out = s.submitter.Submit(ctx, req)
	if out == nil {
		out = Failure{Reason: msgGenericFailure, Kind: FailureInternal}
	}
	return out
}

func (s *Session) applyLocked(outcome Outcome) State {
	switch o := outcome.(type) {
	case ImageProduced:
		if len(o.Image.Data) == 0 {
			s.errMsg = msgNoImageOrText
			s.state = StateError
			break
		}
		s.result = &o
		s.state = StateSuccess
	case TextOnly:
		s.errMsg = o.Message
		s.state = StateError
	case Failure:
		s.errMsg = o.Reason
		s.state = StateError
	}
	if s.state == StateError && strings.TrimSpace(s.errMsg) == "" {
		s.errMsg = msgGenericFailure
	}
	return s.state
}

// Reset returns the session to idle with no image, releasing the display
// handle and clearing instruction, result and error. A request still in
// flight finishes, but its outcome is discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	prev := s.state
	s.image.releaseDisplay()
	s.image = nil
	s.instruction = ""
	s.result = nil
	s.errMsg = ""
	s.state = StateIdle
	s.epoch++
	if prev != StateIdle {
		s.transitionedLocked(prev, StateIdle)
	}
	s.mu.Unlock()
}

// Close releases the session's resources. The session behaves as reset afterwards.
func (s *Session) Close() error {
	s.Reset()
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Original returns the acquired image's bytes, if any.
func (s *Session) Original() (DisplayableImage, bool) {
	s.mu.Lock()
	img := s.image
	s.mu.Unlock()
	if img == nil {
		return DisplayableImage{}, false
	}

	data, mimeType, ok := s.source.Registry().Resolve(img.Display.ID())
	if !ok {
		return DisplayableImage{}, false
	}
	return DisplayableImage{Data: data, MIMEType: mimeType}, true
}

// Result returns the edited image when the session is in the success state.
func (s *Session) Result() (DisplayableImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSuccess || s.result == nil {
		return DisplayableImage{}, false
	}
	return s.result.Image, true
}

// Export saves the current result to storage under a timestamped name.
func (s *Session) Export(ctx context.Context, storage Storage) (StorageResult, error) {
	img, ok := s.Result()
	if !ok {
		return StorageResult{}, ErrNoResult
	}
	res, err := ExportResult(ctx, storage, img, time.Now())
	if err != nil {
		return StorageResult{}, fmt.Errorf("exporting result: %w", err)
	}
	s.logger.Info("result exported", "path", res.Path, "bytes", res.Size)
	return res, nil
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:   s.id,
		State:       s.state,
		Instruction: s.instruction,
		Error:       s.errMsg,
		Display:     DisplayNone,
	}
	if s.image != nil {
		snap.HasImage = true
		snap.ImageName = s.image.Name
		snap.ImageMediaType = s.image.MediaType
		snap.ImageWidth = s.image.Width
		snap.ImageHeight = s.image.Height
		snap.DisplayID = s.image.Display.ID()
		snap.Display = DisplayOriginal
	}
	if s.result != nil {
		snap.HasResult = true
		snap.ResultMIMEType = s.result.Image.MIMEType
		snap.ResultText = s.result.Text
		snap.Display = DisplayOriginalAndResult
	}
	return snap
}

// transitionedLocked reports a transition while s.mu is held, so observers
// see transitions in the order they happened.
func (s *Session) transitionedLocked(from, to State) {
	s.logger.Debug("session transition", "from", from.String(), "to", to.String())
	if s.observer != nil {
		s.observer.StateChanged(from, to)
	}
}

func (s *Session) observed(outcome Outcome, elapsed time.Duration, stale bool) {
	if s.observer != nil {
		s.observer.OutcomeReceived(outcome, elapsed, stale)
	}
}

func (img *NormalizedImage) releaseDisplay() {
	if img != nil {
		img.Display.Release()
	}
}
