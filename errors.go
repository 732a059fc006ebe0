package imageedit

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError is returned when a rate limit is hit.
type RateLimitError struct {
	RetryAfter time.Duration
	LimitType  string
	Model      string
	Err        error // Underlying error from the provider
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %s limit, retry after %v",
		e.Model, e.LimitType, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimitError checks if an error is a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// RemoteError is a failure reported by the backend itself, as opposed to a
// transport failure. Message is the backend's own explanation, suitable for
// showing to a user.
type RemoteError struct {
	Code    int
	Status  string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("remote error %d (%s): %s", e.Code, e.Status, e.Message)
	}
	return "remote error: " + e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// ErrInvalidInput matches every user-correctable input error.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a user-correctable problem with an acquired file
// or an edit request. It never moves a Session into the error state.
type InvalidInputError struct {
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	return e.Reason
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// Is makes every InvalidInputError match ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(err error, format string, args ...any) error {
	reason := err.Error()
	if format != "" {
		reason = fmt.Sprintf(format, args...)
	}
	return &InvalidInputError{Reason: reason, Err: err}
}

var (
	// ErrSessionBusy is returned when an image is acquired while a request is in flight.
	ErrSessionBusy = errors.New("an edit is already in progress")

	// ErrStorageNotConfigured is returned when storage operations are attempted
	// without a configured storage backend.
	ErrStorageNotConfigured = errors.New("storage not configured")

	// ErrNoResult is returned when exporting from a session without a produced image.
	ErrNoResult = errors.New("no edited image available")
)
