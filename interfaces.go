package imageedit

import (
	"context"
	"time"
)

// ImageEditor is the remote collaborator that performs an edit.
// Implement this interface to add support for new models or providers.
//
// The first model returned by Models() is considered the default model.
type ImageEditor interface {
	// Edit modifies an existing image based on a text instruction.
	// One call is one request to the backend; implementations must not retry.
	Edit(ctx context.Context, image InputImage, instruction string, cfg *EditConfig) (*EditResult, error)

	// Models returns the model definitions supported by this provider.
	// The first model in the list is the default.
	Models() []ModelInfo

	// Close releases any resources held by the editor.
	Close() error
}

// Submitter turns a Request into an Outcome. Client is the production
// implementation; Session depends only on this interface.
type Submitter interface {
	Submit(ctx context.Context, req Request) Outcome
}

// SessionObserver receives session lifecycle events. Implementations must be
// safe for concurrent use and must not call back into the Session.
type SessionObserver interface {
	// StateChanged is called for every state transition, in order, while the
	// session is locked. It must return quickly.
	StateChanged(from, to State)

	// OutcomeReceived is called when a submission finishes. stale is true when
	// the session had been reset or replaced while the request was in flight
	// and the outcome was discarded.
	OutcomeReceived(outcome Outcome, elapsed time.Duration, stale bool)
}
