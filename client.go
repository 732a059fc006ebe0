package imageedit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	defaultOutputMIME = "image/png"

	msgNoImageOrText  = "model responded without producing image or text"
	msgEmptyResponse  = "model returned an empty response"
	msgGenericFailure = "failed to edit image"
	msgTimeout        = "request timed out"
)

// Client submits edit requests to an ImageEditor and classifies the answer.
// Submit never returns an error or panics; every path ends in an Outcome.
type Client struct {
	editor  ImageEditor
	config  *EditConfig
	timeout time.Duration
	logger  *slog.Logger
}

var _ Submitter = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEditConfig sets the config sent with every request.
func WithEditConfig(cfg *EditConfig) ClientOption {
	return func(c *Client) {
		c.config = cfg
	}
}

// WithRequestTimeout bounds each request. Zero means no bound beyond the caller's context.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientLogger sets the client's logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client over editor, typically a *Manager.
func NewClient(editor ImageEditor, opts ...ClientOption) *Client {
	c := &Client{
		editor: editor,
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit performs exactly one edit call and classifies the response.
func (c *Client) Submit(ctx context.Context, req Request) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("editor panicked", "panic", fmt.Sprint(r))
			out = Failure{Reason: fmt.Sprintf("unexpected error: %v", r), Kind: FailureInternal}
		}
		c.logger.Info("edit classified",
			"outcome", out.Variant(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	input, err := req.InputImage()
	if err != nil {
		return Failure{Reason: err.Error(), Kind: FailureInternal}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.editor.Edit(ctx, input, req.Instruction(), c.config)
	if err != nil {
		c.logger.Warn("edit request failed", "error", err.Error())
		if errors.Is(err, ErrInvalidInput) {
			return Failure{Reason: FailureMessage(err), Kind: FailureInvalidInput}
		}
		return Failure{Reason: FailureMessage(err), Kind: FailureRemote}
	}

	return Classify(result)
}

// Classify maps a raw response to an Outcome: an image wins over text, text
// wins over nothing.
func Classify(result *EditResult) Outcome {
	if result == nil {
		return Failure{Reason: msgEmptyResponse, Kind: FailureClassification}
	}

	text := strings.TrimSpace(result.Text)

	for _, img := range result.Images {
		if len(img.Data) == 0 {
			continue
		}
		mimeType := NormalizeMediaType(img.MIMEType)
		if mimeType == "" {
			mimeType = defaultOutputMIME
		}
		return ImageProduced{
			Image: DisplayableImage{Data: img.Data, MIMEType: mimeType},
			Text:  text,
		}
	}

	if text != "" {
		return TextOnly{Message: text}
	}

	return Failure{Reason: msgNoImageOrText, Kind: FailureClassification}
}

// FailureMessage derives the user-visible reason for a failed call.
func FailureMessage(err error) string {
	if err == nil {
		return msgGenericFailure
	}

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) && strings.TrimSpace(remoteErr.Message) != "" {
		return remoteErr.Message
	}

	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return rlErr.Error()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return msgTimeout
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return msgGenericFailure
}
