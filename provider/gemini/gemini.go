// Package gemini provides an ImageEditor implementation using Google's Gemini API.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
//
// For Vertex AI or other Google Cloud backends, a separate provider implementation
// could be created using the same SDK with a different backend configuration.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mhpenta/imageedit"
	"google.golang.org/genai"
)

// Model name constants - the actual API model names.
const (
	// APIModelNanoBanana2 is the actual API name for Gemini 3 Pro Image
	APIModelNanoBanana2 = "gemini-3-pro-image-preview"

	// APIModelNanoBanana1 is the actual API name for Gemini 2.5 Flash Image
	APIModelNanoBanana1 = "gemini-2.5-flash-image"
)

// GeminiEditor implements ImageEditor using Google's Gemini API.
type GeminiEditor struct {
	client         *genai.Client
	safetySettings []*genai.SafetySetting
	mu             sync.RWMutex
}

// Ensure GeminiEditor implements the interface.
var _ imageedit.ImageEditor = (*GeminiEditor)(nil)

// New creates a new GeminiEditor from a ProviderConfig.
func New(ctx context.Context, config *imageedit.ProviderConfig) (*GeminiEditor, error) {
	if config == nil {
		config = &imageedit.ProviderConfig{}
	}

	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}

	if config.APIKey != "" {
		clientCfg.APIKey = config.APIKey
	}
	// If APIKey is empty, the SDK will try GOOGLE_API_KEY or GEMINI_API_KEY env vars

	if config.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEditor{
		client: client,
	}, nil
}

// NewWithAPIKey creates an editor with an API key for Gemini API.
func NewWithAPIKey(ctx context.Context, apiKey string) (*GeminiEditor, error) {
	return New(ctx, &imageedit.ProviderConfig{
		Provider: imageedit.ProviderGeminiAPI,
		APIKey:   apiKey,
	})
}

// SetSafetySettings configures default safety settings for all requests.
// These can be overridden per-request via EditConfig.SafetySettings.
func (g *GeminiEditor) SetSafetySettings(settings []imageedit.SafetySetting) *GeminiEditor {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.safetySettings = convertSafetySettings(settings)
	return g
}

// Edit sends the image and instruction as one user turn and asks for both
// text and image output.
func (g *GeminiEditor) Edit(ctx context.Context, image imageedit.InputImage, instruction string, config *imageedit.EditConfig) (*imageedit.EditResult, error) {
	if err := imageedit.ValidateInstruction(instruction); err != nil {
		return nil, err
	}
	if err := imageedit.ValidateInputImage(image); err != nil {
		return nil, err
	}

	if config == nil {
		config = imageedit.DefaultConfig()
	}

	modelName := g.resolveModel(config)

	parts := []*genai.Part{
		imagePart(image),
		{Text: strings.TrimSpace(instruction)},
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := g.client.Models.GenerateContent(ctx, modelName, contents, g.buildGenerateContentConfig(config))
	if err != nil {
		return nil, mapAPIError(err, modelName)
	}

	return parseResult(result)
}

// imagePart sends bytes inline when present and falls back to a file
// reference for URI-only images (e.g. a gs:// or Files API URI).
func imagePart(image imageedit.InputImage) *genai.Part {
	if len(image.Data) == 0 && image.URI != "" {
		return &genai.Part{
			FileData: &genai.FileData{
				FileURI:  image.URI,
				MIMEType: image.MIMEType,
			},
		}
	}
	return &genai.Part{
		InlineData: &genai.Blob{
			Data:     image.Data,
			MIMEType: image.MIMEType,
		},
	}
}

// Models returns the model definitions supported by this provider.
// The first model (NanoBanana2) is the default.
func (g *GeminiEditor) Models() []imageedit.ModelInfo {
	return []imageedit.ModelInfo{
		NanoBanana2Info,
		NanoBanana1Info,
	}
}

// Close releases any resources held by the editor.
func (g *GeminiEditor) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK
	return nil
}

// resolveModel determines which API model name to use.
// Falls back to the first model (default) if none specified.
func (g *GeminiEditor) resolveModel(config *imageedit.EditConfig) string {
	if config != nil && config.Model != "" {
		return string(config.Model)
	}
	models := g.Models()
	if len(models) == 0 {
		return APIModelNanoBanana2
	}
	return models[0].APIModelName
}

// buildGenerateContentConfig converts our config to Gemini's GenerateContentConfig format.
func (g *GeminiEditor) buildGenerateContentConfig(config *imageedit.EditConfig) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	imageConfig := &genai.ImageConfig{}
	if config.Size != "" {
		imageConfig.ImageSize = config.Size.String()
	}
	if config.AspectRatio != "" {
		imageConfig.AspectRatio = config.AspectRatio.String()
	}
	genConfig.ImageConfig = imageConfig

	if config.Temperature != nil {
		genConfig.Temperature = genai.Ptr(*config.Temperature)
	}

	if config.EnableThinking {
		genConfig.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
		}
	}

	// Per-request settings override provider defaults
	if len(config.SafetySettings) > 0 {
		genConfig.SafetySettings = convertSafetySettings(config.SafetySettings)
	} else {
		g.mu.RLock()
		genConfig.SafetySettings = g.safetySettings
		g.mu.RUnlock()
	}

	return genConfig
}

// convertSafetySettings converts our SafetySettings to Gemini's format.
func convertSafetySettings(settings []imageedit.SafetySetting) []*genai.SafetySetting {
	if len(settings) == 0 {
		return nil
	}
	result := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		result = append(result, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return result
}

// parseResult converts a Gemini response to our result type. A response with
// no candidates yields an empty result so the caller can classify it; a
// blocked prompt is reported as a remote error carrying the block reason.
func parseResult(result *genai.GenerateContentResponse) (*imageedit.EditResult, error) {
	if result == nil {
		return nil, errors.New("empty response from model")
	}

	if len(result.Candidates) == 0 && result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		msg := result.PromptFeedback.BlockReasonMessage
		if msg == "" {
			msg = "request blocked: " + string(result.PromptFeedback.BlockReason)
		}
		return nil, &imageedit.RemoteError{
			Code:    http.StatusBadRequest,
			Status:  string(result.PromptFeedback.BlockReason),
			Message: msg,
		}
	}

	editResult := &imageedit.EditResult{
		Images: make([]imageedit.GeneratedImage, 0),
	}

	var thinkingParts []string

	imageIndex := 0
	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}

			if part.Thought && part.Text != "" {
				thinkingParts = append(thinkingParts, part.Text)
				continue
			}

			if part.Text != "" {
				editResult.Text += part.Text
			}

			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				editResult.Images = append(editResult.Images, imageedit.GeneratedImage{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
					Index:    imageIndex,
				})
				imageIndex++
			}
		}
	}

	if len(thinkingParts) > 0 {
		editResult.ThinkingContent = strings.Join(thinkingParts, "\n")
	}

	if result.UsageMetadata != nil {
		editResult.UsageMetadata = &imageedit.UsageMetadata{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CandidatesTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
			ImageCount:       len(editResult.Images),
		}
	}

	return editResult, nil
}

// ImageFromBase64 decodes a base64 payload into an InputImage.
func ImageFromBase64(b64 string, mimeType string) (imageedit.InputImage, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return imageedit.InputImage{}, fmt.Errorf("invalid base64: %w", err)
	}
	return imageedit.InputImage{
		Data:     data,
		MIMEType: mimeType,
	}, nil
}

// mapAPIError turns Gemini API errors into a RateLimitError for quota
// exhaustion and a RemoteError otherwise. Anything else is wrapped as is.
func mapAPIError(err error, model string) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("edit failed: %w", err)
	}

	if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
		return &imageedit.RateLimitError{
			RetryAfter: 60 * time.Second, // Default; API doesn't reliably provide Retry-After
			LimitType:  "requests",
			Model:      model,
			Err:        err,
		}
	}

	return &imageedit.RemoteError{
		Code:    apiErr.Code,
		Status:  apiErr.Status,
		Message: apiErr.Message,
		Err:     err,
	}
}
