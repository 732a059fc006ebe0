package imageedit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mhpenta/imageedit/ratelimiter"
)

const (
	ModelNanoBanana2 Model = "nano-banana-2" // Gemini 3 Pro Image
	ModelNanoBanana1 Model = "nano-banana-1" // Gemini 2.5 Flash Image

	ModelDefault Model = ModelNanoBanana2
)

var (
	// ErrModelNotRegistered is returned when a model has no registered provider.
	ErrModelNotRegistered = errors.New("model not registered")

	// ErrProviderNotConfigured is returned when a provider lacks required config.
	ErrProviderNotConfigured = errors.New("provider not configured")
)

// Provider represents a model provider/backend.
type Provider string

const (
	ProviderGeminiAPI Provider = "gemini"
)

// ProviderConfig configures a specific provider.
type ProviderConfig struct {
	// Provider type
	Provider Provider

	// APIKey for authentication
	APIKey string

	// BaseURL for custom endpoints (optional)
	BaseURL string
}

// ModelMapping maps a model identifier to its provider and actual model name.
type ModelMapping struct {
	Provider        Provider
	ActualModelName string
}

// Manager implements ImageEditor, routing requests to the appropriate
// provider based on the Model in EditConfig.
type Manager struct {
	modelMappings map[Model]ModelMapping
	providers     map[Provider]ImageEditor
	modelInfo     map[Model]*ModelInfo

	// Default model to use when config.Model is empty
	defaultModel Model

	rateLimiters   ratelimiter.Registry
	tokenEstimator TokenEstimator

	logger *slog.Logger

	mu sync.RWMutex
}

var _ ImageEditor = (*Manager)(nil)

// New creates an empty Manager. Most callers want NewManager.
func New() *Manager {
	return &Manager{
		logger:         slog.Default(),
		modelMappings:  make(map[Model]ModelMapping),
		providers:      make(map[Provider]ImageEditor),
		modelInfo:      make(map[Model]*ModelInfo),
		rateLimiters:   ratelimiter.NewRegistry(),
		tokenEstimator: NewSimpleTokenEstimator(),
		defaultModel:   ModelDefault,
	}
}

// RegisterProvider makes an editor available under its provider name.
func (m *Manager) RegisterProvider(provider Provider, editor ImageEditor) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.providers[provider] = editor
	return m
}

// RegisterModel registers a model with full info (including rate limits).
// Uses the default in-memory rate limiter. Use SetRateLimiter to override with a custom implementation.
func (m *Manager) RegisterModel(model Model, mapping ModelMapping, info *ModelInfo) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.modelMappings[model] = mapping
	m.modelInfo[model] = info

	if info != nil && (info.RateLimits.TokensPerMinute > 0 || info.RateLimits.RequestsPerMinute > 0) {
		m.rateLimiters.Set(string(model), ratelimiter.New(
			info.RateLimits.TokensPerMinute,
			info.RateLimits.RequestsPerMinute,
		))
	}

	return m
}

// SetRateLimiter sets a custom rate limiter for a model.
// Passing nil removes rate limiting for the model.
func (m *Manager) SetRateLimiter(model Model, limiter ratelimiter.Limiter) *Manager {
	m.rateLimiters.Set(string(model), limiter)
	return m
}

// SetDefaultModel sets the default model used when config.Model is empty.
func (m *Manager) SetDefaultModel(model Model) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.defaultModel = model
	return m
}

// SetLogger sets a structured logger for the manager.
func (m *Manager) SetLogger(logger *slog.Logger) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger = logger
	return m
}

// Edit modifies an existing image based on a text instruction.
func (m *Manager) Edit(ctx context.Context, image InputImage, instruction string, config *EditConfig) (*EditResult, error) {
	if config == nil {
		config = DefaultConfig()
	}

	model := m.resolveModel(config)
	logger := m.log().With("model", string(model))
	for k, v := range config.Metadata {
		logger = logger.With(k, v)
	}
	start := time.Now()

	logger.Debug("starting image edit",
		"instruction_length", len(instruction),
		"image_size", len(image.Data),
		"image_mime", image.MIMEType,
	)

	if err := ValidateInstruction(instruction); err != nil {
		return nil, err
	}
	if err := ValidateInputImage(image); err != nil {
		return nil, err
	}

	if err := m.checkRateLimit(ctx, model, config, image, instruction); err != nil {
		logger.Warn("rate limit hit for edit", "error", err.Error())
		return nil, err
	}

	gen, actualConfig, err := m.getEditorForConfig(config)
	if err != nil {
		logger.Error("failed to get editor", "error", err.Error())
		return nil, err
	}

	result, err := gen.Edit(ctx, image, instruction, actualConfig)
	duration := time.Since(start)

	if err != nil {
		logger.Error("edit failed",
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}

	logAttrs := []any{
		"duration_ms", duration.Milliseconds(),
		"image_count", len(result.Images),
		"text_length", len(result.Text),
	}
	if result.UsageMetadata != nil {
		logAttrs = append(logAttrs,
			"prompt_tokens", result.UsageMetadata.PromptTokens,
			"response_tokens", result.UsageMetadata.CandidatesTokens,
			"total_tokens", result.UsageMetadata.TotalTokens,
		)
	}
	logger.Info("edit completed", logAttrs...)

	return result, nil
}

// Models returns all registered model definitions, sorted by name.
func (m *Manager) Models() []ModelInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	models := make([]ModelInfo, 0, len(m.modelInfo))
	for _, info := range m.modelInfo {
		if info != nil {
			models = append(models, *info)
		}
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models
}

// Close releases all provider resources.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for provider, gen := range m.providers {
		if err := gen.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", provider, err))
		}
	}
	m.providers = make(map[Provider]ImageEditor)

	return errors.Join(errs...)
}

// ListModels returns all registered models, sorted.
func (m *Manager) ListModels() []Model {
	m.mu.RLock()
	defer m.mu.RUnlock()

	models := make([]Model, 0, len(m.modelMappings))
	for model := range m.modelMappings {
		models = append(models, model)
	}
	sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })
	return models
}

// DefaultModel returns the model used when a config leaves Model empty.
func (m *Manager) DefaultModel() Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultModel
}

// GetModelProvider returns the provider for a model.
func (m *Manager) GetModelProvider(model Model) (Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, ok := m.modelMappings[model]
	if !ok {
		return "", false
	}
	return mapping.Provider, true
}

// GetModelInfo returns model information for a specific model.
func (m *Manager) GetModelInfo(model Model) (*ModelInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.modelInfo[model]
	return info, ok
}

func (m *Manager) log() *slog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logger
}

// checkRateLimit charges the model's limiter and optionally waits.
func (m *Manager) checkRateLimit(ctx context.Context, model Model, config *EditConfig, image InputImage, instruction string) error {
	const tokenBuffer = 100

	limiter, ok := m.rateLimiters.Lookup(string(model))
	if !ok {
		return nil
	}

	estimatedTokens := m.tokenEstimator.EstimateTokens(instruction) +
		m.tokenEstimator.EstimateImageTokens(image) +
		tokenBuffer

	if config.WaitOnRateLimit {
		return limiter.WaitAndConsume(ctx, estimatedTokens, config.MaxWaitDuration)
	}

	if !limiter.TryConsume(estimatedTokens) {
		return &RateLimitError{
			RetryAfter: limiter.TimeUntilAvailable(estimatedTokens),
			LimitType:  "tokens",
			Model:      string(model),
		}
	}

	return nil
}

// resolveModel determines the actual model to use.
func (m *Manager) resolveModel(config *EditConfig) Model {
	model := ModelDefault
	if config != nil && config.Model != "" {
		model = config.Model
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if model == ModelDefault {
		model = m.defaultModel
	}

	return model
}

// getEditorForConfig returns the editor for the config's model and a copy of
// the config carrying the provider's API model name.
func (m *Manager) getEditorForConfig(config *EditConfig) (ImageEditor, *EditConfig, error) {
	model := m.resolveModel(config)

	m.mu.RLock()
	mapping, ok := m.modelMappings[model]
	info := m.modelInfo[model]
	m.mu.RUnlock()

	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrModelNotRegistered, model)
	}

	gen, err := m.getProvider(mapping.Provider)
	if err != nil {
		return nil, nil, err
	}

	configCopy := *config
	configCopy.Model = Model(mapping.ActualModelName)

	if info != nil && !info.SupportsSize(configCopy.Size) {
		m.log().Warn("model does not support requested size, using model default",
			"model", string(model),
			"size", configCopy.Size.String(),
		)
		configCopy.Size = ""
	}

	return gen, &configCopy, nil
}

// getProvider returns the provider instance for the given provider type.
func (m *Manager) getProvider(provider Provider) (ImageEditor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gen, ok := m.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
	}
	return gen, nil
}
