package imageedit

import (
	"log/slog"

	"github.com/mhpenta/imageedit/ratelimiter"
)

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLogger sets a structured logger for the manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithDefaultModel sets the default model used when config.Model is empty.
func WithDefaultModel(model Model) ManagerOption {
	return func(m *Manager) {
		m.defaultModel = model
	}
}

// WithRateLimiterRegistry replaces the in-memory limiter registry, e.g. with
// one shared between several managers. Set it before models are registered.
func WithRateLimiterRegistry(registry ratelimiter.Registry) ManagerOption {
	return func(m *Manager) {
		m.rateLimiters = registry
	}
}

// WithTokenEstimator overrides how request cost is estimated for rate limiting.
func WithTokenEstimator(estimator TokenEstimator) ManagerOption {
	return func(m *Manager) {
		m.tokenEstimator = estimator
	}
}

// NewManager creates a Manager serving every model of the given provider.
//
// Example:
//
//	editor, err := gemini.NewWithAPIKey(ctx, apiKey)
//	if err != nil {
//	    return err
//	}
//	manager := imageedit.NewManager(editor,
//	    imageedit.WithLogger(slog.Default()),
//	    imageedit.WithDefaultModel(imageedit.ModelNanoBanana1),
//	)
func NewManager(defaultProvider ImageEditor, opts ...ManagerOption) *Manager {
	m := New()

	// Options first so a custom registry receives the model limiters.
	for _, opt := range opts {
		opt(m)
	}

	models := defaultProvider.Models()
	for i := range models {
		info := &models[i]

		m.providers[info.Provider] = defaultProvider

		m.RegisterModel(Model(info.Name),
			ModelMapping{
				Provider:        info.Provider,
				ActualModelName: info.APIModelName,
			},
			info)
	}

	return m
}
