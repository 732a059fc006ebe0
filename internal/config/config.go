// Package config loads imageedit settings from defaults, a .env file and the
// environment, in that order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/mhpenta/imageedit"
	"github.com/mhpenta/imageedit/internal/logging"
)

// ErrMissingAPIKey is returned by Validate when no Gemini API key is set.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

type Config struct {
	APIKey      string `env:"GEMINI_API_KEY"`
	BaseURL     string `env:"IMAGEEDIT_BASE_URL"`
	Model       string `env:"IMAGEEDIT_MODEL"`
	ImageSize   string `env:"IMAGEEDIT_IMAGE_SIZE"`
	AspectRatio string `env:"IMAGEEDIT_ASPECT_RATIO"`

	RequestTimeout   time.Duration `env:"IMAGEEDIT_REQUEST_TIMEOUT"`
	WaitOnRateLimit  bool          `env:"IMAGEEDIT_WAIT_ON_RATE_LIMIT"`
	MaxRateLimitWait time.Duration `env:"IMAGEEDIT_MAX_RATE_LIMIT_WAIT"`

	LogLevel   string `env:"IMAGEEDIT_LOG_LEVEL"`
	ListenAddr string `env:"IMAGEEDIT_LISTEN_ADDR"`
	ExportDir  string `env:"IMAGEEDIT_EXPORT_DIR"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		Model:            string(imageedit.ModelDefault),
		ImageSize:        string(imageedit.ImageSize2K),
		RequestTimeout:   2 * time.Minute,
		MaxRateLimitWait: 30 * time.Second,
		LogLevel:         "info",
		ListenAddr:       "127.0.0.1:8080",
		ExportDir:        ".",
	}
}

// Load starts from Defaults, then applies .env (when present) and the
// process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used. requireKey is false
// for commands that never call the model.
func (c *Config) Validate(requireKey bool) error {
	if requireKey && c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if _, err := imageedit.ParseImageSize(c.ImageSize); c.ImageSize != "" && err != nil {
		return err
	}
	if _, err := imageedit.ParseAspectRatio(c.AspectRatio); c.AspectRatio != "" && err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative, got %s", c.RequestTimeout)
	}
	return nil
}

// EditConfig translates the settings into the per-request config.
func (c *Config) EditConfig() *imageedit.EditConfig {
	cfg := imageedit.DefaultConfig()
	if c.Model != "" {
		cfg.Model = imageedit.Model(c.Model)
	}
	if size, err := imageedit.ParseImageSize(c.ImageSize); err == nil && size != "" {
		cfg.Size = size
	}
	if ratio, err := imageedit.ParseAspectRatio(c.AspectRatio); err == nil && ratio != "" {
		cfg.AspectRatio = ratio
	}
	cfg.WaitOnRateLimit = c.WaitOnRateLimit
	cfg.MaxWaitDuration = c.MaxRateLimitWait
	return cfg
}

// ProviderConfig returns the Gemini provider settings.
func (c *Config) ProviderConfig() *imageedit.ProviderConfig {
	return &imageedit.ProviderConfig{
		Provider: imageedit.ProviderGeminiAPI,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
	}
}
