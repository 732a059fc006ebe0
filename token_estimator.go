package imageedit

import (
	"math"
)

// TokenEstimator approximates how many input tokens an edit request costs, so
// the Manager can charge the rate limiter before calling the backend.
type TokenEstimator interface {
	EstimateTokens(text string) int
	EstimateImageTokens(img InputImage) int
}

// SimpleTokenEstimator is a fast approximation used for rate limiting only.
type SimpleTokenEstimator struct {
	SafetyMargin float64

	// ImageTokens is the flat cost charged per inline image.
	ImageTokens int
}

// Gemini bills an inline image up to 1024x1024 as 258 tokens.
const defaultImageTokens = 258

func NewSimpleTokenEstimator() *SimpleTokenEstimator {
	return &SimpleTokenEstimator{
		SafetyMargin: 1.2,
		ImageTokens:  defaultImageTokens,
	}
}

func (e *SimpleTokenEstimator) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	charCount := len([]rune(text))
	tokenEstimate := float64(charCount) / 4.0
	tokenEstimate *= e.SafetyMargin

	return int(math.Ceil(tokenEstimate)) + 3
}

func (e *SimpleTokenEstimator) EstimateImageTokens(img InputImage) int {
	if len(img.Data) == 0 && img.URI == "" {
		return 0
	}
	return e.ImageTokens
}
