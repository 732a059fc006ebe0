package gemini

import "github.com/mhpenta/imageedit"

var allAspectRatios = []imageedit.AspectRatio{
	imageedit.AspectRatio1x1,
	imageedit.AspectRatio16x9,
	imageedit.AspectRatio9x16,
	imageedit.AspectRatio4x3,
	imageedit.AspectRatio3x4,
	imageedit.AspectRatio2x3,
	imageedit.AspectRatio3x2,
	imageedit.AspectRatio4x5,
	imageedit.AspectRatio5x4,
	imageedit.AspectRatio21x9,
}

// NanoBanana2Info is the model info for Gemini 3 Pro Image (nano-banana-2).
//
// Nano Banana Pro (official name: Gemini 3 Pro Image) is Google DeepMind's
// image generation and editing model, built on Gemini 3 Pro.
var NanoBanana2Info = imageedit.ModelInfo{
	Name:         "nano-banana-2",
	Provider:     imageedit.ProviderGeminiAPI,
	APIModelName: APIModelNanoBanana2,

	Capabilities: imageedit.ModelCapabilities{
		SupportsImageEditing: true,
		SupportsThinking:     true,
		SupportsTextReply:    true,
		MaxInputBytes:        imageedit.MaxImageSize,
		MaxOutputImages:      4,
	},

	ContextLength: 1048576, // 1M tokens

	ImageConstraints: imageedit.ImageConstraints{
		SupportedAspectRatios: allAspectRatios,
		SupportedSizes: []imageedit.ImageSize{
			imageedit.ImageSize1K,
			imageedit.ImageSize2K,
			imageedit.ImageSize4K,
		},
	},

	RateLimits: imageedit.RateLimits{
		TokensPerMinute:   4000000,
		RequestsPerMinute: 360,
	},

	// Pricing as of November 2025 for prompts ≤200K tokens.
	// Image output is priced at ~$120/million tokens ($0.039 per 1024x1024 image).
	Pricing: imageedit.Pricing{
		InputTokensPerMillion:  2.00,
		OutputTokensPerMillion: 12.00,
	},
}

// NanoBanana1Info is the model info for Gemini 2.5 Flash Image (nano-banana-1).
var NanoBanana1Info = imageedit.ModelInfo{
	Name:         "nano-banana-1",
	Provider:     imageedit.ProviderGeminiAPI,
	APIModelName: APIModelNanoBanana1,

	Capabilities: imageedit.ModelCapabilities{
		SupportsImageEditing: true,
		SupportsThinking:     true,
		SupportsTextReply:    true,
		MaxInputBytes:        imageedit.MaxImageSize,
		MaxOutputImages:      4,
	},

	ContextLength: 1048576,

	ImageConstraints: imageedit.ImageConstraints{
		SupportedAspectRatios: allAspectRatios,

		// Flash Image only supports ~1024px output (1K)
		SupportedSizes: []imageedit.ImageSize{
			imageedit.ImageSize1K,
		},
	},

	RateLimits: imageedit.RateLimits{
		TokensPerMinute:   4000000,
		RequestsPerMinute: 500, // ~500 RPM for Tier 1
	},

	Pricing: imageedit.Pricing{
		InputTokensPerMillion:  0.15,
		OutputTokensPerMillion: 0.60,
	},
}
