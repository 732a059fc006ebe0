package imageedit

// ModelCapabilities describes what an editing model supports.
type ModelCapabilities struct {
	SupportsImageEditing bool
	SupportsThinking     bool // Reasoning/thinking mode
	SupportsTextReply    bool // May answer with text instead of an image

	// Limits
	MaxInputBytes   int // Largest inline image accepted
	MaxOutputImages int // Max images returned per request
}

// RateLimits defines rate limiting parameters for a model.
type RateLimits struct {
	TokensPerMinute   int
	RequestsPerMinute int
}

// Pricing defines cost information for a model.
type Pricing struct {
	InputTokensPerMillion  float64
	OutputTokensPerMillion float64
	ImageGenerationCost    float64 // Per output image
}

// ImageConstraints defines supported output configurations for a model.
type ImageConstraints struct {
	SupportedAspectRatios []AspectRatio
	SupportedSizes        []ImageSize
}

// ModelInfo contains complete metadata for a model.
type ModelInfo struct {
	// Identity
	Name         string   // Public model name (e.g., "nano-banana-2")
	Provider     Provider // Which provider serves this model
	APIModelName string   // Actual API name (e.g., "gemini-3-pro-image-preview")

	Capabilities     ModelCapabilities
	ContextLength    int
	ImageConstraints ImageConstraints
	RateLimits       RateLimits
	Pricing          Pricing
}

// SupportsSize reports whether size is accepted. Empty constraints accept everything.
func (i ModelInfo) SupportsSize(size ImageSize) bool {
	if size == "" || len(i.ImageConstraints.SupportedSizes) == 0 {
		return true
	}
	for _, s := range i.ImageConstraints.SupportedSizes {
		if s == size {
			return true
		}
	}
	return false
}
