// Package providers defines the abstraction over vision-capable LLM
// services used for note transcription.
package providers

import (
	"context"
	"os"
)

// Request carries one vision call: an encoded image plus the analysis
// prompt and sampling parameters.
type Request struct {
	Model       string
	Prompt      string
	ImageData   []byte
	ImageMIME   string
	Temperature float64
	MaxTokens   int
}

// TokenUsage reports the token counts of one call as returned by the
// service.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the raw text body of one vision call plus its token usage.
type Response struct {
	Text  string
	Usage TokenUsage
}

// Provider defines the interface for a vision-capable LLM provider.
type Provider interface {
	// Name identifies the provider for logging and cost attribution.
	Name() string
	// Generate performs a single synchronous vision call. Transport and
	// service failures are returned as-is; no retries happen here.
	Generate(ctx context.Context, req Request) (*Response, error)
}

// DefaultModel returns the model to use for a provider, honoring the
// provider's environment override.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o"
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-1.5-flash"
	case "ollama":
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "mistral-small3.2:24b"
	default:
		return ""
	}
}
