// Package gemini implements the vision provider against Google Gemini.
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/monty-notes/inkwell/internal/providers"
	"google.golang.org/api/option"
)

// Gemini is a vision provider for Google Gemini
type Gemini struct{}

// New returns a new Gemini provider
func New() *Gemini {
	return &Gemini{}
}

// Name implements providers.Provider
func (g *Gemini) Name() string { return "gemini" }

// Generate sends the image and prompt to Gemini and returns the response
// text with its token usage.
func (g *Gemini) Generate(ctx context.Context, req providers.Request) (*providers.Response, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	format := imageFormat(req.ImageMIME)
	resp, err := model.GenerateContent(ctx,
		genai.ImageData(format, req.ImageData),
		genai.Text(req.Prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}

	var usage providers.TokenUsage
	if resp.UsageMetadata != nil {
		usage = providers.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return &providers.Response{Text: string(txt), Usage: usage}, nil
}

// imageFormat maps a MIME type to the bare format name genai expects.
func imageFormat(mime string) string {
	format := strings.TrimPrefix(mime, "image/")
	if format == "" {
		return "jpeg"
	}
	return format
}
