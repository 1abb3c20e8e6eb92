// Package extraction turns one vision-model call into a structured,
// cost-accounted transcription record.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/monty-notes/inkwell/internal/providers"
)

// Rates is the per-million-token price pair used for cost estimation.
type Rates struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// DefaultRates reflects GPT-4o pricing as of late 2024.
var DefaultRates = Rates{InputPerMTok: 2.50, OutputPerMTok: 10.00}

// ExtractionError reports a transport or service failure of the vision
// collaborator. It is fatal for the image being processed.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("vision extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Client calls a vision provider and parses its responses into Records.
// It tracks cumulative estimated spend across all calls made during its
// lifetime; the running total is never reset automatically.
type Client struct {
	provider    providers.Provider
	model       string
	temperature float64
	maxTokens   int
	rates       Rates

	mu          sync.Mutex
	sessionCost float64

	now func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithRates overrides the default cost rates.
func WithRates(rates Rates) Option {
	return func(c *Client) { c.rates = rates }
}

// WithMaxTokens bounds the response length.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// NewClient returns a Client for the given provider. A low sampling
// temperature is used to favor deterministic transcription over creative
// variation.
func NewClient(provider providers.Provider, opts ...Option) *Client {
	c := &Client{
		provider:    provider,
		model:       providers.DefaultModel(provider.Name()),
		temperature: 0.3,
		maxTokens:   2000,
		rates:       DefaultRates,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model name the client calls.
func (c *Client) Model() string { return c.model }

// SessionCost returns the cumulative estimated spend of all calls made by
// this client.
func (c *Client) SessionCost() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionCost
}

// Extract sends one image to the vision provider and parses the response.
// An empty prompt selects DefaultPrompt. Provider failures are wrapped in
// ExtractionError; an unparseable response degrades to a fallback record
// instead of failing.
func (c *Client) Extract(ctx context.Context, imageData []byte, imageMIME, prompt string) (*Record, error) {
	if prompt == "" {
		prompt = DefaultPrompt
	}

	resp, err := c.provider.Generate(ctx, providers.Request{
		Model:       c.model,
		Prompt:      prompt,
		ImageData:   imageData,
		ImageMIME:   imageMIME,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	record, parsed := parseResponse(resp.Text)
	if !parsed {
		slog.Warn("Could not parse response as JSON, using raw text")
	}

	callCost := c.estimateCost(resp.Usage)
	sessionCost := c.addCost(callCost)
	record.fillUsage(c.model, c.now(), resp.Usage, round4(callCost), round4(sessionCost))

	slog.Info("Extraction complete",
		"provider", c.provider.Name(),
		"model", c.model,
		"chars", len(record.Transcription),
		"cost", fmt.Sprintf("$%.4f", callCost),
		"session_cost", fmt.Sprintf("$%.4f", sessionCost))

	return record, nil
}

// estimateCost prices one call from its reported token counts.
func (c *Client) estimateCost(u providers.TokenUsage) float64 {
	inputCost := float64(u.PromptTokens) / 1_000_000 * c.rates.InputPerMTok
	outputCost := float64(u.CompletionTokens) / 1_000_000 * c.rates.OutputPerMTok
	return inputCost + outputCost
}

// addCost folds one call's cost into the running session total and
// returns the new total.
func (c *Client) addCost(cost float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionCost += cost
	return c.sessionCost
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
