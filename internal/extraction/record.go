package extraction

import (
	"time"

	"github.com/monty-notes/inkwell/internal/providers"
)

// Usage captures the token counts and spend of one extraction call.
type Usage struct {
	PromptTokens       int     `json:"prompt_tokens"`
	CompletionTokens   int     `json:"completion_tokens"`
	TotalTokens        int     `json:"total_tokens"`
	EstimatedCost      float64 `json:"estimated_cost"`
	RunningSessionCost float64 `json:"running_session_cost"`
}

// Record is the structured result of one vision-model call. It is created
// by the client and never mutated afterward.
type Record struct {
	Transcription       string   `json:"transcription"`
	KeyConcepts         []string `json:"key_concepts"`
	Themes              []string `json:"themes"`
	QuestionsOrInsights []string `json:"questions_or_insights"`
	SuggestedTags       []string `json:"suggested_tags"`
	QualityRating       *int     `json:"quality_rating,omitempty"`
	Notes               string   `json:"notes"`

	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
	Usage     Usage     `json:"usage"`
}

// fillUsage stamps call metadata onto a parsed or fallback record.
func (r *Record) fillUsage(model string, ts time.Time, u providers.TokenUsage, callCost, sessionCost float64) {
	r.Model = model
	r.Timestamp = ts
	r.Usage = Usage{
		PromptTokens:       u.PromptTokens,
		CompletionTokens:   u.CompletionTokens,
		TotalTokens:        u.TotalTokens,
		EstimatedCost:      callCost,
		RunningSessionCost: sessionCost,
	}
}
