package extraction

// PromptVersion identifies the default analysis prompt revision. Bump it
// whenever DefaultPrompt changes so past audit records stay comparable.
const PromptVersion = "v1"

// DefaultPrompt is the analysis prompt used when the caller supplies none.
// It asks for verbatim transcription plus analysis, returned as a JSON
// object matching the Record shape.
const DefaultPrompt = `You are analyzing handwritten notes for a phenomenology student working on a philosophy course.

Please:
1. Transcribe all handwritten text accurately (preserve formatting, lists, emphasis)
2. Identify key concepts and themes
3. Note any questions, insights, or connections mentioned
4. Suggest relevant tags (e.g., topics, philosophers, course concepts)
5. Rate the quality/clarity of the notes (1-5 scale)

Format your response as structured JSON with these fields:
{
  "transcription": "Full text transcription...",
  "key_concepts": ["concept1", "concept2"],
  "themes": ["theme1", "theme2"],
  "questions_or_insights": ["question/insight1"],
  "suggested_tags": ["tag1", "tag2"],
  "quality_rating": 4,
  "notes": "Any additional observations..."
}`
