package extraction

import (
	"encoding/json"
	"strings"
)

// fallbackNote is written into Record.Notes when the model response could
// not be parsed as structured data.
const fallbackNote = "Response was not in expected JSON format"

const fallbackQualityRating = 3

// parseResponse turns a raw model response into a Record. It tries, in
// order: the content of the first fence pair tagged json, the content of
// the first untagged fence pair, then the whole body. When every attempt
// fails it degrades to a fallback record carrying the raw text as the
// transcription; losing structure is preferable to losing the
// transcription. The second return value reports whether structured
// parsing succeeded.
func parseResponse(body string) (*Record, bool) {
	candidate := body
	if _, after, found := strings.Cut(body, "```json"); found {
		candidate, _, _ = strings.Cut(after, "```")
	} else if _, after, found := strings.Cut(body, "```"); found {
		candidate, _, _ = strings.Cut(after, "```")
	}

	var record Record
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &record); err == nil {
		record.normalize()
		return &record, true
	}

	rating := fallbackQualityRating
	return &Record{
		Transcription:       body,
		KeyConcepts:         []string{},
		Themes:              []string{},
		QuestionsOrInsights: []string{},
		SuggestedTags:       []string{},
		QualityRating:       &rating,
		Notes:               fallbackNote,
	}, false
}

// normalize replaces nil list fields from a sparse model response with
// empty slices so downstream rendering and serialization see lists.
func (r *Record) normalize() {
	if r.KeyConcepts == nil {
		r.KeyConcepts = []string{}
	}
	if r.Themes == nil {
		r.Themes = []string{}
	}
	if r.QuestionsOrInsights == nil {
		r.QuestionsOrInsights = []string{}
	}
	if r.SuggestedTags == nil {
		r.SuggestedTags = []string{}
	}
}
