package extraction

import (
	"testing"
)

func TestParseResponseStructured(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "json-tagged fence",
			body: "Here are the results:\n```json\n{\"transcription\": \"Being and Time outline\", \"key_concepts\": [\"dasein\"], \"themes\": [], \"questions_or_insights\": [], \"suggested_tags\": [\"heidegger\"], \"quality_rating\": 4, \"notes\": \"\"}\n```\nLet me know if you need more.",
		},
		{
			name: "untagged fence",
			body: "```\n{\"transcription\": \"Being and Time outline\", \"key_concepts\": [\"dasein\"], \"themes\": [], \"questions_or_insights\": [], \"suggested_tags\": [\"heidegger\"], \"quality_rating\": 4, \"notes\": \"\"}\n```",
		},
		{
			name: "bare JSON body",
			body: "{\"transcription\": \"Being and Time outline\", \"key_concepts\": [\"dasein\"], \"themes\": [], \"questions_or_insights\": [], \"suggested_tags\": [\"heidegger\"], \"quality_rating\": 4, \"notes\": \"\"}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, parsed := parseResponse(tt.body)

			if !parsed {
				t.Fatal("expected structured parse to succeed")
			}
			if record.Transcription != "Being and Time outline" {
				t.Errorf("transcription = %q", record.Transcription)
			}
			if len(record.KeyConcepts) != 1 || record.KeyConcepts[0] != "dasein" {
				t.Errorf("key_concepts = %v", record.KeyConcepts)
			}
			if record.QualityRating == nil || *record.QualityRating != 4 {
				t.Errorf("quality_rating = %v, want 4", record.QualityRating)
			}
		})
	}
}

func TestParseResponseFallback(t *testing.T) {
	body := "The notes discuss intentionality and the reduction, but I cannot provide JSON."

	record, parsed := parseResponse(body)

	if parsed {
		t.Fatal("expected fallback, got structured parse")
	}
	if record.Transcription != body {
		t.Errorf("fallback transcription = %q, want the raw body", record.Transcription)
	}
	if record.QualityRating == nil || *record.QualityRating != 3 {
		t.Errorf("fallback quality_rating = %v, want 3", record.QualityRating)
	}
	if record.Notes != fallbackNote {
		t.Errorf("fallback notes = %q", record.Notes)
	}
	for name, list := range map[string][]string{
		"key_concepts":          record.KeyConcepts,
		"themes":                record.Themes,
		"questions_or_insights": record.QuestionsOrInsights,
		"suggested_tags":        record.SuggestedTags,
	} {
		if list == nil || len(list) != 0 {
			t.Errorf("fallback %s = %v, want empty list", name, list)
		}
	}
}

func TestParseResponseBrokenJSONInFence(t *testing.T) {
	// A fence whose content is not valid JSON degrades to the fallback
	// rather than raising.
	body := "```json\n{\"transcription\": unterminated\n```"

	record, parsed := parseResponse(body)
	if parsed {
		t.Fatal("expected fallback for broken fenced JSON")
	}
	if record.Transcription != body {
		t.Errorf("fallback must carry the complete raw body, got %q", record.Transcription)
	}
}

func TestParseResponseMissingOptionalFields(t *testing.T) {
	// quality_rating absent stays absent; nil lists normalize to empty.
	body := `{"transcription": "sparse", "notes": ""}`

	record, parsed := parseResponse(body)
	if !parsed {
		t.Fatal("expected structured parse")
	}
	if record.QualityRating != nil {
		t.Errorf("quality_rating = %v, want absent", *record.QualityRating)
	}
	if record.KeyConcepts == nil || record.Themes == nil || record.QuestionsOrInsights == nil || record.SuggestedTags == nil {
		t.Error("list fields must be normalized to empty slices")
	}
}

func TestParseResponseJSONFencePreferredOverPlainFence(t *testing.T) {
	body := "```\n{\"transcription\": \"from plain fence\", \"notes\": \"\"}\n```\n```json\n{\"transcription\": \"from json fence\", \"notes\": \"\"}\n```"

	record, parsed := parseResponse(body)
	if !parsed {
		t.Fatal("expected structured parse")
	}
	if record.Transcription != "from json fence" {
		t.Errorf("transcription = %q, want the json-tagged fence to win", record.Transcription)
	}
}
