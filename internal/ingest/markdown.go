package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/monty-notes/inkwell/internal/extraction"
	"gopkg.in/yaml.v3"
)

// noteFrontmatter is the YAML metadata block at the top of each rendered
// note. Field order here is the order written to disk.
type noteFrontmatter struct {
	Date          string   `yaml:"date"`
	Source        string   `yaml:"source"`
	Tags          []string `yaml:"tags,flow"`
	Themes        []string `yaml:"themes,flow"`
	KeyConcepts   []string `yaml:"key_concepts,flow"`
	QualityRating *int     `yaml:"quality_rating"`
	Course        string   `yaml:"course"`
}

// renderMarkdown builds the note document: YAML frontmatter, transcription,
// conditional analysis sections, and a processing-info footer. The
// Questions & Insights and Analysis Notes sections are omitted entirely
// when their content is empty.
func renderMarkdown(record *extraction.Record, sourcePath, course string, date time.Time) (string, error) {
	fm := noteFrontmatter{
		Date:          date.Format("2006-01-02"),
		Source:        filepath.Base(sourcePath),
		Tags:          record.SuggestedTags,
		Themes:        record.Themes,
		KeyConcepts:   record.KeyConcepts,
		QualityRating: record.QualityRating,
		Course:        course,
	}

	fmBytes, err := yaml.Marshal(&fm)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	stem := stemOf(sourcePath)

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fmBytes)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# Notes from %s\n\n", stem)
	b.WriteString("## Transcription\n\n")
	b.WriteString(record.Transcription)
	b.WriteString("\n")

	if len(record.QuestionsOrInsights) > 0 {
		b.WriteString("\n## Questions & Insights\n\n")
		for _, insight := range record.QuestionsOrInsights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
	}

	if record.Notes != "" {
		b.WriteString("\n## Analysis Notes\n\n")
		b.WriteString(record.Notes)
		b.WriteString("\n")
	}

	tokens := "N/A"
	if record.Usage.TotalTokens > 0 {
		tokens = fmt.Sprintf("%d", record.Usage.TotalTokens)
	}

	b.WriteString("\n---\n\n")
	b.WriteString("**Processing Info:**\n")
	fmt.Fprintf(&b, "- Model: %s\n", record.Model)
	fmt.Fprintf(&b, "- Timestamp: %s\n", record.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Tokens: %s\n", tokens)
	fmt.Fprintf(&b, "- Cost: $%.4f\n", record.Usage.EstimatedCost)

	return b.String(), nil
}

// stemOf returns the filename without directory or extension.
func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
