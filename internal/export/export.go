// Package export flattens the ingested note corpus into a single dataset
// file (Parquet or JSONL) for downstream search and analysis tooling.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/monty-notes/inkwell/internal/ingest"
	"github.com/parquet-go/parquet-go"
)

// NoteRow is one flattened note record in the exported dataset.
type NoteRow struct {
	Source            string   `parquet:"source" json:"source"`
	ProcessedAt       string   `parquet:"processed_at" json:"processed_at"`
	Success           bool     `parquet:"success" json:"success"`
	Transcription     string   `parquet:"transcription" json:"transcription"`
	KeyConcepts       []string `parquet:"key_concepts,list" json:"key_concepts"`
	Themes            []string `parquet:"themes,list" json:"themes"`
	SuggestedTags     []string `parquet:"suggested_tags,list" json:"suggested_tags"`
	QualityRating     int32    `parquet:"quality_rating" json:"quality_rating"`
	Model             string   `parquet:"model" json:"model"`
	TotalTokens       int64    `parquet:"total_tokens" json:"total_tokens"`
	EstimatedCost     float64  `parquet:"estimated_cost" json:"estimated_cost"`
	RotationApplied   int32    `parquet:"rotation_applied" json:"rotation_applied"`
	PreprocessingStep []string `parquet:"preprocessing_steps,list" json:"preprocessing_steps"`
	OutputMarkdown    string   `parquet:"output_markdown" json:"output_markdown"`
	Error             string   `parquet:"error" json:"error"`
}

// LoadResults reads every JSON audit record under <root>/notes, sorted by
// filename for deterministic output.
func LoadResults(outputRoot string) ([]*ingest.Result, error) {
	notesDir := filepath.Join(outputRoot, "notes")
	matches, err := filepath.Glob(filepath.Join(notesDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	sort.Strings(matches)

	results := make([]*ingest.Result, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read audit record %s: %w", path, err)
		}

		var result ingest.Result
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to parse audit record %s: %w", path, err)
		}
		results = append(results, &result)
	}

	slog.Info("Loaded audit records", "count", len(results), "dir", notesDir)
	return results, nil
}

// Flatten converts audit results into dataset rows.
func Flatten(results []*ingest.Result) []NoteRow {
	rows := make([]NoteRow, 0, len(results))
	for _, r := range results {
		row := NoteRow{
			Source:         r.SourceImage,
			ProcessedAt:    r.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Success:        r.Success,
			OutputMarkdown: r.OutputMarkdown,
			Error:          r.Error,
		}

		if r.Preprocessing != nil {
			row.RotationApplied = int32(r.Preprocessing.RotationApplied)
			row.PreprocessingStep = r.Preprocessing.Steps
		}

		if r.Extraction != nil {
			row.Transcription = r.Extraction.Transcription
			row.KeyConcepts = r.Extraction.KeyConcepts
			row.Themes = r.Extraction.Themes
			row.SuggestedTags = r.Extraction.SuggestedTags
			row.Model = r.Extraction.Model
			row.TotalTokens = int64(r.Extraction.Usage.TotalTokens)
			row.EstimatedCost = r.Extraction.Usage.EstimatedCost
			if r.Extraction.QualityRating != nil {
				row.QualityRating = int32(*r.Extraction.QualityRating)
			}
		}

		rows = append(rows, row)
	}
	return rows
}

// Write persists rows in the format implied by the destination extension
// (.parquet or .jsonl).
func Write(rows []NoteRow, destPath string) error {
	switch strings.ToLower(filepath.Ext(destPath)) {
	case ".parquet":
		return writeParquet(rows, destPath)
	case ".jsonl", ".json":
		return writeJSONL(rows, destPath)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: .parquet, .jsonl)", filepath.Ext(destPath))
	}
}

func writeParquet(rows []NoteRow, destPath string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[NoteRow](f)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	slog.Info("Exported notes dataset", "format", "parquet", "rows", len(rows), "path", destPath)
	return nil
}

func writeJSONL(rows []NoteRow, destPath string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row: %w", err)
		}
	}

	slog.Info("Exported notes dataset", "format", "jsonl", "rows", len(rows), "path", destPath)
	return nil
}
