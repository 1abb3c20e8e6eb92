package ingest

import (
	"fmt"
	"time"

	"github.com/monty-notes/inkwell/internal/extraction"
	"github.com/monty-notes/inkwell/internal/preprocess"
)

// Result is the per-image outcome of one pipeline run. Success is true if
// and only if an extraction record was obtained and both output files were
// written. A partially-completed result keeps whatever trace it gathered
// for diagnosis.
type Result struct {
	SourceImage       string             `json:"source_image"`
	Timestamp         time.Time          `json:"timestamp"`
	Success           bool               `json:"success"`
	Preprocessing     *preprocess.Trace  `json:"preprocessing,omitempty"`
	PreprocessedImage string             `json:"preprocessed_image,omitempty"`
	Extraction        *extraction.Record `json:"extraction,omitempty"`
	Error             string             `json:"error,omitempty"`
	OutputMarkdown    string             `json:"output_markdown,omitempty"`
	OutputJSON        string             `json:"output_json,omitempty"`
}

// Summary aggregates the results of one batch run.
type Summary struct {
	Timestamp   time.Time `json:"timestamp"`
	TotalImages int       `json:"total_images"`
	Successful  int       `json:"successful"`
	Failed      int       `json:"failed"`
	TotalCost   float64   `json:"total_cost"`
	Results     []*Result `json:"results"`
}

// OutputWriteError reports a disk or permission failure while persisting
// an output artifact. It is fatal for the image being processed.
type OutputWriteError struct {
	Path string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }
