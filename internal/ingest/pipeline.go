// Package ingest orchestrates the handwritten-note pipeline: normalize an
// image, extract a structured transcription, and persist the rendered
// markdown note plus a JSON audit record.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/monty-notes/inkwell/internal/extraction"
	"github.com/monty-notes/inkwell/internal/preprocess"
)

const processedJPEGQuality = 95

// Extractor is the vision extraction client the pipeline calls once per
// image. Satisfied by *extraction.Client.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte, imageMIME, prompt string) (*extraction.Record, error)
	SessionCost() float64
	Model() string
}

// Normalizer preprocesses one image from disk. Satisfied by
// *preprocess.Pipeline.
type Normalizer interface {
	ProcessFile(path string, opts preprocess.Options) (image.Image, *preprocess.Trace, error)
}

// Options configures a Pipeline.
type Options struct {
	// OutputDir is the output root; notes/ and processed_images/ are
	// created beneath it.
	OutputDir string
	// Preprocess toggles the normalization stage.
	Preprocess bool
	// SaveProcessed persists normalized image copies under
	// processed_images/.
	SaveProcessed bool
	// Course is the fixed course label written into note frontmatter.
	Course string
	// Timeout bounds each extraction call. Zero means no bound.
	Timeout time.Duration
}

// Pipeline processes note images one at a time: normalize, extract,
// render, persist. Any stage failure short-circuits the rest, is recorded
// on the result, and never propagates, so batch runs continue.
type Pipeline struct {
	opts       Options
	normalizer Normalizer
	extractor  Extractor
	notesDir   string
	imagesDir  string

	now func() time.Time
}

// New creates a Pipeline and its output directory tree.
func New(extractor Extractor, opts Options) (*Pipeline, error) {
	if opts.Course == "" {
		opts.Course = "PHIL402"
	}

	notesDir := filepath.Join(opts.OutputDir, "notes")
	if err := os.MkdirAll(notesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create notes directory: %w", err)
	}

	imagesDir := filepath.Join(opts.OutputDir, "processed_images")
	if opts.SaveProcessed {
		if err := os.MkdirAll(imagesDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create processed_images directory: %w", err)
		}
	}

	return &Pipeline{
		opts:       opts,
		normalizer: preprocess.NewPipeline(),
		extractor:  extractor,
		notesDir:   notesDir,
		imagesDir:  imagesDir,
		now:        time.Now,
	}, nil
}

// ProcessImage runs the complete pipeline on a single note image. It
// always returns a Result; failures are recorded on it rather than
// returned.
func (p *Pipeline) ProcessImage(ctx context.Context, imagePath, prompt string) *Result {
	slog.Info("Processing image", "path", imagePath)

	result := &Result{
		SourceImage: imagePath,
		Timestamp:   p.now(),
	}

	imageData, imageMIME, err := p.prepareImage(imagePath, result)
	if err != nil {
		result.Error = err.Error()
		slog.Error("Failed to prepare image", "path", imagePath, "error", err)
		return result
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	slog.Info("Running extraction")
	record, err := p.extractor.Extract(ctx, imageData, imageMIME, prompt)
	if err != nil {
		result.Error = err.Error()
		slog.Error("Failed to extract", "path", imagePath, "error", err)
		return result
	}
	result.Extraction = record

	if err := p.writeOutputs(result, record); err != nil {
		result.Success = false
		result.Error = err.Error()
		slog.Error("Failed to persist outputs", "path", imagePath, "error", err)
		return result
	}

	slog.Info("Successfully processed", "source", filepath.Base(imagePath), "output", result.OutputMarkdown)
	return result
}

// prepareImage produces the bytes sent for extraction: the normalized
// image when preprocessing is enabled, otherwise the raw source file.
func (p *Pipeline) prepareImage(imagePath string, result *Result) ([]byte, string, error) {
	if !p.opts.Preprocess {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return nil, "", &preprocess.ImageLoadError{Path: imagePath, Err: err}
		}
		return data, mimeFromExt(imagePath), nil
	}

	img, trace, err := p.normalizer.ProcessFile(imagePath, preprocess.DefaultOptions())
	if err != nil {
		return nil, "", err
	}
	result.Preprocessing = trace

	if p.opts.SaveProcessed {
		processedPath := filepath.Join(p.imagesDir, stemOf(imagePath)+"_processed.jpg")
		if err := preprocess.SaveJPEG(img, processedPath, processedJPEGQuality); err != nil {
			return nil, "", err
		}
		result.PreprocessedImage = processedPath
		slog.Info("Saved processed image", "path", processedPath)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: processedJPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode processed image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// writeOutputs renders and persists the markdown note and the JSON audit
// record under deterministic timestamp-prefixed names.
func (p *Pipeline) writeOutputs(result *Result, record *extraction.Record) error {
	baseName := fmt.Sprintf("%s_%s", p.now().Format("20060102_150405"), stemOf(result.SourceImage))
	mdPath := filepath.Join(p.notesDir, baseName+".md")
	jsonPath := filepath.Join(p.notesDir, baseName+".json")

	markdown, err := renderMarkdown(record, result.SourceImage, p.opts.Course, p.now())
	if err != nil {
		return err
	}

	if err := os.WriteFile(mdPath, []byte(markdown), 0644); err != nil {
		return &OutputWriteError{Path: mdPath, Err: err}
	}
	result.OutputMarkdown = mdPath

	// The audit record is the full result, success flag included, so it
	// must be final before serialization.
	result.OutputJSON = jsonPath
	result.Success = true

	auditJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		result.OutputJSON = ""
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	if err := os.WriteFile(jsonPath, auditJSON, 0644); err != nil {
		result.OutputJSON = ""
		return &OutputWriteError{Path: jsonPath, Err: err}
	}

	return nil
}

// ProcessDirectory processes every image in dir matching the glob pattern,
// sorted by name, one at a time. It returns the per-image results and a
// batch summary; the summary is also persisted at the output root.
func (p *Pipeline) ProcessDirectory(ctx context.Context, dir, pattern, prompt string) ([]*Result, *Summary, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	if len(matches) == 0 {
		slog.Warn("No images found", "pattern", pattern, "dir", dir)
		return []*Result{}, &Summary{Timestamp: p.now(), Results: []*Result{}}, nil
	}

	slog.Info("Found images to process", "count", len(matches))

	results := make([]*Result, 0, len(matches))
	for i, imagePath := range matches {
		slog.Info("Processing batch item", "progress", fmt.Sprintf("%d/%d", i+1, len(matches)), "file", filepath.Base(imagePath))
		results = append(results, p.ProcessImage(ctx, imagePath, prompt))
	}

	summary := p.summarize(results)
	slog.Info("Batch complete",
		"successful", summary.Successful,
		"total", summary.TotalImages,
		"total_cost", fmt.Sprintf("$%.4f", summary.TotalCost))

	summaryPath := filepath.Join(p.opts.OutputDir, fmt.Sprintf("batch_summary_%s.json", p.now().Format("20060102_150405")))
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return results, summary, fmt.Errorf("failed to marshal batch summary: %w", err)
	}
	if err := os.WriteFile(summaryPath, data, 0644); err != nil {
		return results, summary, &OutputWriteError{Path: summaryPath, Err: err}
	}
	slog.Info("Batch summary saved", "path", summaryPath)

	return results, summary, nil
}

func (p *Pipeline) summarize(results []*Result) *Summary {
	summary := &Summary{
		Timestamp:   p.now(),
		TotalImages: len(results),
		TotalCost:   p.extractor.SessionCost(),
		Results:     results,
	}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	return summary
}

func mimeFromExt(path string) string {
	switch filepath.Ext(path) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
