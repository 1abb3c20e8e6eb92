package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/monty-notes/inkwell/internal/extraction"
	"github.com/monty-notes/inkwell/internal/preprocess"
)

type fakeExtractor struct {
	record *extraction.Record
	err    error
	cost   float64
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, imageData []byte, imageMIME, prompt string) (*extraction.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func (f *fakeExtractor) SessionCost() float64 { return f.cost }
func (f *fakeExtractor) Model() string        { return "fake-model" }

type fakeNormalizer struct {
	trace *preprocess.Trace
	err   error
}

func (f *fakeNormalizer) ProcessFile(path string, opts preprocess.Options) (image.Image, *preprocess.Trace, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), f.trace, nil
}

func newTestPipeline(t *testing.T, extractor Extractor, normalizer Normalizer, opts Options) *Pipeline {
	t.Helper()
	if opts.OutputDir == "" {
		opts.OutputDir = t.TempDir()
	}
	p, err := New(extractor, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if normalizer != nil {
		p.normalizer = normalizer
	}
	return p
}

func writeSourceImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page1.jpg")
	if err := os.WriteFile(path, []byte("fake image bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessImageEndToEnd(t *testing.T) {
	rating := 4
	extractor := &fakeExtractor{
		record: &extraction.Record{
			Transcription:       "Hello",
			KeyConcepts:         []string{"being"},
			Themes:              []string{},
			QuestionsOrInsights: []string{},
			SuggestedTags:       []string{"phenomenology"},
			QualityRating:       &rating,
			Notes:               "",
			Model:               "fake-model",
		},
	}
	normalizer := &fakeNormalizer{trace: &preprocess.Trace{Steps: []string{"denoised", "contrast_enhanced"}}}

	outputDir := t.TempDir()
	p := newTestPipeline(t, extractor, normalizer, Options{OutputDir: outputDir, Preprocess: true})

	result := p.ProcessImage(context.Background(), writeSourceImage(t), "")

	if !result.Success {
		t.Fatalf("success = false, error = %q", result.Error)
	}
	if result.Preprocessing == nil || len(result.Preprocessing.Steps) != 2 {
		t.Errorf("preprocessing trace not attached: %+v", result.Preprocessing)
	}

	md, err := os.ReadFile(result.OutputMarkdown)
	if err != nil {
		t.Fatalf("markdown not written: %v", err)
	}
	content := string(md)

	if !strings.Contains(content, "## Transcription\n\nHello") {
		t.Errorf("markdown missing transcription section:\n%s", content)
	}
	if strings.Contains(content, "## Questions & Insights") || strings.Contains(content, "## Analysis Notes") {
		t.Errorf("empty sections must be omitted:\n%s", content)
	}
	if !strings.Contains(content, "quality_rating: 4") {
		t.Errorf("frontmatter missing quality rating:\n%s", content)
	}

	auditBytes, err := os.ReadFile(result.OutputJSON)
	if err != nil {
		t.Fatalf("audit record not written: %v", err)
	}
	var audit Result
	if err := json.Unmarshal(auditBytes, &audit); err != nil {
		t.Fatalf("audit record not valid JSON: %v", err)
	}
	if !audit.Success {
		t.Error("persisted audit record must carry success=true")
	}
	if audit.Extraction == nil || audit.Extraction.Transcription != "Hello" {
		t.Error("persisted audit record missing extraction")
	}
}

func TestProcessImageExtractionFailure(t *testing.T) {
	extractor := &fakeExtractor{err: &extraction.ExtractionError{Err: errors.New("service unavailable")}}
	outputDir := t.TempDir()
	p := newTestPipeline(t, extractor, &fakeNormalizer{trace: &preprocess.Trace{Steps: []string{"denoised"}}},
		Options{OutputDir: outputDir, Preprocess: true})

	result := p.ProcessImage(context.Background(), writeSourceImage(t), "")

	if result.Success {
		t.Error("success must be false when extraction fails")
	}
	if result.Error == "" {
		t.Error("error text must be recorded")
	}
	if result.Preprocessing == nil {
		t.Error("partial trace must be preserved for diagnosis")
	}

	entries, err := os.ReadDir(filepath.Join(outputDir, "notes"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("no output files may exist after extraction failure, found %d", len(entries))
	}
}

func TestProcessImageLoadFailure(t *testing.T) {
	extractor := &fakeExtractor{record: &extraction.Record{}}
	normalizer := &fakeNormalizer{err: &preprocess.ImageLoadError{Path: "x.jpg", Err: errors.New("corrupt")}}
	p := newTestPipeline(t, extractor, normalizer, Options{Preprocess: true})

	result := p.ProcessImage(context.Background(), "x.jpg", "")

	if result.Success {
		t.Error("success must be false on load failure")
	}
	if result.Error == "" {
		t.Error("error text must be recorded")
	}
	if extractor.calls != 0 {
		t.Error("extraction must be short-circuited after a load failure")
	}
}

func TestProcessImageWithoutPreprocess(t *testing.T) {
	extractor := &fakeExtractor{record: &extraction.Record{Transcription: "raw", Notes: ""}}
	p := newTestPipeline(t, extractor, nil, Options{Preprocess: false})

	result := p.ProcessImage(context.Background(), writeSourceImage(t), "")

	if !result.Success {
		t.Fatalf("success = false, error = %q", result.Error)
	}
	if result.Preprocessing != nil {
		t.Error("no trace expected when preprocessing is disabled")
	}
}

func TestProcessImageSavesProcessedCopy(t *testing.T) {
	extractor := &fakeExtractor{record: &extraction.Record{Transcription: "x"}}
	normalizer := &fakeNormalizer{trace: &preprocess.Trace{Steps: []string{"denoised"}}}
	outputDir := t.TempDir()
	p := newTestPipeline(t, extractor, normalizer,
		Options{OutputDir: outputDir, Preprocess: true, SaveProcessed: true})

	result := p.ProcessImage(context.Background(), writeSourceImage(t), "")

	if !result.Success {
		t.Fatalf("success = false, error = %q", result.Error)
	}
	expected := filepath.Join(outputDir, "processed_images", "page1_processed.jpg")
	if result.PreprocessedImage != expected {
		t.Errorf("preprocessed image path = %q, want %q", result.PreprocessedImage, expected)
	}
	if _, err := os.Stat(expected); err != nil {
		t.Errorf("processed copy not on disk: %v", err)
	}
}

func TestProcessDirectoryEmpty(t *testing.T) {
	extractor := &fakeExtractor{record: &extraction.Record{}}
	p := newTestPipeline(t, extractor, nil, Options{})

	results, summary, err := p.ProcessDirectory(context.Background(), t.TempDir(), "*.jpg", "")
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}

	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
	if summary.TotalImages != 0 || summary.Successful != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want zero counts", summary)
	}
}

func TestProcessDirectoryBatch(t *testing.T) {
	srcDir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.jpg", "c.txt"} {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte("img"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	extractor := &fakeExtractor{record: &extraction.Record{Transcription: "x"}, cost: 0.25}
	outputDir := t.TempDir()
	p := newTestPipeline(t, extractor, nil, Options{OutputDir: outputDir, Preprocess: false})

	results, summary, err := p.ProcessDirectory(context.Background(), srcDir, "*.jpg", "")
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (pattern must exclude c.txt)", len(results))
	}
	// Name-sorted processing order.
	if filepath.Base(results[0].SourceImage) != "a.jpg" || filepath.Base(results[1].SourceImage) != "b.jpg" {
		t.Errorf("batch order = %s, %s; want a.jpg, b.jpg",
			results[0].SourceImage, results[1].SourceImage)
	}

	if summary.TotalImages != 2 || summary.Successful != 2 || summary.Failed != 0 {
		t.Errorf("summary counts = %+v", summary)
	}
	if summary.TotalCost != 0.25 {
		t.Errorf("total cost = %v, want the extractor session cost", summary.TotalCost)
	}

	matches, _ := filepath.Glob(filepath.Join(outputDir, "batch_summary_*.json"))
	if len(matches) != 1 {
		t.Fatalf("expected one batch summary file, found %d", len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	var persisted Summary
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("batch summary not valid JSON: %v", err)
	}
	if persisted.TotalImages != 2 {
		t.Errorf("persisted summary total = %d", persisted.TotalImages)
	}
}

func TestProcessDirectoryContinuesAfterFailure(t *testing.T) {
	srcDir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.jpg"} {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte("img"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	// Fails on the first call, succeeds on the second.
	extractor := &flakyExtractor{}
	p := newTestPipeline(t, extractor, nil, Options{Preprocess: false})

	results, summary, err := p.ProcessDirectory(context.Background(), srcDir, "*.jpg", "")
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("one failure must not abort the batch; results = %d", len(results))
	}
	if summary.Successful != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 success and 1 failure", summary)
	}
}

type flakyExtractor struct{ calls int }

func (f *flakyExtractor) Extract(ctx context.Context, imageData []byte, imageMIME, prompt string) (*extraction.Record, error) {
	f.calls++
	if f.calls == 1 {
		return nil, &extraction.ExtractionError{Err: errors.New("boom")}
	}
	return &extraction.Record{Transcription: "ok"}, nil
}

func (f *flakyExtractor) SessionCost() float64 { return 0 }
func (f *flakyExtractor) Model() string        { return "flaky" }
