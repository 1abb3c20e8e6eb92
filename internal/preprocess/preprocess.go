// Package preprocess normalizes photographs of handwritten pages before
// they are sent for vision-model transcription. It corrects coarse page
// orientation, removes sensor/paper noise, and enhances local contrast.
package preprocess

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
)

// Size holds image dimensions in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Trace records which normalization steps ran on one image and how the
// dimensions changed. It is attached to the per-image processing result
// for diagnostics and reproducibility.
type Trace struct {
	OriginalPath    string   `json:"original_path,omitempty"`
	OriginalSize    Size     `json:"original_size"`
	FinalSize       Size     `json:"final_size"`
	RotationApplied int      `json:"rotation_applied"`
	Steps           []string `json:"steps"`
}

// Options selects which pipeline stages run. Stages always execute in the
// fixed order orient, denoise, enhance.
type Options struct {
	AutoOrient bool
	Denoise    bool
	Enhance    bool
}

// DefaultOptions enables every stage.
func DefaultOptions() Options {
	return Options{AutoOrient: true, Denoise: true, Enhance: true}
}

// ImageLoadError reports a source image that could not be read or decoded.
type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("could not load image %s: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

// Pipeline preprocesses images of handwritten notes for transcription.
type Pipeline struct{}

// NewPipeline returns a preprocessing pipeline with the tuned filter
// parameters used throughout inkwell.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// LoadImage decodes an image file from disk.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}
	return img, nil
}

// SaveJPEG writes an image to disk as JPEG, creating parent directories
// as needed.
func SaveJPEG(img image.Image, path string, quality int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return nil
}

// Process runs the normalization pipeline on a decoded image and returns
// the normalized image plus a trace of the steps applied. All stages are
// pure transforms; Process never fails on a valid decoded image.
func (p *Pipeline) Process(img image.Image, opts Options) (image.Image, *Trace) {
	bounds := img.Bounds()
	trace := &Trace{
		OriginalSize: Size{Width: bounds.Dx(), Height: bounds.Dy()},
		Steps:        []string{},
	}

	if opts.AutoOrient {
		angle := DetectOrientation(img)
		if angle != 0 {
			img = Rotate(img, angle)
			trace.RotationApplied = angle
			trace.Steps = append(trace.Steps, fmt.Sprintf("rotated_%ddeg", angle))
			slog.Info("Rotated image", "degrees", angle)
		}
	}

	if opts.Denoise {
		img = BilateralFilter(img, 9, 75, 75)
		trace.Steps = append(trace.Steps, "denoised")
	}

	if opts.Enhance {
		img = EnhanceContrast(img)
		trace.Steps = append(trace.Steps, "contrast_enhanced")
	}

	final := img.Bounds()
	trace.FinalSize = Size{Width: final.Dx(), Height: final.Dy()}

	slog.Info("Preprocessing complete", "steps", trace.Steps)
	return img, trace
}

// ProcessFile loads an image from disk and runs the pipeline on it.
func (p *Pipeline) ProcessFile(path string, opts Options) (image.Image, *Trace, error) {
	slog.Info("Preprocessing image", "path", path)

	img, err := LoadImage(path)
	if err != nil {
		return nil, nil, err
	}

	out, trace := p.Process(img, opts)
	trace.OriginalPath = path
	return out, trace, nil
}
