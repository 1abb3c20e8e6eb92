package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/monty-notes/inkwell/internal/preprocess"
	"github.com/spf13/cobra"
)

func newPreprocessCmd() *cobra.Command {
	var (
		noOrient  bool
		noDenoise bool
		noEnhance bool
		quality   int
	)

	cmd := &cobra.Command{
		Use:   "preprocess <image>",
		Short: "Normalize a note image without transcribing it",
		Long: `Runs only the image normalization pipeline (orientation correction,
denoising, contrast enhancement) and saves the result next to the source
as <stem>_processed.jpg.`,
		Example: `  # Full normalization
  inkwell preprocess photo.jpg

  # Orientation correction only
  inkwell preprocess photo.jpg --no-denoise --no-enhance`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath := args[0]

			pipeline := preprocess.NewPipeline()
			img, trace, err := pipeline.ProcessFile(imagePath, preprocess.Options{
				AutoOrient: !noOrient,
				Denoise:    !noDenoise,
				Enhance:    !noEnhance,
			})
			if err != nil {
				return err
			}

			dir := filepath.Dir(imagePath)
			base := filepath.Base(imagePath)
			stem := strings.TrimSuffix(base, filepath.Ext(base))
			outputPath := filepath.Join(dir, stem+"_processed.jpg")

			if err := preprocess.SaveJPEG(img, outputPath, quality); err != nil {
				return err
			}

			fmt.Printf("Processed image saved to %s\n", outputPath)
			fmt.Printf("Steps applied: %s\n", strings.Join(trace.Steps, ", "))
			fmt.Printf("Rotation: %d degrees\n", trace.RotationApplied)
			fmt.Printf("Size: %dx%d -> %dx%d\n",
				trace.OriginalSize.Width, trace.OriginalSize.Height,
				trace.FinalSize.Width, trace.FinalSize.Height)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noOrient, "no-orient", false, "Skip orientation correction")
	cmd.Flags().BoolVar(&noDenoise, "no-denoise", false, "Skip denoising")
	cmd.Flags().BoolVar(&noEnhance, "no-enhance", false, "Skip contrast enhancement")
	cmd.Flags().IntVar(&quality, "quality", 95, "JPEG quality for the saved image")

	return cmd
}
