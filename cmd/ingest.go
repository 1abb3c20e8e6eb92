package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/monty-notes/inkwell/internal/extraction"
	"github.com/monty-notes/inkwell/internal/ingest"
	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var (
		outputDir    string
		pattern      string
		noPreprocess bool
		noSaveImages bool
		promptFile   string
		providerName string
		model        string
		course       string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ingest <image-or-directory>",
		Short: "Process handwritten note images into markdown notes",
		Long: `Processes one note image, or every matching image in a directory, through
the full pipeline: preprocessing, vision-LLM transcription and analysis,
and markdown + JSON audit output.`,
		Example: `  # Process a single image
  inkwell ingest photo.jpg

  # Process a directory of PNGs
  inkwell ingest photos/ --pattern "*.png"

  # Skip preprocessing and use a custom analysis prompt
  inkwell ingest photo.jpg --no-preprocess --prompt prompt.txt

  # Use Gemini instead of the default provider
  inkwell ingest photo.jpg --provider gemini`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]

			info, err := os.Stat(inputPath)
			if err != nil {
				return fmt.Errorf("input path does not exist: %s", inputPath)
			}

			prompt, err := loadPromptFile(promptFile)
			if err != nil {
				return err
			}

			provider, err := resolveProvider(providerName)
			if err != nil {
				return err
			}

			client := extraction.NewClient(provider, extraction.WithModel(model))
			pipeline, err := ingest.New(client, ingest.Options{
				OutputDir:     outputDir,
				Preprocess:    !noPreprocess,
				SaveProcessed: !noSaveImages,
				Course:        course,
				Timeout:       timeout,
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			if info.IsDir() {
				results, summary, err := pipeline.ProcessDirectory(ctx, inputPath, pattern, prompt)
				if err != nil {
					return err
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d images failed", summary.Failed, len(results))
				}
				return nil
			}

			result := pipeline.ProcessImage(ctx, inputPath, prompt)
			if !result.Success {
				return fmt.Errorf("failed to process %s: %s", inputPath, result.Error)
			}
			fmt.Printf("Note written to %s\n", result.OutputMarkdown)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "data", "Output directory")
	cmd.Flags().StringVar(&pattern, "pattern", "*.jpg", "File pattern for directory mode")
	cmd.Flags().BoolVar(&noPreprocess, "no-preprocess", false, "Skip image preprocessing")
	cmd.Flags().BoolVar(&noSaveImages, "no-save-images", false, "Do not save preprocessed images")
	cmd.Flags().StringVar(&promptFile, "prompt", "", "Custom analysis prompt file")
	cmd.Flags().StringVar(&providerName, "provider", "", "LLM provider (openai, gemini, or ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to provider's default)")
	cmd.Flags().StringVar(&course, "course", "PHIL402", "Course label written into note frontmatter")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout per extraction call")

	return cmd
}

// loadPromptFile reads a custom analysis prompt, returning "" (use the
// default prompt) when no file was given.
func loadPromptFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", path, err)
	}
	slog.Info("Loaded custom prompt", "path", path)
	return string(data), nil
}
