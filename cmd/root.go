package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/monty-notes/inkwell/internal/providers"
	"github.com/monty-notes/inkwell/internal/providers/gemini"
	"github.com/monty-notes/inkwell/internal/providers/ollama"
	"github.com/monty-notes/inkwell/internal/providers/openai"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Handwritten note ingestion with vision-LLM transcription",
		Long: `Inkwell converts photographs of handwritten pages into structured,
searchable markdown notes.

Images are normalized (orientation, denoising, contrast), transcribed and
analyzed by a vision-capable LLM, and written out as markdown documents
with metadata frontmatter plus JSON audit records.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newPreprocessCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}

// resolveProvider builds the vision provider named by the flag, falling
// back to the INKWELL_PROVIDER environment variable and then to openai.
func resolveProvider(name string) (providers.Provider, error) {
	if name == "" {
		name = os.Getenv("INKWELL_PROVIDER")
	}
	if name == "" {
		name = "openai"
	}

	switch name {
	case "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	case "ollama":
		return ollama.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s (supported: openai, gemini, ollama)", name)
	}
}
