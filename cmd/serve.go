package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/monty-notes/inkwell/internal/extraction"
	"github.com/monty-notes/inkwell/internal/handlers"
	"github.com/monty-notes/inkwell/internal/ingest"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port         string
		outputDir    string
		providerName string
		model        string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for note ingestion",
		Long: `Starts the Inkwell upload interface on the specified port.

Uploaded note images (multipart file or image URL) run through the full
ingestion pipeline; results are available as sessions under /api/sessions.`,
		Example: `  # Start server on default port 8888
  inkwell serve

  # Start server on custom port with Gemini
  inkwell serve --port 3000 --provider gemini`,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := resolveProvider(providerName)
			if err != nil {
				return err
			}

			client := extraction.NewClient(provider, extraction.WithModel(model))
			pipeline, err := ingest.New(client, ingest.Options{
				OutputDir:     outputDir,
				Preprocess:    true,
				SaveProcessed: true,
				Timeout:       2 * time.Minute,
			})
			if err != nil {
				return err
			}

			handler := handlers.New(pipeline, provider.Name(), client.Model())

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/sessions", handler.HandleSessions)
			mux.HandleFunc("/api/sessions/", handler.HandleSessionDetail)
			mux.HandleFunc("/api/upload", handler.HandleUpload)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Inkwell interface available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "data", "Output directory")
	cmd.Flags().StringVar(&providerName, "provider", "", "LLM provider (openai, gemini, or ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to provider's default)")

	return cmd
}
