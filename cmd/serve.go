package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/longbox-labs/comicscan/internal/batch"
	"github.com/longbox-labs/comicscan/internal/catalog"
	"github.com/longbox-labs/comicscan/internal/classify"
	"github.com/longbox-labs/comicscan/internal/confirm"
	"github.com/longbox-labs/comicscan/internal/feedback"
	"github.com/longbox-labs/comicscan/internal/handlers"
	"github.com/longbox-labs/comicscan/internal/imagepipe"
	"github.com/longbox-labs/comicscan/internal/pricing"
	"github.com/longbox-labs/comicscan/internal/queue"
	"github.com/longbox-labs/comicscan/internal/reprint"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var uploadsDir string
	var feedbackDir string
	var keywordsFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scanning web service",
		Long: `Starts the comicscan web service on the specified port.

The service accepts batches of comic photographs, identifies them through
the configured classifier provider, and persists catalog records only on
explicit user confirmation.`,
		Example: `  # Start server on default port 8888
  comicscan serve

  # Start server on custom port
  comicscan serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier, err := classify.New()
			if err != nil {
				return err
			}

			filter := reprint.NewFilter()
			if keywordsFile != "" {
				filter, err = reprint.NewFilterFromFile(keywordsFile)
				if err != nil {
					return err
				}
			}

			recorder, err := feedback.NewRecorder(feedbackDir)
			if err != nil {
				return err
			}
			defer func() {
				if err := recorder.Close(); err != nil {
					slog.Warn("Failed to close feedback recorder", "err", err)
				}
			}()

			store := batch.New()
			processor := queue.New(store, classifier, imagepipe.New(), filter)
			gate := confirm.New(store, catalog.NewClient())
			handler := handlers.New(store, processor, gate, pricing.New(), recorder, uploadsDir)

			// The processor worker is the only goroutine that claims items.
			workerCtx, stopWorker := context.WithCancel(cmd.Context())
			defer stopWorker()
			go processor.Run(workerCtx)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/batches", handler.HandleBatches)
			mux.HandleFunc("/api/batches/", handler.HandleBatchDetail)
			mux.HandleFunc("/static/", handler.HandleStatic)
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
				slog.Info("Comicscan service available", "addr", addr, "url", "http://localhost"+addr)
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
	cmd.Flags().StringVar(&uploadsDir, "uploads-dir", "uploads", "Directory for stored photographs")
	cmd.Flags().StringVar(&feedbackDir, "feedback-dir", "feedback", "Directory for the feedback tuning dataset")
	cmd.Flags().StringVar(&keywordsFile, "reprint-keywords", "", "YAML file with extra reprint keywords")

	return cmd
}
