package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/laissez-faire/mealplanner/internal/config"
	"github.com/laissez-faire/mealplanner/internal/handlers"
	"github.com/laissez-faire/mealplanner/internal/metrics"
	"github.com/laissez-faire/mealplanner/internal/planner"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port string
	var flags providerFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recipe generation API",
		Long: `Starts the Mealplanner HTTP API on the specified port.

POST /api/generate accepts {count, people, diet, kidFriendly, priority}
and answers with a JSON array of recipes, each with an imageUrl.`,
		Example: `  # Start server on default port 8888
  mealplanner serve

  # Start server on custom port with search grounding
  mealplanner serve --port 3000 --search`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, &flags)
			if err != nil {
				return err
			}

			svc, err := planner.New(cfg)
			if err != nil {
				return err
			}
			if cfg.GenerationAPIKey == "" && (cfg.Provider == "gemini" || cfg.Provider == "gemini-sdk") {
				slog.Warn("GOOGLE_API_KEY not set, generation requests will fail")
			}

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: newMux(cfg, handlers.New(svc)),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Mealplanner API available", "addr", addr, "provider", cfg.Provider, "model", cfg.Model, "search", cfg.EnableSearch)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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
	flags.register(cmd)

	return cmd
}

func newMux(cfg *config.Config, handler *handlers.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	generate := handlers.RateLimit(cfg.RateLimit, cfg.RateBurst, http.HandlerFunc(handler.HandleGenerate))
	mux.Handle("/api/generate", metrics.Middleware("/api/generate", generate))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	return mux
}
