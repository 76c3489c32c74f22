package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-triage/internal/config"
	"github.com/kozaktomas/photo-triage/internal/refstore"
	"github.com/kozaktomas/photo-triage/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Photo Triage API server.

The server keeps reference embeddings in memory for the life of the process
and answers:
  GET  /api/health         registered persons
  POST /api/refs/register  add or replace reference embeddings
  POST /api/sort           classify unknown embeddings`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT/PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST or 0.0.0.0)")
	serveCmd.Flags().String("policy", "", "Reference store concurrency policy: lock or cow (default from REFSTORE_POLICY)")
}

// resolveServeConfig applies serve flags on top of the environment.
func resolveServeConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if policy := mustGetString(cmd, "policy"); policy != "" {
		cfg.Store.Policy = policy
	}
	return cfg
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := resolveServeConfig(cmd)
	logger := cfg.Log.NewLogger()

	policy, err := refstore.ParsePolicy(cfg.Store.Policy)
	if err != nil {
		return err
	}
	store := refstore.New(refstore.WithPolicy(policy))
	logger.Info("reference store ready", slog.String("policy", store.Policy().String()))

	server := web.NewServer(cfg, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("Photo Triage API listening on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
