package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-triage/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "photo-triage",
	Short: "Sort photos into per-person folders by comparing embeddings",
	Long: `Photo Triage keeps reference embeddings for a set of people and assigns
unknown photos to the most similar person.

Run "photo-triage serve" to start the API, "photo-triage refs" to register a
folder of reference photos, and "photo-triage sort" to sort an inbox.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("config", "config.yaml", "Local app config file (YAML)")
	rootCmd.PersistentFlags().String("backend", "", "API base URL, overrides config and BACKEND_URL")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadLocalApp reads the local app config and applies the backend flag.
func loadLocalApp(cmd *cobra.Command) (config.LocalAppConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadLocalApp(path)
	if err != nil {
		return cfg, err
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.BackendURL = backend
	}
	return cfg, nil
}

// newRunLogger returns the process logger tagged with a fresh run id.
func newRunLogger(command string) *slog.Logger {
	cfg := config.Load()
	return cfg.Log.NewLogger().With(
		slog.String("cmd", command),
		slog.String("run", uuid.NewString()),
	)
}
