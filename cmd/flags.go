package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-triage/internal/config"
)

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
// This is appropriate for flags defined in init() - errors indicate programming bugs.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetFloat64 gets a float64 flag value or panics if the flag doesn't exist.
func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// addEmbedderFlags registers the flags shared by refs and sort.
func addEmbedderFlags(cmd *cobra.Command) {
	cmd.Flags().String("embedder", "", "Embedding backend: auto, face or phash (default from config)")
	cmd.Flags().String("embedding-url", "", "Face embedding server URL (default from config)")
	cmd.Flags().Int("concurrency", 0, "Parallel embedding workers (default from config)")
}

// applyEmbedderFlags overrides cfg with any embedder flag the user set and
// revalidates it.
func applyEmbedderFlags(cmd *cobra.Command, cfg *config.LocalAppConfig) error {
	if v := mustGetString(cmd, "embedder"); v != "" {
		cfg.Embedder = v
	}
	if v := mustGetString(cmd, "embedding-url"); v != "" {
		cfg.EmbeddingURL = v
	}
	if v := mustGetInt(cmd, "concurrency"); v > 0 {
		cfg.Concurrency = v
	}
	return cfg.Validate()
}
