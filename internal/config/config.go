package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-triage/internal/classifier"
	"github.com/kozaktomas/photo-triage/internal/constants"
)

type Config struct {
	Web      WebConfig
	Store    StoreConfig
	Log      LogConfig
	LocalApp LocalAppConfig
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // empty allows any origin
	RateLimit      float64  // requests per second, 0 disables limiting
	RateBurst      int
}

type StoreConfig struct {
	Policy string // lock or cow
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// LocalAppConfig drives the refs and sort commands. It is read from a YAML
// file and then overridden by environment variables.
type LocalAppConfig struct {
	BackendURL   string  `yaml:"backend_url"`
	Threshold    float64 `yaml:"threshold"`
	Mode         string  `yaml:"mode"`          // move, copy or link
	Embedder     string  `yaml:"embedder"`      // auto, face or phash
	EmbeddingURL string  `yaml:"embedding_url"` // face embedding server
	Concurrency  int     `yaml:"concurrency"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a non-negative float; invalid values fall back to the default.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load reads the server configuration from the environment.
func Load() *Config {
	port := envInt("PORT", constants.DefaultPort)
	return &Config{
		Web: WebConfig{
			Host:           envString("WEB_HOST", constants.DefaultHost),
			Port:           envInt("WEB_PORT", port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
			RateLimit:      envFloat("WEB_RATE_LIMIT", 0),
			RateBurst:      envInt("WEB_RATE_BURST", constants.DefaultRateBurst),
		},
		Store: StoreConfig{
			Policy: envString("REFSTORE_POLICY", "lock"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
	}
}

// DefaultLocalApp returns the local app settings used when no file exists.
func DefaultLocalApp() LocalAppConfig {
	return LocalAppConfig{
		BackendURL:  constants.DefaultBackendURL,
		Threshold:   classifier.DefaultThreshold,
		Mode:        "move",
		Embedder:    "auto",
		Concurrency: constants.DefaultConcurrency,
	}
}

// LoadLocalApp reads path on top of the defaults, then applies BACKEND_URL,
// EMBEDDER and EMBEDDING_URL. A missing file is not an error. The result is
// not validated so command-line overrides can still be applied; call
// Validate once they are.
func LoadLocalApp(path string) (LocalAppConfig, error) {
	cfg := DefaultLocalApp()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	cfg.BackendURL = envString("BACKEND_URL", cfg.BackendURL)
	cfg.Embedder = envString("EMBEDDER", cfg.Embedder)
	cfg.EmbeddingURL = envString("EMBEDDING_URL", cfg.EmbeddingURL)

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = constants.DefaultConcurrency
	}
	return cfg, nil
}

// Validate rejects values the commands cannot act on.
func (c *LocalAppConfig) Validate() error {
	switch c.Mode {
	case "move", "copy", "link":
	default:
		return fmt.Errorf("invalid mode %q (expected move, copy or link)", c.Mode)
	}
	switch c.Embedder {
	case "auto", "face", "phash":
	default:
		return fmt.Errorf("invalid embedder %q (expected auto, face or phash)", c.Embedder)
	}
	if c.Embedder == "face" && c.EmbeddingURL == "" {
		return errors.New("embedder face requires embedding_url or EMBEDDING_URL")
	}
	return nil
}

// SlogLevel maps the configured level name; unknown names mean info.
func (c *LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from the log configuration.
func (c *LogConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
