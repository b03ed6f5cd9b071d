// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
)

// BackendConfig holds credentials and tuning for one generation backend.
// An empty APIKey disables the backend without being an error.
type BackendConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxTokens      int
}

// BackendsConfig groups the generation backends and their priority order.
type BackendsConfig struct {
	Order  []string // tried first to last
	Gemini BackendConfig
	Cohere BackendConfig
	OpenAI BackendConfig
}

// Config is the full process configuration.
type Config struct {
	Listen      string
	SessionsDir string
	AdminJID    string // privileged sender for in-chat admin commands, optional
	LogLevel    string
	Backends    BackendsConfig
}

func defaults() Config {
	return Config{
		Listen:      ":3000",
		SessionsDir: "sessions",
		LogLevel:    "info",
		Backends: BackendsConfig{
			Order: []string{"gemini", "cohere", "openai"},
			Gemini: BackendConfig{
				BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
				Model:          "gemini-pro",
				TimeoutSeconds: 20,
			},
			Cohere: BackendConfig{
				BaseURL:        "https://api.cohere.ai",
				Model:          "command-r-plus",
				TimeoutSeconds: 20,
			},
			OpenAI: BackendConfig{
				Model:          "gpt-5-mini",
				TimeoutSeconds: 20,
				MaxTokens:      800,
			},
		},
	}
}

// Load reads configuration from the environment, after a best-effort .env load.
// Unset values fall back to defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logging.L_debug("config: no .env loaded", "error", err)
	}

	cfg := Config{
		Listen:      listenFromEnv(),
		SessionsDir: os.Getenv("SESSIONS_DIR"),
		AdminJID:    os.Getenv("ADMIN_JID"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Backends: BackendsConfig{
			Order: listFromEnv("BACKENDS_ORDER"),
			Gemini: BackendConfig{
				APIKey:         os.Getenv("GEMINI_API_KEY"),
				BaseURL:        os.Getenv("GEMINI_BASE_URL"),
				Model:          os.Getenv("GEMINI_MODEL"),
				TimeoutSeconds: intFromEnv("GEMINI_TIMEOUT_SECONDS"),
			},
			Cohere: BackendConfig{
				APIKey:         os.Getenv("COHERE_API_KEY"),
				BaseURL:        os.Getenv("COHERE_BASE_URL"),
				Model:          os.Getenv("COHERE_MODEL"),
				TimeoutSeconds: intFromEnv("COHERE_TIMEOUT_SECONDS"),
			},
			OpenAI: BackendConfig{
				APIKey:         os.Getenv("OPENAI_API_KEY"),
				BaseURL:        os.Getenv("OPENAI_BASE_URL"),
				Model:          os.Getenv("OPENAI_MODEL"),
				TimeoutSeconds: intFromEnv("OPENAI_TIMEOUT_SECONDS"),
				MaxTokens:      intFromEnv("OPENAI_MAX_TOKENS"),
			},
		},
	}

	if err := mergo.Merge(&cfg, defaults()); err != nil {
		return nil, fmt.Errorf("failed to merge config defaults: %w", err)
	}

	return &cfg, nil
}

// listFromEnv parses a comma-separated env value into its non-empty items.
func listFromEnv(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// intFromEnv parses a positive integer env value; unset or malformed
// values read as zero so the default wins in the merge.
func intFromEnv(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logging.L_warn("config: ignoring invalid numeric value", "key", key, "value", v)
		return 0
	}
	return n
}

// listenFromEnv honors LISTEN first, then a bare PORT (hosting platforms
// commonly inject only PORT).
func listenFromEnv() string {
	if v := os.Getenv("LISTEN"); v != "" {
		return v
	}
	if v := os.Getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err == nil {
			return ":" + v
		}
	}
	return ""
}

// LogLevelValue maps the textual log level to a logging package level.
func (c *Config) LogLevelValue() int {
	switch c.LogLevel {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// Backend returns the named backend config, or nil for unknown names.
func (b *BackendsConfig) Backend(name string) *BackendConfig {
	switch name {
	case "gemini":
		return &b.Gemini
	case "cohere":
		return &b.Cohere
	case "openai":
		return &b.OpenAI
	default:
		return nil
	}
}
