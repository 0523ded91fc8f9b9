package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/reciperag/internal/domain"
)

// Config holds the reciperag API configuration.
type Config struct {
	HTTP      HTTPConfig                `yaml:"http"`
	Elastic   ElasticConfig             `yaml:"elastic"`
	Postgres  PostgresConfig            `yaml:"postgres"`
	Embedding EmbeddingConfig           `yaml:"embedding"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Judge     JudgeConfig               `yaml:"judge"`
	Retrieval RetrievalConfig           `yaml:"retrieval"`
	Pricing   map[string]RateConfig     `yaml:"pricing"`
	Logging   LoggingConfig             `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ElasticConfig holds search index connection settings.
type ElasticConfig struct {
	Addrs            []string `yaml:"addrs"`
	Index            string   `yaml:"index"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PostgresConfig holds the conversation store connection settings.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// EmbeddingConfig holds query encoder settings. The base URL points at any
// OpenAI-compatible embeddings endpoint.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// ProviderConfig holds one generation provider's settings, keyed by provider
// name ("openai", "ollama") in Config.Providers.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// JudgeConfig holds the relevance judge settings.
type JudgeConfig struct {
	Model string `yaml:"model"` // "<provider>/<model>"
}

// RetrievalConfig holds search sizing settings.
type RetrievalConfig struct {
	TopK          int `yaml:"top_k"`
	NumCandidates int `yaml:"num_candidates"`
}

// RateConfig holds per-1000-token rates for one model choice, overriding the
// compiled-in pricing table.
type RateConfig struct {
	PromptPer1K     float64 `yaml:"prompt_per_1k"`
	CompletionPer1K float64 `yaml:"completion_per_1k"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Two sequential LLM calls per request; give them room.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Elastic.Index == "" {
		c.Elastic.Index = "recipes"
	}
	if c.Elastic.ReadinessTimeout <= 0 {
		c.Elastic.ReadinessTimeout = 10
	}
	if c.Postgres.MaxOpenConns <= 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = domain.EmbeddingDimensions
	}
	if c.Judge.Model == "" {
		c.Judge.Model = "openai/gpt-4o-mini"
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.NumCandidates <= 0 {
		c.Retrieval.NumCandidates = 10000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Elastic.Addrs) == 0 {
		return fmt.Errorf("elastic.addrs is required")
	}
	for name := range c.Providers {
		if !domain.Provider(name).IsValid() {
			return fmt.Errorf("providers.%s: unknown provider", name)
		}
	}
	if _, err := domain.ParseModelChoice(c.Judge.Model); err != nil {
		return fmt.Errorf("judge.model: %w", err)
	}
	for choice, rate := range c.Pricing {
		if _, err := domain.ParseModelChoice(choice); err != nil {
			return fmt.Errorf("pricing.%s: %w", choice, err)
		}
		if rate.PromptPer1K < 0 || rate.CompletionPer1K < 0 {
			return fmt.Errorf("pricing.%s: rates must be non-negative", choice)
		}
	}
	if c.Retrieval.NumCandidates < c.Retrieval.TopK {
		return fmt.Errorf("retrieval.num_candidates must be >= retrieval.top_k")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
