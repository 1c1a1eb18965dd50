package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the process-wide settings. It is loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	// Generation service
	Provider       string  `yaml:"provider"`
	Model          string  `yaml:"model"`
	GeminiEndpoint string  `yaml:"gemini_endpoint"`
	EnableSearch   bool    `yaml:"enable_search"`
	Temperature    float64 `yaml:"temperature"`
	OllamaURL      string  `yaml:"ollama_url"`

	// Image resolution
	UserAgent        string        `yaml:"user_agent"`
	ScrapeTimeout    time.Duration `yaml:"scrape_timeout"`
	SearchTimeout    time.Duration `yaml:"search_timeout"`
	UnsplashEndpoint string        `yaml:"unsplash_endpoint"`
	ImageCacheSize   int           `yaml:"image_cache_size"`
	ImageCacheTTL    time.Duration `yaml:"image_cache_ttl"`

	// HTTP server
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	// Credentials only ever come from the environment.
	GenerationAPIKey  string `yaml:"-"`
	ImageSearchAPIKey string `yaml:"-"`
	OpenAIAPIKey      string `yaml:"-"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Provider:         "gemini",
		GeminiEndpoint:   "https://generativelanguage.googleapis.com",
		EnableSearch:     false,
		OllamaURL:        "http://localhost:11434",
		UserAgent:        "Laissez-faire-Bot/1.0",
		ScrapeTimeout:    4 * time.Second,
		SearchTimeout:    5 * time.Second,
		UnsplashEndpoint: "https://api.unsplash.com",
		ImageCacheSize:   256,
		ImageCacheTTL:    time.Hour,
		RateLimit:        0,
		RateBurst:        1,
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	// Keys are routinely pasted with trailing newlines.
	c.GenerationAPIKey = env("GOOGLE_API_KEY")
	if c.GenerationAPIKey == "" {
		c.GenerationAPIKey = env("GEMINI_API_KEY")
	}
	c.ImageSearchAPIKey = env("UNSPLASH_ACCESS_KEY")
	c.OpenAIAPIKey = env("OPENAI_API_KEY")

	if v := env("MEALPLANNER_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := env("MEALPLANNER_MODEL"); v != "" {
		c.Model = v
	}
	if v := env("OLLAMA_URL"); v != "" {
		c.OllamaURL = v
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Provider {
	case "gemini", "gemini-sdk", "openai", "ollama":
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	if c.ScrapeTimeout <= 0 {
		return fmt.Errorf("scrape_timeout must be positive")
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("search_timeout must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	return nil
}

// DefaultModel is the model used for provider when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o"
	case "ollama":
		return "llama3.1"
	default:
		return "gemini-2.5-flash"
	}
}

// ImageSearchEnabled reports whether the stock photo tier can run.
func (c *Config) ImageSearchEnabled() bool {
	return c.ImageSearchAPIKey != ""
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
