package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. It is constructed once
// at startup; credentials are read from the environment at load time and
// never re-read during a run.
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration (serve command)
	Server ServerConfig `mapstructure:"server"`

	// Provider chain configuration
	Providers ProvidersConfig `mapstructure:"providers"`

	// Generation stage configuration
	Generate GenerateConfig `mapstructure:"generate"`

	// Analysis stage configuration
	Analyze AnalyzeConfig `mapstructure:"analyze"`

	// Analysis cache configuration
	Cache CacheConfig `mapstructure:"cache"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// ProvidersConfig holds the ordered provider chain. Order encodes fallback
// priority: the first entry is tried first on every call.
type ProvidersConfig struct {
	Order  []string       `mapstructure:"order"`
	Gemini ProviderConfig `mapstructure:"gemini"`
	OpenAI ProviderConfig `mapstructure:"openai"`
	Groq   ProviderConfig `mapstructure:"groq"`
	Ollama ProviderConfig `mapstructure:"ollama"`
}

// ProviderConfig holds one backend's settings.
type ProviderConfig struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// GenerateConfig holds dialogue generation settings.
type GenerateConfig struct {
	Output       string  `mapstructure:"output"`
	ScenarioFile string  `mapstructure:"scenario_file"`
	Language     string  `mapstructure:"language"`
	Temperature  float32 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
}

// AnalyzeConfig holds dialogue analysis settings.
type AnalyzeConfig struct {
	Input       string  `mapstructure:"input"`
	Output      string  `mapstructure:"output"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// CacheConfig holds analysis cache settings.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Path     string `mapstructure:"path"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// Provider returns the named backend's settings.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch strings.ToLower(name) {
	case "gemini":
		return c.Providers.Gemini, true
	case "openai":
		return c.Providers.OpenAI, true
	case "groq":
		return c.Providers.Groq, true
	case "ollama":
		return c.Providers.Ollama, true
	}
	return ProviderConfig{}, false
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	// Provider defaults. Gemini first: the original pipeline ran on Flash
	// models, and they stay the cheapest option for this workload.
	viper.SetDefault("providers.order", []string{"gemini", "openai", "groq"})
	viper.SetDefault("providers.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("providers.openai.model", "gpt-4o-mini")
	viper.SetDefault("providers.groq.model", "llama-3.1-8b-instant")
	viper.SetDefault("providers.ollama.model", "llama3")
	viper.SetDefault("providers.ollama.base_url", "http://localhost:11434")

	// Generation defaults
	viper.SetDefault("generate.output", "dataset.json")
	viper.SetDefault("generate.language", "Ukrainian")
	viper.SetDefault("generate.temperature", 1.0)
	viper.SetDefault("generate.max_tokens", 2048)

	// Analysis defaults. Temperature zero keeps analysis deterministic.
	viper.SetDefault("analyze.input", "dataset.json")
	viper.SetDefault("analyze.output", "analyzed_dataset.json")
	viper.SetDefault("analyze.temperature", 0.0)
	viper.SetDefault("analyze.max_tokens", 1024)

	// Cache defaults
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.path", ".chatforge-cache")
	viper.SetDefault("cache.ttl_hours", 720)
}

// overrideWithEnv overrides config with environment variables. Absence of a
// key here is what later marks the provider misconfigured for the whole run.
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		config.Providers.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Providers.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Providers.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("GROQ_API_KEY"); apiKey != "" {
		config.Providers.Groq.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Providers.Ollama.BaseURL = baseURL
	}
}
