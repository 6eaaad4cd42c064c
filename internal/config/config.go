package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/drpaneas/voiceprint/internal/llm"
	"github.com/spf13/viper"
)

// Data source kinds.
const (
	SourceAPI  = "api"
	SourceFile = "file"
)

// Cache backends.
const (
	CacheSQLite = "sqlite"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all runtime configuration for voiceprint.
type Config struct {
	Provider      llm.ProviderName
	Model         string
	APIKey        string
	OllamaHost    string
	OpenAIBaseURL string

	DataSource      string
	DataAPIBaseURL  string
	DataAPIHost     string
	DataAPIKey      string
	DataBearerToken string
	DataFile        string
	RequestsPerHour int
	MaxPages        int

	MinHistory     int
	RecencyWindow  time.Duration
	Variations     int
	RetriesPerSlot int
	Temperature    float64
	Approaches     []string
	MinChars       int
	MaxChars       int
	MinWords       int
	MaxWords       int
	DenylistPath   string

	CacheBackend string
	CachePath    string
	RedisURL     string
	SignatureTTL time.Duration
	PostsTTL     time.Duration

	CallTimeout time.Duration
	OutputDir   string
	Verbose     bool
	LogFormat   string
}

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", string(llm.ProviderAnthropic))
	v.SetDefault("model", "")
	v.SetDefault("ollama-host", "http://localhost:11434")
	v.SetDefault("openai-base-url", "")

	v.SetDefault("data-source", SourceAPI)
	v.SetDefault("data-api-base-url", "https://linkedin-scraper-api-real-time-fast-affordable.p.rapidapi.com")
	v.SetDefault("data-api-host", "linkedin-scraper-api-real-time-fast-affordable.p.rapidapi.com")
	v.SetDefault("data-file", "")
	v.SetDefault("requests-per-hour", 100)
	v.SetDefault("max-pages", 3)

	v.SetDefault("min-history", 10)
	v.SetDefault("recency-window", 30*24*time.Hour)
	v.SetDefault("variations", 3)
	v.SetDefault("retries-per-slot", 2)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("approaches", []string{"agreement-elaboration", "question", "personal-anecdote"})
	v.SetDefault("min-chars", 30)
	v.SetDefault("max-chars", 1250)
	v.SetDefault("min-words", 5)
	v.SetDefault("max-words", 150)
	v.SetDefault("denylist", "")

	v.SetDefault("cache", CacheSQLite)
	v.SetDefault("cache-path", "")
	v.SetDefault("redis-url", "")
	v.SetDefault("signature-ttl", 7*24*time.Hour)
	v.SetDefault("posts-ttl", 24*time.Hour)

	v.SetDefault("call-timeout", 60*time.Second)
	v.SetDefault("output", "./output")
	v.SetDefault("verbose", false)
	v.SetDefault("log-format", "text")
}

// Load reads configuration from v. Environment variables use the
// VOICEPRINT_ prefix with dashes mapped to underscores
// (VOICEPRINT_MIN_HISTORY); provider keys also come from their usual
// variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY, RAPIDAPI_KEY).
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("VOICEPRINT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("data-api-key", "VOICEPRINT_DATA_API_KEY", "RAPIDAPI_KEY"); err != nil {
		return nil, fmt.Errorf("binding data api key: %w", err)
	}
	if err := v.BindEnv("data-bearer-token", "VOICEPRINT_DATA_BEARER_TOKEN"); err != nil {
		return nil, fmt.Errorf("binding data bearer token: %w", err)
	}
	if err := v.BindEnv("ollama-host", "VOICEPRINT_OLLAMA_HOST", "OLLAMA_HOST"); err != nil {
		return nil, fmt.Errorf("binding ollama host: %w", err)
	}

	c := &Config{
		Provider:      llm.ProviderName(v.GetString("provider")),
		Model:         v.GetString("model"),
		APIKey:        v.GetString("api-key"),
		OllamaHost:    v.GetString("ollama-host"),
		OpenAIBaseURL: v.GetString("openai-base-url"),

		DataSource:      v.GetString("data-source"),
		DataAPIBaseURL:  v.GetString("data-api-base-url"),
		DataAPIHost:     v.GetString("data-api-host"),
		DataAPIKey:      v.GetString("data-api-key"),
		DataBearerToken: v.GetString("data-bearer-token"),
		DataFile:        v.GetString("data-file"),
		RequestsPerHour: v.GetInt("requests-per-hour"),
		MaxPages:        v.GetInt("max-pages"),

		MinHistory:     v.GetInt("min-history"),
		RecencyWindow:  v.GetDuration("recency-window"),
		Variations:     v.GetInt("variations"),
		RetriesPerSlot: v.GetInt("retries-per-slot"),
		Temperature:    v.GetFloat64("temperature"),
		Approaches:     v.GetStringSlice("approaches"),
		MinChars:       v.GetInt("min-chars"),
		MaxChars:       v.GetInt("max-chars"),
		MinWords:       v.GetInt("min-words"),
		MaxWords:       v.GetInt("max-words"),
		DenylistPath:   v.GetString("denylist"),

		CacheBackend: v.GetString("cache"),
		CachePath:    v.GetString("cache-path"),
		RedisURL:     v.GetString("redis-url"),
		SignatureTTL: v.GetDuration("signature-ttl"),
		PostsTTL:     v.GetDuration("posts-ttl"),

		CallTimeout: v.GetDuration("call-timeout"),
		OutputDir:   v.GetString("output"),
		Verbose:     v.GetBool("verbose"),
		LogFormat:   v.GetString("log-format"),
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv(envKeyForProvider(c.Provider))
	}
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}
	if c.CachePath == "" {
		c.CachePath = filepath.Join(c.OutputDir, "cache.db")
	}
	return c, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Provider {
	case llm.ProviderOpenAI, llm.ProviderAnthropic, llm.ProviderGemini, llm.ProviderOllama:
	default:
		return fmt.Errorf("unsupported LLM provider %q: must be openai, anthropic, gemini, or ollama", c.Provider)
	}
	if c.APIKey == "" && c.Provider != llm.ProviderOllama {
		return fmt.Errorf("%s requires an API key (set %s)", c.Provider, envKeyForProvider(c.Provider))
	}
	return c.ValidateData()
}

// ValidateData checks everything except the model provider, for commands
// that never call a model.
func (c *Config) ValidateData() error {
	switch c.DataSource {
	case SourceAPI:
		if c.DataAPIKey == "" && c.DataBearerToken == "" {
			return fmt.Errorf("data source %q requires RAPIDAPI_KEY or VOICEPRINT_DATA_BEARER_TOKEN", SourceAPI)
		}
		if c.RequestsPerHour < 1 {
			return fmt.Errorf("--requests-per-hour must be at least 1")
		}
		if c.MaxPages < 1 {
			return fmt.Errorf("--max-pages must be at least 1")
		}
	case SourceFile:
		if c.DataFile == "" {
			return fmt.Errorf("data source %q requires --data-file", SourceFile)
		}
	default:
		return fmt.Errorf("unsupported data source %q: must be api or file", c.DataSource)
	}

	if c.MinHistory < 1 {
		return fmt.Errorf("--min-history must be at least 1")
	}
	if c.RecencyWindow <= 0 {
		return fmt.Errorf("--recency-window must be positive")
	}
	if c.Variations < 1 {
		return fmt.Errorf("--variations must be at least 1")
	}
	if c.RetriesPerSlot < 0 {
		return fmt.Errorf("--retries-per-slot must not be negative")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("--temperature must be between 0 and 2, got %g", c.Temperature)
	}
	if len(c.Approaches) == 0 {
		return fmt.Errorf("at least one approach is required")
	}
	if c.MinChars < 0 || c.MaxChars <= c.MinChars {
		return fmt.Errorf("invalid length bounds: min-chars %d, max-chars %d", c.MinChars, c.MaxChars)
	}
	if c.MinWords < 0 || c.MaxWords < c.MinWords {
		return fmt.Errorf("invalid word bounds: min-words %d, max-words %d", c.MinWords, c.MaxWords)
	}

	switch c.CacheBackend {
	case CacheMemory:
	case CacheSQLite:
		if c.CachePath == "" {
			return fmt.Errorf("cache backend %q requires --cache-path", CacheSQLite)
		}
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("cache backend %q requires --redis-url", CacheRedis)
		}
	default:
		return fmt.Errorf("unsupported cache backend %q: must be sqlite, memory or redis", c.CacheBackend)
	}
	if c.SignatureTTL <= 0 || c.PostsTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("--call-timeout must be positive")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q: must be text or json", c.LogFormat)
	}
	return nil
}

// DefaultModel returns the default model name for the given provider.
func DefaultModel(provider llm.ProviderName) string {
	switch provider {
	case llm.ProviderOpenAI:
		return "gpt-4o"
	case llm.ProviderAnthropic:
		return "claude-sonnet-4-5"
	case llm.ProviderGemini:
		return "gemini-2.5-flash"
	case llm.ProviderOllama:
		return "llama3"
	default:
		return ""
	}
}

func envKeyForProvider(provider llm.ProviderName) string {
	switch provider {
	case llm.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case llm.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case llm.ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}
