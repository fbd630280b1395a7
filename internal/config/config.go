package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Models    ModelsConfig    `mapstructure:"models"`
	Budget    BudgetConfig    `mapstructure:"budget"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Voice     VoiceConfig     `mapstructure:"voice"`

	// Pricing is keyed provider -> model id -> rates. Lookups scan all
	// providers because model ids are globally unique.
	Pricing map[string]map[string]ModelRate `mapstructure:"pricing"`
}

type ServerConfig struct {
	Port             int           `mapstructure:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdown time.Duration `mapstructure:"graceful_shutdown"`
}

type DatabaseConfig struct {
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_connections"`
	BusyTimeout  int    `mapstructure:"busy_timeout_ms"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type ProvidersConfig struct {
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"`
	GoogleAPIKey     string `mapstructure:"google_api_key"`
	PerplexityAPIKey string `mapstructure:"perplexity_api_key"`
}

type ModelsConfig struct {
	Default   string        `mapstructure:"default"`
	Available []ModelConfig `mapstructure:"available"`
}

type ModelConfig struct {
	ID        string `mapstructure:"id"`
	Provider  string `mapstructure:"provider"`
	Name      string `mapstructure:"name"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type BudgetConfig struct {
	// MaxDailySpendUSD caps total spend per calendar day across all
	// operations. Zero disables the gate.
	MaxDailySpendUSD float64 `mapstructure:"max_daily_spend_usd"`
}

type RAGConfig struct {
	ChunkSize           int     `mapstructure:"chunk_size"`
	ChunkOverlap        int     `mapstructure:"chunk_overlap"`
	RetrievalK          int     `mapstructure:"retrieval_k"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

type EmbeddingConfig struct {
	Model string `mapstructure:"model"`
}

type VoiceConfig struct {
	STTModel          string `mapstructure:"stt_model"`
	TTSModel          string `mapstructure:"tts_model"`
	TTSVoice          string `mapstructure:"tts_voice"`
	TTSResponseFormat string `mapstructure:"tts_response_format"`
}

type ModelRate struct {
	Input           float64 `mapstructure:"input"`
	Output          float64 `mapstructure:"output"`
	PerMinute       float64 `mapstructure:"per_minute"`
	PerMillionChars float64 `mapstructure:"per_million_chars"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.AddConfigPath(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/jijnasa")
	}

	setDefaults()

	viper.AutomaticEnv()
	bindEnvVars()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// A catalog and pricing book are always needed; fall back to the
	// built-in set when the config file does not supply them.
	if len(config.Models.Available) == 0 {
		config.Models.Available = DefaultCatalog()
	}
	if len(config.Pricing) == 0 {
		config.Pricing = DefaultPricing()
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "300s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.graceful_shutdown", "30s")

	// Database defaults
	viper.SetDefault("database.path", "./data/jijnasa.db")
	viper.SetDefault("database.max_open_connections", 4)
	viper.SetDefault("database.busy_timeout_ms", 5000)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.output_path", "")

	// CORS defaults
	viper.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 86400)

	// Budget defaults
	viper.SetDefault("budget.max_daily_spend_usd", 10.0)

	// Model defaults
	viper.SetDefault("models.default", "gpt-4o")

	// RAG defaults
	viper.SetDefault("rag.chunk_size", 1000)
	viper.SetDefault("rag.chunk_overlap", 200)
	viper.SetDefault("rag.retrieval_k", 5)
	viper.SetDefault("rag.similarity_threshold", 0.3)

	// Embedding defaults
	viper.SetDefault("embedding.model", "text-embedding-3-small")

	// Voice defaults
	viper.SetDefault("voice.stt_model", "whisper-1")
	viper.SetDefault("voice.tts_model", "tts-1")
	viper.SetDefault("voice.tts_voice", "nova")
	viper.SetDefault("voice.tts_response_format", "mp3")
}

func bindEnvVars() {
	// Server
	_ = viper.BindEnv("server.port", "SERVER_PORT")

	// Database
	_ = viper.BindEnv("database.path", "DATABASE_PATH")

	// Logging
	_ = viper.BindEnv("logging.level", "LOG_LEVEL")
	_ = viper.BindEnv("logging.format", "LOG_FORMAT")

	// CORS
	_ = viper.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")

	// Provider credentials
	_ = viper.BindEnv("providers.openai_api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("providers.anthropic_api_key", "ANTHROPIC_API_KEY")
	_ = viper.BindEnv("providers.google_api_key", "GOOGLE_API_KEY")
	_ = viper.BindEnv("providers.perplexity_api_key", "PERPLEXITY_API_KEY")

	// Budget
	_ = viper.BindEnv("budget.max_daily_spend_usd", "MAX_DAILY_SPEND_USD")
}

// Model looks up a catalog entry by id.
func (c *Config) Model(id string) (ModelConfig, bool) {
	for _, m := range c.Models.Available {
		if m.ID == id {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// MaxTokensFor returns the catalog token cap for a model, or the fallback
// cap for models missing from the catalog.
func (c *Config) MaxTokensFor(id string) int {
	if m, ok := c.Model(id); ok && m.MaxTokens > 0 {
		return m.MaxTokens
	}
	return 4096
}

// ProviderKey returns the configured credential for a provider name.
func (c *Config) ProviderKey(provider string) string {
	switch provider {
	case "openai":
		return c.Providers.OpenAIAPIKey
	case "anthropic":
		return c.Providers.AnthropicAPIKey
	case "google":
		return c.Providers.GoogleAPIKey
	case "perplexity":
		return c.Providers.PerplexityAPIKey
	}
	return ""
}

// DefaultCatalog is the built-in model catalog used when none is configured.
func DefaultCatalog() []ModelConfig {
	return []ModelConfig{
		{ID: "gpt-4o", Provider: "openai", Name: "GPT-4o", MaxTokens: 16384},
		{ID: "gpt-4o-mini", Provider: "openai", Name: "GPT-4o Mini", MaxTokens: 16384},
		{ID: "claude-sonnet-4-5-20250929", Provider: "anthropic", Name: "Claude Sonnet 4.5", MaxTokens: 8192},
		{ID: "claude-haiku-4-5-20251001", Provider: "anthropic", Name: "Claude Haiku 4.5", MaxTokens: 8192},
		{ID: "gemini-2.0-flash", Provider: "google", Name: "Gemini 2.0 Flash", MaxTokens: 8192},
		{ID: "gemini-1.5-pro", Provider: "google", Name: "Gemini 1.5 Pro", MaxTokens: 8192},
		{ID: "sonar", Provider: "perplexity", Name: "Sonar", MaxTokens: 4096},
		{ID: "sonar-pro", Provider: "perplexity", Name: "Sonar Pro", MaxTokens: 4096},
		{ID: "sonar-reasoning-pro", Provider: "perplexity", Name: "Sonar Reasoning Pro", MaxTokens: 4096},
	}
}

// DefaultPricing is the built-in rate table, USD per million tokens unless
// stated otherwise.
func DefaultPricing() map[string]map[string]ModelRate {
	return map[string]map[string]ModelRate{
		"openai": {
			"gpt-4o":                 {Input: 2.50, Output: 10.00},
			"gpt-4o-mini":            {Input: 0.15, Output: 0.60},
			"text-embedding-3-small": {Input: 0.02},
			"whisper-1":              {PerMinute: 0.006},
			"tts-1":                  {PerMillionChars: 15.0},
		},
		"anthropic": {
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
		},
		"google": {
			"gemini-2.0-flash": {Input: 0.10, Output: 0.40},
			"gemini-1.5-pro":   {Input: 1.25, Output: 5.00},
		},
		"perplexity": {
			"sonar":               {Input: 1.00, Output: 1.00},
			"sonar-pro":           {Input: 3.00, Output: 15.00},
			"sonar-reasoning-pro": {Input: 2.00, Output: 8.00},
		},
	}
}
