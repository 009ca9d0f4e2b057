package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Provider identifies an LLM or embedding backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// Storage
	DataDir string

	// LLM generation
	LLMProvider Provider
	LLMModel    string
	Temperature float64
	MaxTokens   int
	Streaming   bool

	// Embeddings
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int

	// Credentials / endpoints
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// Ingestion
	FetchTimeout time.Duration
	ChunkSize    int
	ChunkOverlap int
	RetrievalK   int

	// Conversation
	ResponseLanguage string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		DataDir: getEnv("RAGWEB_DATA_DIR", defaultDataDir()),

		LLMProvider: Provider(getEnv("RAGWEB_LLM_PROVIDER", "openai")),
		LLMModel:    getEnv("RAGWEB_LLM_MODEL", "gpt-4o-mini"),
		Temperature: getEnvFloat("RAGWEB_TEMPERATURE", 0.7),
		MaxTokens:   getEnvInt("RAGWEB_MAX_TOKENS", 2000),
		Streaming:   getEnvBool("RAGWEB_STREAMING", true),

		EmbedProvider:  Provider(getEnv("RAGWEB_EMBED_PROVIDER", "openai")),
		EmbedModel:     getEnv("RAGWEB_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimension: getEnvInt("RAGWEB_EMBED_DIMENSION", 1536),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		FetchTimeout: getEnvDuration("RAGWEB_FETCH_TIMEOUT", 10*time.Second),
		ChunkSize:    getEnvInt("RAGWEB_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("RAGWEB_CHUNK_OVERLAP", 200),
		RetrievalK:   getEnvInt("RAGWEB_RETRIEVAL_K", 3),

		ResponseLanguage: getEnv("RAGWEB_RESPONSE_LANGUAGE", "English"),

		LogFile:  getEnv("RAGWEB_LOG_FILE", "/tmp/ragweb.log"),
		LogLevel: parseLogLevel(getEnv("RAGWEB_LOG_LEVEL", "INFO")),
	}
}

// SessionFile returns the path of the durable session store.
func (c Config) SessionFile() string {
	return filepath.Join(c.DataDir, "sessions.json")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chat_data"
	}
	return filepath.Join(home, ".ragweb")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
