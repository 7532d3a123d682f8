package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Sources     SourcesConfig
	Vectorstore VectorstoreConfig
	Embeddings  EmbeddingsConfig
	LLM         LLMConfig
	STT         STTConfig
	TTS         TTSConfig
	Session     SessionConfig
	Responses   ResponsesConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SourcesConfig points at the product data the ingestion pipeline consumes.
// Strict toggles whole-load failure on bad records instead of skip-and-log.
type SourcesConfig struct {
	CSVPath   string
	CSVStrict bool
	APIURL    string
	APIStrict bool
}

type VectorstoreConfig struct {
	Provider   string // "pgvector" or "memory"
	Collection string
}

type EmbeddingsConfig struct {
	Provider string // "openai" or "huggingface"
	Model    string
	HFToken  string
	HFURL    string
}

type LLMConfig struct {
	OpenAIKey        string
	GroqKey          string
	GroqBaseURL      string
	AnthropicKey     string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	Temperature      float64
	MaxRetries       int
}

type STTConfig struct {
	OpenAIKey string
	BaseURL   string
	Model     string
}

type TTSConfig struct {
	OpenAIKey string
	BaseURL   string
	Model     string
}

// SessionConfig bounds history growth: turns older than MaxAge are pruned
// by the worker on a PruneInterval cadence.
type SessionConfig struct {
	MaxAge        time.Duration
	PruneInterval time.Duration
}

type ResponsesConfig struct {
	Dir string // generated TTS artifacts, served under /static
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.2)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}

	sessionMaxAge, err := getEnvDuration("SESSION_MAX_AGE", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_MAX_AGE: %w", err)
	}

	pruneInterval, err := getEnvDuration("SESSION_PRUNE_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_PRUNE_INTERVAL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Sources: SourcesConfig{
			CSVPath:   getEnv("SOURCE_CSV_PATH", "data/product_reviews.csv"),
			CSVStrict: getEnvBool("SOURCE_CSV_STRICT", true),
			APIURL:    getEnv("SOURCE_API_URL", "https://fakestoreapi.com/products"),
			APIStrict: getEnvBool("SOURCE_API_STRICT", false),
		},
		Vectorstore: VectorstoreConfig{
			Provider:   getEnv("VECTORSTORE_PROVIDER", "pgvector"),
			Collection: getEnv("VECTORSTORE_COLLECTION", "product_documents"),
		},
		Embeddings: EmbeddingsConfig{
			Provider: getEnv("EMBEDDINGS_PROVIDER", "openai"),
			Model:    getEnv("EMBEDDINGS_MODEL", ""),
			HFToken:  getEnv("HF_TOKEN", ""),
			HFURL:    getEnv("HF_INFERENCE_URL", ""),
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			GroqKey:          getEnv("GROQ_API_KEY", ""),
			GroqBaseURL:      getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "groq"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "llama-3.1-70b-versatile"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			Temperature:      temperature,
			MaxRetries:       maxRetries,
		},
		STT: STTConfig{
			OpenAIKey: getEnv("OPENAI_API_KEY", ""),
			BaseURL:   getEnv("STT_OPENAI_BASE_URL", ""),
			Model:     getEnv("STT_OPENAI_MODEL", ""),
		},
		TTS: TTSConfig{
			OpenAIKey: getEnv("OPENAI_API_KEY", ""),
			BaseURL:   getEnv("TTS_OPENAI_BASE_URL", ""),
			Model:     getEnv("TTS_OPENAI_MODEL", ""),
		},
		Session: SessionConfig{
			MaxAge:        sessionMaxAge,
			PruneInterval: pruneInterval,
		},
		Responses: ResponsesConfig{
			Dir: getEnv("RESPONSES_DIR", "responses"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	switch c.LLM.DefaultProvider {
	case "openai":
		if c.LLM.OpenAIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case "groq":
		if c.LLM.GroqKey == "" {
			missing = append(missing, "GROQ_API_KEY")
		}
	case "anthropic":
		if c.LLM.AnthropicKey == "" {
			missing = append(missing, "ANTHROPIC_API_KEY")
		}
	}
	if c.Embeddings.Provider == "huggingface" && c.Embeddings.HFToken == "" {
		missing = append(missing, "HF_TOKEN")
	}
	if c.Vectorstore.Provider == "pgvector" && c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
