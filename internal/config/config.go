// File: internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   string
	Environment  string
	JWTSecretKey string

	// DatabaseURL selects Postgres when set; otherwise a local SQLite file.
	DatabaseURL string
	SQLitePath  string

	// Upstream completion provider (OpenRouter-compatible API).
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	DefaultChatModel  string

	// Embedding provider settings used by the indexing fan-out.
	EmbeddingAPIKey    string
	EmbeddingBaseURL   string
	EmbeddingModelName string

	// Vector store (Pinecone) for embedding indexing.
	PineconeAPIKey    string
	PineconeIndexHost string
	PineconeNamespace string

	// Long-term memory service.
	MemoryAPIURL string
	MemoryAPIKey string

	// Redis cache for chat lists.
	RedisAddr     string
	RedisPassword string

	// Generation worker pool and per-user generation budget.
	MaxConcurrentGenerations int
	AIRateLimit              int
	AIRateWindowMinutes      int
}

// Load reads configuration from environment variables or a .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		Environment:  env,
		JWTSecretKey: getEnv("JWT_SECRET_KEY", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "chatstream.db"),

		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		DefaultChatModel:  getEnv("DEFAULT_CHAT_MODEL", "google/gemini-2.5-flash"),

		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", ""),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),

		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeIndexHost: getEnv("PINECONE_INDEX_HOST", ""),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", "chat-messages"),

		MemoryAPIURL: getEnv("MEMORY_API_URL", ""),
		MemoryAPIKey: getEnv("MEMORY_API_KEY", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		MaxConcurrentGenerations: getEnvAsInt("MAX_CONCURRENT_GENERATIONS", 32),
		AIRateLimit:              getEnvAsInt("AI_RATE_LIMIT", 50),
		AIRateWindowMinutes:      getEnvAsInt("AI_RATE_WINDOW_MINUTES", 60),
	}

	// Validation for production environments
	if strings.ToLower(env) == "production" {
		missing := []string{}
		if cfg.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if cfg.OpenRouterAPIKey == "" {
			missing = append(missing, "OPENROUTER_API_KEY")
		}
		if len(missing) > 0 {
			log.Fatalf("Missing required production environment variables: %v", missing)
		}
	}

	return cfg
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}
