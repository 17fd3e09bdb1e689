// internal/infrastructure/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	LogLevel   string

	// Server
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimitPerMin int

	// MongoDB
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// PostgreSQL (model directory, build jobs)
	PostgresURI string

	// Redis (research cache, build queue)
	RedisAddr     string
	RedisPassword string
	RedisCacheDB  int
	RedisQueueDB  int

	// Generative providers
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenRouterAPIKey string
	OpenRouterURL    string
	GeminiAPIKey     string

	// Search and scraping
	TavilyAPIKey      string
	BraveAPIKey       string
	FirecrawlAPIKey   string
	EnableDirectFetch bool

	// Amadeus (flights, hotels, tours)
	AmadeusClientID     string
	AmadeusClientSecret string
	AmadeusBaseURL      string

	// Orchestration
	ModelCatalogPath  string
	CostTargetUSD     float64
	EnrichConcurrency int
	SearchMaxResults  int
	ResearchCacheTTL  time.Duration
	ModelCacheTTL     time.Duration
	ProviderTimeout   time.Duration
	BuildQueue        string
	BuildWorkers      int
	BuildTimeout      time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion:      getEnv("APP_VERSION", "1.0.0"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnv("PORT", "8080"),
		ReadTimeout:     time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout:    time.Duration(getEnvAsInt("WRITE_TIMEOUT", 120)) * time.Second,
		RateLimitPerMin: getEnvAsInt("RATE_LIMIT_PER_MIN", 60),

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "tripcast"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		PostgresURI: getEnv("POSTGRES_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisCacheDB:  getEnvAsInt("REDIS_CACHE_DB", 0),
		RedisQueueDB:  getEnvAsInt("REDIS_QUEUE_DB", 1),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterURL:    getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1/"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),

		TavilyAPIKey:      getEnv("TAVILY_API_KEY", ""),
		BraveAPIKey:       getEnv("BRAVE_API_KEY", ""),
		FirecrawlAPIKey:   getEnv("FIRECRAWL_API_KEY", ""),
		EnableDirectFetch: getEnvAsBool("ENABLE_DIRECT_FETCH", true),

		AmadeusClientID:     getEnv("AMADEUS_CLIENT_ID", ""),
		AmadeusClientSecret: getEnv("AMADEUS_CLIENT_SECRET", ""),
		AmadeusBaseURL:      getEnv("AMADEUS_BASE_URL", "https://test.api.amadeus.com"),

		ModelCatalogPath:  getEnv("MODEL_CATALOG_PATH", ""),
		CostTargetUSD:     getEnvAsFloat("COST_TARGET_USD", 0),
		EnrichConcurrency: getEnvAsInt("ENRICH_CONCURRENCY", 3),
		SearchMaxResults:  getEnvAsInt("SEARCH_MAX_RESULTS", 5),
		ResearchCacheTTL:  time.Duration(getEnvAsInt("RESEARCH_CACHE_TTL", 86400)) * time.Second,
		ModelCacheTTL:     time.Duration(getEnvAsInt("MODEL_CACHE_TTL", 300)) * time.Second,
		ProviderTimeout:   time.Duration(getEnvAsInt("PROVIDER_TIMEOUT", 60)) * time.Second,
		BuildQueue:        getEnv("BUILD_QUEUE", "trip_builds"),
		BuildWorkers:      getEnvAsInt("BUILD_WORKERS", 4),
		BuildTimeout:      time.Duration(getEnvAsInt("BUILD_TIMEOUT", 600)) * time.Second,
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
