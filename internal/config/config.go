package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"orderdoc-server/pkg/secrets"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultStackPolicy - технологическая политика, которую агенты навязывают документации.
const DefaultStackPolicy = "Recommend MERN stack patterns (MongoDB, Express.js, React, Node.js) for web applications " +
	"and React Native for mobile applications. If the project mentions different technologies, " +
	"suggest MERN stack and React Native alternatives."

// Config holds the application configuration.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat  string `envconfig:"LOG_FORMAT" default:"json"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	// Database
	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"postgres"`
	DBName        string        `envconfig:"DB_NAME" default:"orderdoc"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string `ignored:"true"`

	// Redis
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string `ignored:"true"`

	// RabbitMQ. Пустой URL отключает публикацию событий.
	RabbitMQURL string `envconfig:"RABBITMQ_URL" default:""`

	// AI backends
	PrimaryProvider string        `envconfig:"PRIMARY_PROVIDER" default:"openai"` // openai | ollama
	SarvamBaseURL   string        `envconfig:"SARVAM_BASE_URL" default:"https://api.sarvam.ai/v1"`
	SarvamModel     string        `envconfig:"SARVAM_MODEL" default:"sarvam-m"`
	OllamaBaseURL   string        `envconfig:"OLLAMA_BASE_URL" default:""`
	OllamaModel     string        `envconfig:"OLLAMA_MODEL" default:"llama3"`
	GeminiModel     string        `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	GeminiBaseURL   string        `envconfig:"GEMINI_BASE_URL" default:""`
	AITimeout       time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
	SarvamAPIKey    string        `ignored:"true"`
	GeminiAPIKey    string        `ignored:"true"`

	// Cache
	CacheEnabled bool          `envconfig:"AI_CACHE_ENABLED" default:"true"`
	CacheTTL     time.Duration `envconfig:"AI_CACHE_TTL" default:"1h"`

	StackPolicy string `envconfig:"STACK_POLICY" default:""`

	// JWT. Пустой секрет выключает проверку токенов.
	JWTSecret string `ignored:"true"`

	// Rate limiting
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`

	// Background tasks
	TasksMaxActive int           `envconfig:"TASKS_MAX_ACTIVE" default:"10"`
	TasksRetention time.Duration `envconfig:"TASKS_RETENTION" default:"1h"`

	// CORS Settings
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// IsProduction сообщает, запущен ли сервис в production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// GetDSN собирает строку подключения к PostgreSQL.
func (c *Config) GetDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// GetStackPolicy возвращает заданную политику или политику по умолчанию.
func (c *Config) GetStackPolicy() string {
	if strings.TrimSpace(c.StackPolicy) == "" {
		return DefaultStackPolicy
	}
	return c.StackPolicy
}

// HasAIProvider сообщает, настроен ли хотя бы один AI-бэкенд.
func (c *Config) HasAIProvider() bool {
	if c.GeminiAPIKey != "" {
		return true
	}
	if strings.EqualFold(c.PrimaryProvider, "ollama") {
		return c.OllamaBaseURL != ""
	}
	return c.SarvamAPIKey != ""
}

// LoadConfig loads configuration from environment variables and secrets.
// Секреты читаются из /run/secrets, а при отсутствии файла - из одноименных переменных окружения.
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
			} else {
				log.Printf("Loaded configuration from %s", envFilePath)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	cfg.DBPassword = secrets.ReadOptional("db_password", "DB_PASSWORD")
	cfg.RedisPassword = secrets.ReadOptional("redis_password", "REDIS_PASSWORD")
	cfg.SarvamAPIKey = secrets.ReadOptional("sarvam_api_key", "SARVAM_API_KEY")
	cfg.GeminiAPIKey = secrets.ReadOptional("gemini_api_key", "GEMINI_API_KEY")
	cfg.JWTSecret = secrets.ReadOptional("jwt_secret", "JWT_SECRET")

	if cfg.IsProduction() && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	switch strings.ToLower(cfg.PrimaryProvider) {
	case "openai", "ollama":
	default:
		return nil, fmt.Errorf("unsupported PRIMARY_PROVIDER %q (expected openai or ollama)", cfg.PrimaryProvider)
	}

	return &cfg, nil
}
