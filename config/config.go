package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Firebase  FirebaseConfig
	Inference InferenceConfig
	Payments  PaymentsConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	App       AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirebaseConfig struct {
	CredentialsPath string
}

type InferenceConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	// Requests per second allowed against the inference gateway.
	RateLimit float64
}

type PaymentsConfig struct {
	WebhookSecret   string
	CheckoutBaseURL string
}

type StorageConfig struct {
	Bucket     string
	Region     string
	PresignTTL time.Duration
}

type WorkerConfig struct {
	PollInterval time.Duration
	StuckAfter   time.Duration
}

type AppConfig struct {
	Environment string
	Version     string
	// Optional YAML questionnaire override; the built-in catalog is used
	// when empty.
	CatalogFile string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "pulsecheck"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Inference: InferenceConfig{
			BaseURL:      getEnv("INFERENCE_BASE_URL", "http://localhost:9090"),
			TokenURL:     getEnv("INFERENCE_TOKEN_URL", ""),
			ClientID:     getEnv("INFERENCE_CLIENT_ID", ""),
			ClientSecret: getEnv("INFERENCE_CLIENT_SECRET", ""),
			RateLimit:    getEnvAsFloat("INFERENCE_RATE_LIMIT", 2),
		},
		Payments: PaymentsConfig{
			WebhookSecret:   getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			CheckoutBaseURL: getEnv("PAYMENT_CHECKOUT_BASE_URL", "https://pay.pulsecheck.io/checkout"),
		},
		Storage: StorageConfig{
			Bucket:     getEnv("S3_BUCKET", "pulsecheck-documents"),
			Region:     getEnv("AWS_REGION", "us-east-1"),
			PresignTTL: getEnvAsDuration("S3_PRESIGN_TTL", 15*time.Minute),
		},
		Worker: WorkerConfig{
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", 2*time.Second),
			StuckAfter:   getEnvAsDuration("WORKER_STUCK_AFTER", 15*time.Minute),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			CatalogFile: getEnv("CATALOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.App.Environment != "development" && c.Payments.WebhookSecret == "" {
		return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required outside development")
	}

	return nil
}

// DSN builds a pgx-compatible connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}
