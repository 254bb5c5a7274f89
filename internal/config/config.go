package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Images    ImagesConfig
	S3        S3Config
	Kafka     KafkaConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// IsDevelopment reports whether the server runs in development mode
func (c ServerConfig) IsDevelopment() bool {
	return c.Env == "development"
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type CacheConfig struct {
	ProductTTL time.Duration
}

type ImagesConfig struct {
	FetchTimeout time.Duration
	MaxBytes     int64
}

type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// Enabled reports whether product images should be copied to S3
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type KafkaConfig struct {
	Brokers    []string
	OrderTopic string
}

// Enabled reports whether order events should be published
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

func Load() *Config {
	// Values already present in the environment win over the .env file.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("CACHE_PRODUCT_TTL", "5m")
	viper.SetDefault("IMAGE_FETCH_TIMEOUT", "10s")
	viper.SetDefault("IMAGE_MAX_BYTES", 10<<20)
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("KAFKA_ORDER_TOPIC", "order-events")

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Cache: CacheConfig{
			ProductTTL: viper.GetDuration("CACHE_PRODUCT_TTL"),
		},
		Images: ImagesConfig{
			FetchTimeout: viper.GetDuration("IMAGE_FETCH_TIMEOUT"),
			MaxBytes:     viper.GetInt64("IMAGE_MAX_BYTES"),
		},
		S3: S3Config{
			Bucket:        viper.GetString("S3_BUCKET"),
			Region:        viper.GetString("S3_REGION"),
			Endpoint:      viper.GetString("S3_ENDPOINT"),
			PublicBaseURL: viper.GetString("S3_PUBLIC_BASE_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(viper.GetString("KAFKA_BROKERS")),
			OrderTopic: viper.GetString("KAFKA_ORDER_TOPIC"),
		},
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
