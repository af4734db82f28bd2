package config

import (
	"os"
	"time"
)

// APIConfig holds runtime configuration for the coordinator service.
type APIConfig struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	LogStream          string
	LogConsumerGroup   string
	LogConsumerName    string
	LogBatchSize       int
	LogBlockTime       time.Duration
	BuilderImage       string
	BuilderNetwork     string
	BuilderAuthToken   string
	DockerHost         string
	CallbackURL        string
	SubdomainAttempts  int
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
	Artifact           ArtifactConfig
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	consumerName := GetString("LOG_CONSUMER_NAME", "")
	if consumerName == "" {
		if host, err := os.Hostname(); err == nil {
			consumerName = host
		} else {
			consumerName = "api-consumer"
		}
	}
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":9000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://deplo:deplo@db:5432/deplo?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		RedisAddr:          GetString("REDIS_ADDR", "redis:6379"),
		RedisPassword:      GetString("REDIS_PASSWORD", ""),
		RedisDB:            GetInt("REDIS_DB", 0),
		LogStream:          GetString("LOG_STREAM", "deplo:build-logs"),
		LogConsumerGroup:   GetString("LOG_CONSUMER_GROUP", "api-server-logs-consumer"),
		LogConsumerName:    consumerName,
		LogBatchSize:       GetInt("LOG_BATCH_SIZE", 64),
		LogBlockTime:       time.Duration(GetInt("LOG_BLOCK_SECONDS", 5)) * time.Second,
		BuilderImage:       GetString("BUILDER_IMAGE", "deplo-builder"),
		BuilderNetwork:     GetString("BUILDER_NETWORK", ""),
		BuilderAuthToken:   GetString("BUILDER_AUTH_TOKEN", ""),
		DockerHost:         GetString("DOCKER_HOST", "unix:///var/run/docker.sock"),
		CallbackURL:        GetString("API_CALLBACK_URL", "http://api:9000"),
		SubdomainAttempts:  GetInt("SUBDOMAIN_ATTEMPTS", 5),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
		Artifact:           LoadArtifactConfig(),
	}
}
