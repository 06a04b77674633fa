// Package config reads storefront settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Storage backends accepted by STORE_BACKEND.
const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPAddr string
	RunLocal bool

	StoreBackend string
	StorageTable string
	RedisAddr    string
	RedisDB      int

	QueueURL         string
	MetricsNamespace string

	TrackingInterval time.Duration
	IdempotencyTTL   time.Duration
}

func Load() Config {
	return Config{
		AppEnv:           getEnv("APP_ENV", "dev"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		RunLocal:         getEnvBool("RUN_LOCAL", false),
		StoreBackend:     getEnv("STORE_BACKEND", BackendDynamoDB),
		StorageTable:     getEnv("STORAGE_TABLE", "pizzafly-storefront"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		QueueURL:         os.Getenv("ORDERS_QUEUE_URL"),
		MetricsNamespace: os.Getenv("METRICS_NAMESPACE"),
		TrackingInterval: getEnvDuration("TRACKING_INTERVAL", 15*time.Second),
		IdempotencyTTL:   getEnvDuration("IDEMPOTENCY_TTL", 48*time.Hour),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
