package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	StoreBackend   string // "dynamo" or "memory"
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	SNSRegion      string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	PushTTLSeconds  int

	JWTPublicKeyPath string
	AllowedOrigins   []string // CORS allowed origins

	SchedulerSpec        string
	SchedulerConcurrency int
	DeliveryTimeout      time.Duration
	StoreRetryLimit      int
}

// DynamoTables holds the DynamoDB table names.
type DynamoTables struct {
	Users  string
	Tokens string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", "dynamo")),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:  getEnv("DYNAMO_TABLE_USERS", "users"),
			Tokens: getEnv("DYNAMO_TABLE_TOKENS", "notification_tokens"),
		},
		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    getEnv("VAPID_SUBJECT", "mailto:admin@example.com"),
		PushTTLSeconds:  getEnvInt("PUSH_TTL_SECONDS", 3600),

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		SchedulerSpec:        getEnv("SCHEDULER_SPEC", "* * * * *"),
		SchedulerConcurrency: getEnvInt("SCHEDULER_CONCURRENCY", 8),
		DeliveryTimeout:      getEnvDuration("DELIVERY_TIMEOUT", 10*time.Second),
		StoreRetryLimit:      getEnvInt("STORE_RETRY_LIMIT", 5),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
