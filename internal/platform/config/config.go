package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "fintrust/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	Logging         Logging
	DatabaseURL     string
	Redis           RedisConfig
	Kafka           KafkaConfig
	Model           ModelConfig
	Scoring         ScoringConfig
	JWT             JWTConfig
	TracesEnabled   bool
}

// Logging controls structured logging settings.
type Logging struct {
	Level  string
	Format string // text|json
}

// RedisConfig configures the scoring job queue. An empty URL keeps jobs in process.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit sink. No brokers means audit goes to the store only.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ModelConfig locates the classifier artifact. RemoteURL takes precedence over Path.
type ModelConfig struct {
	Path      string
	RemoteURL string
	// Timeout cuts off hung remote calls only; slow ones are waited for.
	Timeout time.Duration
	// BreakerCooldown is how long a failing remote classifier is skipped.
	BreakerCooldown time.Duration
}

type ScoringConfig struct {
	Workers   int
	QueueSize int
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
}

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultAuditTopic      = "fintrust.audit"
	defaultModelPath       = "models/credit_risk.yaml"
	defaultModelTimeout    = 2 * time.Minute
	defaultBreakerCooldown = 30 * time.Second
	defaultWorkers         = 4
	defaultQueueSize       = 256
	defaultJWTIssuer       = "fintrust"
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:            valueOrDefault("FINTRUST_ADDR", defaultAddr),
		ShutdownTimeout: defaultShutdownTimeout,
		Logging: Logging{
			Level:  valueOrDefault("LOG_LEVEL", defaultLogLevel),
			Format: valueOrDefault("LOG_FORMAT", defaultLogFormat),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: platformstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   valueOrDefault("KAFKA_AUDIT_TOPIC", defaultAuditTopic),
		},
		Model: ModelConfig{
			Path:            valueOrDefault("MODEL_PATH", defaultModelPath),
			RemoteURL:       os.Getenv("MODEL_REMOTE_URL"),
			Timeout:         defaultModelTimeout,
			BreakerCooldown: defaultBreakerCooldown,
		},
		JWT: JWTConfig{
			SigningKey: os.Getenv("JWT_SIGNING_KEY"),
			Issuer:     valueOrDefault("JWT_ISSUER", defaultJWTIssuer),
		},
		TracesEnabled: parseBoolWithDefault("OTEL_TRACES_ENABLED", false),
	}

	workers, err := parsePositiveInt("SCORING_WORKERS", defaultWorkers)
	if err != nil {
		return Server{}, err
	}
	cfg.Scoring.Workers = workers

	queueSize, err := parsePositiveInt("SCORING_QUEUE_SIZE", defaultQueueSize)
	if err != nil {
		return Server{}, err
	}
	cfg.Scoring.QueueSize = queueSize

	if cfg.ShutdownTimeout, err = parseDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return Server{}, err
	}
	if cfg.Model.BreakerCooldown, err = parseDuration("MODEL_BREAKER_COOLDOWN", defaultBreakerCooldown); err != nil {
		return Server{}, err
	}
	if cfg.Model.Timeout, err = parseDuration("MODEL_TIMEOUT", defaultModelTimeout); err != nil {
		return Server{}, err
	}

	if cfg.JWT.SigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWT.SigningKey = "dev-secret-key-change-in-production"
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
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

func parsePositiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %d", key, n)
	}
	return n, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration, got %q", key, v)
	}
	return d, nil
}
