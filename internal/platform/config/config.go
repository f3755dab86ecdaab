// Package config reads process configuration from the environment once at startup.
// Empty connection strings select in-memory implementations so the service runs
// locally with no infrastructure.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration.
type Config struct {
	Server   Server
	Logging  Logging
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	S3       S3Config
	MoMo     MoMoConfig
	SMTP     SMTPConfig
	Fees     Fees
	Tokens   Tokens
	Workers  Workers
	Frontend Frontend
	Grants   Grants
	Seeds    Seeds
	Sweep    Sweep
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	AllowedOrigins []string
	RequestTimeout time.Duration
	ShutdownGrace  time.Duration
}

type Logging struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Partitions    int32
}

type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	PresignTTL   time.Duration
}

// MoMoConfig configures the MTN Mobile Money collection API client.
type MoMoConfig struct {
	BaseURL           string
	SubscriptionKey   string
	APIUser           string
	APIKey            string
	TargetEnvironment string
	Timeout           time.Duration
}

type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	RatePerSec float64
}

// Fees are in whole currency units (RWF has no minor unit in practice).
type Fees struct {
	Currency      string
	ContactAccess int64
	Premium       int64
	PremiumWindow time.Duration
}

type Tokens struct {
	ClaimTTL         time.Duration
	ImageAccessTTL   time.Duration
	RemovalTTL       time.Duration
	ExpiredRetention time.Duration
}

type Workers struct {
	Count       int
	QueueSize   int
	EnqueueWait time.Duration
}

type Frontend struct {
	BaseURL string
}

type Grants struct {
	SigningKey string
	TTL        time.Duration
}

type Seeds struct {
	DocumentTypesFile string
}

// Sweep drives the periodic maintenance loop.
type Sweep struct {
	Interval       time.Duration
	ReconcileAfter time.Duration
	BatchSize      int
}

// DevGrantSigningKey signs image grants when GRANT_SIGNING_KEY is unset. It is
// only acceptable for a fully in-memory process.
const DevGrantSigningKey = "dev-grant-key-change-in-production"

// ErrDevSigningKey is returned by Validate when a deployment backed by real
// infrastructure still uses DevGrantSigningKey.
var ErrDevSigningKey = errors.New("config: GRANT_SIGNING_KEY must be set when DATABASE_URL or MOMO_BASE_URL is configured")

// Validate rejects settings that are only safe for local development.
func (c Config) Validate() error {
	if c.Grants.SigningKey == DevGrantSigningKey && (c.Postgres.DSN != "" || c.MoMo.BaseURL != "") {
		return ErrDevSigningKey
	}
	return nil
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           getString("DOCUFIND_ADDR", ":8080"),
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownGrace:  getDuration("SHUTDOWN_GRACE", 15*time.Second),
		},
		Logging: Logging{
			Level:      getString("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getInt("LOG_MAX_BACKUPS", 5),
		},
		Postgres: PostgresConfig{
			DSN:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 20),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       getList("KAFKA_BROKERS", nil),
			Topic:         getString("KAFKA_JOBS_TOPIC", "docufind.jobs"),
			ConsumerGroup: getString("KAFKA_CONSUMER_GROUP", "docufind-workers"),
			Partitions:    int32(getInt("KAFKA_JOBS_PARTITIONS", 3)),
		},
		S3: S3Config{
			Bucket:       os.Getenv("S3_BUCKET"),
			Region:       getString("AWS_REGION", "eu-west-1"),
			Endpoint:     os.Getenv("S3_ENDPOINT"),
			UsePathStyle: os.Getenv("S3_USE_PATH_STYLE") == "true",
			PresignTTL:   getDuration("S3_PRESIGN_TTL", 5*time.Minute),
		},
		MoMo: MoMoConfig{
			BaseURL:           os.Getenv("MOMO_BASE_URL"),
			SubscriptionKey:   os.Getenv("MOMO_SUBSCRIPTION_KEY"),
			APIUser:           os.Getenv("MOMO_API_USER"),
			APIKey:            os.Getenv("MOMO_API_KEY"),
			TargetEnvironment: getString("MOMO_TARGET_ENVIRONMENT", "sandbox"),
			Timeout:           getDuration("PAYMENT_GATEWAY_TIMEOUT", 10*time.Second),
		},
		SMTP: SMTPConfig{
			Host:       os.Getenv("SMTP_HOST"),
			Port:       getInt("SMTP_PORT", 587),
			Username:   os.Getenv("SMTP_USERNAME"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			From:       getString("SMTP_FROM", "DocuFind <no-reply@docufind.rw>"),
			RatePerSec: getFloat("SMTP_RATE_PER_SEC", 5),
		},
		Fees: Fees{
			Currency:      getString("PAYMENT_CURRENCY", "RWF"),
			ContactAccess: int64(getInt("CONTACT_ACCESS_FEE", 2000)),
			Premium:       int64(getInt("PREMIUM_FEE", 500)),
			PremiumWindow: getDuration("PREMIUM_WINDOW", 7*24*time.Hour),
		},
		Tokens: Tokens{
			ClaimTTL:         getDuration("CLAIM_TOKEN_TTL", 6*time.Hour),
			ImageAccessTTL:   getDuration("IMAGE_TOKEN_TTL", 6*time.Hour),
			RemovalTTL:       getDuration("REMOVAL_TOKEN_TTL", 24*time.Hour),
			ExpiredRetention: getDuration("EXPIRED_TOKEN_RETENTION", 24*time.Hour),
		},
		Workers: Workers{
			Count:       getInt("WORKER_COUNT", 4),
			QueueSize:   getInt("WORKER_QUEUE_SIZE", 256),
			EnqueueWait: getDuration("WORKER_ENQUEUE_WAIT", 2*time.Second),
		},
		Frontend: Frontend{
			BaseURL: strings.TrimRight(getString("FRONTEND_URL", "http://localhost:3000"), "/"),
		},
		Grants: Grants{
			SigningKey: getString("GRANT_SIGNING_KEY", DevGrantSigningKey),
			TTL:        getDuration("GRANT_TTL", 24*time.Hour),
		},
		Seeds: Seeds{
			DocumentTypesFile: os.Getenv("DOCUMENT_TYPES_FILE"),
		},
		Sweep: Sweep{
			Interval:       getDuration("SWEEP_INTERVAL", 5*time.Minute),
			ReconcileAfter: getDuration("PAYMENT_RECONCILE_AFTER", 2*time.Minute),
			BatchSize:      getInt("SWEEP_BATCH_SIZE", 100),
		},
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func getList(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
