package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration.
type Config struct {
	Server   Server
	Database Database
	Redis    RedisConfig
	Kafka    Kafka
	Upload   Upload
	Products []ProductService
	// ReportTTL is how long finished reports stay retrievable.
	ReportTTL time.Duration
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
	Env  string
}

// Development reports whether the process runs in development mode.
func (s Server) Development() bool {
	return s.Env == "development"
}

// Database configures the contract store. An empty URL selects the in-memory store.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the report store. An empty URL selects the in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit publisher. No brokers selects the log publisher.
type Kafka struct {
	Brokers        []string
	ClientID       string
	AuditTopic     string
	ProduceTimeout time.Duration
}

// Upload bounds accepted files.
type Upload struct {
	MaxBytes        int64
	MaxRows         int
	AllowedProducts []string
}

// ProductService locates one product's change service.
type ProductService struct {
	Product string
	BaseURL string
	// Soft reports non-2xx answers as a rejection instead of a status error.
	Soft    bool
	Timeout time.Duration
}

// Upload and report defaults.
const (
	DefaultMaxUploadBytes = 1_000_000
	DefaultMaxRows        = 50
)

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	externalTimeout := envDuration("EXTERNAL_TIMEOUT", 30*time.Second)

	return Config{
		Server: Server{
			Addr: envString("ACCAI_ADDR", ":8080"),
			Env:  envString("ACCAI_ENV", "production"),
		},
		Database: Database{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:        envList("KAFKA_BROKERS"),
			ClientID:       envString("KAFKA_CLIENT_ID", "accai"),
			AuditTopic:     envString("KAFKA_AUDIT_TOPIC", "fp-changes-audit"),
			ProduceTimeout: envDuration("KAFKA_PRODUCE_TIMEOUT", 5*time.Second),
		},
		Upload: Upload{
			MaxBytes:        int64(envInt("ACCAI_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
			MaxRows:         envInt("ACCAI_MAX_ROWS", DefaultMaxRows),
			AllowedProducts: envListDefault("ACCAI_ALLOWED_PRODUCTS", []string{"ACCAI"}),
		},
		Products: []ProductService{
			{Product: "ACCAI", BaseURL: os.Getenv("ACCAI_SERVICE_URL"), Timeout: externalTimeout},
			{Product: "CREA", BaseURL: os.Getenv("CREA_SERVICE_URL"), Soft: true, Timeout: externalTimeout},
		},
		ReportTTL: envDuration("REPORT_TTL", 24*time.Hour),
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envListDefault(key string, def []string) []string {
	if v := envList(key); len(v) > 0 {
		return v
	}
	return def
}
