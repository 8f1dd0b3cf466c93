package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "taskflow/pkg/platform/strings"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config is the full process configuration.
type Config struct {
	Server   Server
	Auth     Auth
	Store    Store
	Postgres PostgresConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Cascade  CascadeConfig
	Lockout  LockoutConfig
	Log      LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// Auth configures token issuance and verification.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	TokenTTL      time.Duration
	PasswordCost  int
}

// Store selects the document store backend.
type Store struct {
	Backend string
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// RedisConfig is optional; an empty URL keeps revocation and the pending
// cascade log in the selected store backend or memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig is optional; no brokers means notification events are not published.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

// CascadeConfig bounds the notification cascade retries on task delete.
type CascadeConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

// LockoutConfig bounds failed logins per account.
type LockoutConfig struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// FromEnv loads a .env file if present and builds the configuration from the
// environment. Malformed values fall back to defaults and are reported in the
// returned error so main can log them.
func FromEnv() (Config, error) {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load()

	p := &parser{}
	cfg := Config{
		Server: Server{
			Addr:            p.str("TASKFLOW_ADDR", ":5000"),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  p.duration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Auth: Auth{
			// Use a default for development - should be overridden in production
			JWTSigningKey: p.str("JWT_SECRET", "dev-secret-key-change-in-production"),
			Issuer:        p.str("JWT_ISSUER", "taskflow"),
			TokenTTL:      p.duration("JWT_TTL", 24*time.Hour),
			PasswordCost:  p.int("BCRYPT_COST", 10),
		},
		Store: Store{
			Backend: strings.ToLower(p.str("STORE_BACKEND", BackendMemory)),
		},
		Postgres: PostgresConfig{
			DSN:             p.str("DATABASE_URL", ""),
			MaxOpenConns:    p.int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    p.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Mongo: MongoConfig{
			URI:            p.str("MONGO_URI", "mongodb://localhost:27017"),
			Database:       p.str("MONGO_DATABASE", "taskmanager"),
			ConnectTimeout: p.duration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL:          p.str("REDIS_URL", ""),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           p.list("KAFKA_BROKERS"),
			Topic:             p.str("KAFKA_NOTIFICATION_TOPIC", "taskflow.notifications"),
			Partitions:        int32(p.int("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(p.int("KAFKA_TOPIC_REPLICATION", 1)),
		},
		Cascade: CascadeConfig{
			MaxAttempts:     p.int("CASCADE_MAX_ATTEMPTS", 4),
			InitialInterval: p.duration("CASCADE_INITIAL_INTERVAL", 50*time.Millisecond),
		},
		Lockout: LockoutConfig{
			MaxAttempts:  p.int("LOGIN_MAX_ATTEMPTS", 5),
			Window:       p.duration("LOGIN_WINDOW", 15*time.Minute),
			LockDuration: p.duration("LOGIN_LOCK_DURATION", 15*time.Minute),
		},
		Log: LogConfig{
			Level:  p.str("LOG_LEVEL", "info"),
			Format: p.str("LOG_FORMAT", "json"),
		},
	}

	switch cfg.Store.Backend {
	case BackendMemory, BackendMongo:
	case BackendPostgres:
		if cfg.Postgres.DSN == "" {
			p.errs = append(p.errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		p.errs = append(p.errs, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend))
	}

	return cfg, errors.Join(p.errs...)
}

type parser struct {
	errs []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return v
}

func (p *parser) list(key string) []string {
	return platformstrings.SplitList(os.Getenv(key))
}
