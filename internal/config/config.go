package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

type Config struct {
	Port         int
	StoreBackend string

	DatabaseURL string
	SQLitePath  string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	KafkaBrokers []string
	KafkaTopic   string

	AddressPrefix string
	AdminAddress  string
	LogLevel      slog.Level
}

// LoadDotEnv reads .env into the environment if present. A missing file is
// not an error.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
}

// Load parses command line flags. Every flag defaults to its environment
// variable, so flags only need to be passed to override the environment.
// Commands register their own flags through extra.
func Load(name string, args []string, extra ...func(fs *flag.FlagSet)) (Config, error) {
	var (
		cfg      Config
		brokers  string
		logLevel string
	)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "port", envInt("PORT", 8080), "HTTP port")
	fs.StringVar(&cfg.StoreBackend, "store", envString("STORE_BACKEND", BackendMemory), "Store backend (memory, postgres, sqlite or redis)")

	// Secrets have no flag default and are read from the environment after
	// parsing, so usage output never shows them.
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "Postgres connection string (default DATABASE_URL or POSTGRES_* env)")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", envString("SQLITE_PATH", "tally.db"), "SQLite database file")

	fs.StringVar(&cfg.RedisAddr, "redis-addr", envString("REDIS_ADDR", "localhost:6379"), "Redis address")
	fs.StringVar(&cfg.RedisPassword, "redis-password", "", "Redis password (default REDIS_PASSWORD env)")
	fs.IntVar(&cfg.RedisDB, "redis-db", envInt("REDIS_DB", 0), "Redis database number")
	fs.StringVar(&cfg.RedisKeyPrefix, "redis-key-prefix", envString("REDIS_KEY_PREFIX", "tally:"), "Prefix for every redis key")

	fs.StringVar(&brokers, "kafka-brokers", os.Getenv("KAFKA_BROKERS"), "Comma separated kafka brokers; empty disables event publishing")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", envString("KAFKA_TOPIC", "tally.events"), "Kafka topic for contract events")

	fs.StringVar(&cfg.AddressPrefix, "address-prefix", envString("ADDRESS_PREFIX", "cosmos"), "Bech32 human readable part of valid addresses")
	fs.StringVar(&cfg.AdminAddress, "admin-address", os.Getenv("ADMIN_ADDRESS"), "Instantiate the contract with this admin at startup")
	fs.StringVar(&logLevel, "log-level", envString("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	for _, register := range extra {
		register(fs)
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = PostgresURL()
	}
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return Config{}, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	cfg.KafkaBrokers = splitList(brokers)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch c.StoreBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL required for postgres (use -database-url, DATABASE_URL or POSTGRES_* env)")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite path required (use -sqlite-path or SQLITE_PATH env)")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	if c.AddressPrefix == "" {
		return errors.New("address prefix must not be empty")
	}
	return nil
}

// PostgresURL returns DATABASE_URL, or a URL assembled from the POSTGRES_*
// variables when it is unset.
func PostgresURL() string {
	return envString("DATABASE_URL", postgresURLFromEnv())
}

// postgresURLFromEnv builds a connection string from the POSTGRES_* variables
// used by docker-compose. It returns "" when no host is set.
func postgresURLFromEnv() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	port := envString("POSTGRES_PORT", "5432")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     host + ":" + port,
		Path:     "/" + os.Getenv("POSTGRES_DB"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring non numeric env variable", "key", key, "value", v)
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
