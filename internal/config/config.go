package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBMigrate         bool

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	PayoutPolicyPath string
	SeedDemo         bool
}

// Snowflake ids reserve ten bits for the node.
const maxNodeID = 1023

var supportedDBTypes = map[string]bool{
	"postgres": true,
	"mysql":    true,
	"sqlite":   true,
	"sqlite3":  true,
}

// Load reads the environment, with a .env file filling unset keys.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "partnerpayout"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		NodeID:            getenvInt64("SNOWFLAKE_NODE", 1),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "partnerpayout"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		DBMigrate:         getenvBool("DATABASE_MIGRATE", true),
		RedisAddress:      strings.TrimSpace(getenv("REDIS_ADDRESS", "")),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           int(getenvInt64("REDIS_DB", 0)),
		PayoutPolicyPath:  strings.TrimSpace(getenv("PAYOUT_POLICY_PATH", "")),
		SeedDemo:          getenvBool("SEED_DEMO", false),
	}
	cfg.DBType = strings.ToLower(strings.TrimSpace(cfg.DBType))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would only fail later at first use.
func (c Config) Validate() error {
	var errs []error
	if c.NodeID < 0 || c.NodeID > maxNodeID {
		errs = append(errs, fmt.Errorf("SNOWFLAKE_NODE must be within 0..%d, got %d", maxNodeID, c.NodeID))
	}
	if !supportedDBTypes[c.DBType] {
		errs = append(errs, fmt.Errorf("unsupported DATABASE_TYPE %q", c.DBType))
	}
	if strings.TrimSpace(c.DBName) == "" {
		errs = append(errs, errors.New("DATABASE_NAME is required"))
	}
	if c.DBMaxOpenConn > 0 && c.DBMaxIdleConn > c.DBMaxOpenConn {
		errs = append(errs, fmt.Errorf("DATABASE_MAX_IDLE_CONN (%d) exceeds DATABASE_MAX_OPEN_CONN (%d)", c.DBMaxIdleConn, c.DBMaxOpenConn))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in the production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
