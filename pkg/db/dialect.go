package db

import (
	"fmt"
	"net/url"
	"path/filepath"

	glebarez "github.com/glebarez/sqlite"
	"github.com/smallbiznis/partnerpayout/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect picks the gorm driver for cfg.DBType. "sqlite" uses the pure-go
// driver so local runs need no cgo; "sqlite3" keeps the cgo one.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "postgres":
		return postgres.Open(postgresDSN(cfg)), nil
	case "mysql":
		return mysql.Open(mysqlDSN(cfg)), nil
	case "sqlite":
		return glebarez.Open(sqliteDSN(cfg.DBName)), nil
	case "sqlite3":
		return sqlite.Open(sqliteDSN(cfg.DBName)), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

func postgresDSN(cfg config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
}

func mysqlDSN(cfg config.Config) string {
	q := url.Values{}
	q.Set("charset", "utf8mb4")
	q.Set("parseTime", "true")
	q.Set("loc", "UTC")
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, q.Encode())
}

// sqliteDSN maps a bare name to "<name>.db"; paths and ":memory:" pass through.
func sqliteDSN(name string) string {
	if name == ":memory:" || filepath.Ext(name) != "" {
		return name
	}
	return name + ".db"
}
