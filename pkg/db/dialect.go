package db

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/sitebill/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultSQLiteFile = "sitebill.db"

// Dialect picks the gorm driver for the configured database type.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	switch normalizeType(cfg.DBType) {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// DSN renders the connection string for the configured database type.
// Every dialect is pinned to UTC so statement dates compare as stored.
func DSN(cfg config.Config) (string, error) {
	switch normalizeType(cfg.DBType) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName), nil
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode), nil
	case "sqlite":
		if name := strings.TrimSpace(cfg.DBName); name != "" {
			return name, nil
		}
		return defaultSQLiteFile, nil
	default:
		return "", fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

func normalizeType(dbType string) string {
	t := strings.ToLower(strings.TrimSpace(dbType))
	if t == "postgresql" {
		return "postgres"
	}
	return t
}
