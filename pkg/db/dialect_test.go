package db

import (
	"testing"

	"github.com/smallbiznis/sitebill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	base := config.Config{
		DBHost:     "db.local",
		DBPort:     "5432",
		DBName:     "sitebill",
		DBUser:     "billing",
		DBPassword: "secret",
		DBSSLMode:  "disable",
	}

	tests := []struct {
		name   string
		dbType string
		want   string
	}{
		{"postgres", "postgres", "host=db.local user=billing password=secret dbname=sitebill port=5432 sslmode=disable TimeZone=UTC"},
		{"postgres alias", "PostgreSQL", "host=db.local user=billing password=secret dbname=sitebill port=5432 sslmode=disable TimeZone=UTC"},
		{"mysql", "mysql", "billing:secret@tcp(db.local:5432)/sitebill?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"sqlite", "sqlite", "sitebill"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.DBType = tt.dbType
			got, err := DSN(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDSNSQLiteDefaultFile(t *testing.T) {
	got, err := DSN(config.Config{DBType: "sqlite"})
	require.NoError(t, err)
	assert.Equal(t, defaultSQLiteFile, got)
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.ErrorContains(t, err, "unsupported database type")
}
