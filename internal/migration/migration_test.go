package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/sitebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsCoverEveryTable(t *testing.T) {
	up, err := fs.ReadFile(embeddedMigrations, "migrations/000001_init.up.sql")
	require.NoError(t, err)

	conn := testutil.NewDB(t)
	require.NoError(t, AutoMigrate(conn))

	tables, err := conn.Migrator().GetTables()
	require.NoError(t, err)
	require.NotEmpty(t, tables)
	for _, table := range tables {
		if strings.HasPrefix(table, "sqlite_") {
			continue
		}
		assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}

func TestDownMigrationDropsWhatUpCreates(t *testing.T) {
	up, err := fs.ReadFile(embeddedMigrations, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	down, err := fs.ReadFile(embeddedMigrations, "migrations/000001_init.down.sql")
	require.NoError(t, err)

	for _, line := range strings.Split(string(up), "\n") {
		if !strings.HasPrefix(line, "CREATE TABLE IF NOT EXISTS ") {
			continue
		}
		table := strings.Fields(strings.TrimPrefix(line, "CREATE TABLE IF NOT EXISTS "))[0]
		assert.Contains(t, string(down), "DROP TABLE IF EXISTS "+table+";", table)
	}
}
