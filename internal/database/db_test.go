package database

import (
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestDialect_ForUpdate(t *testing.T) {
	require.Equal(t, " FOR UPDATE", MySQL.ForUpdate())
	require.Equal(t, "", SQLite.ForUpdate())
	require.Equal(t, "sqlite", SQLite.String())
}

func TestMySQLDSN_UTCAndCharset(t *testing.T) {
	dsn := MySQLDSN("app", "p@ss", "db.local", "3306", "league")

	c, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.local:3306", c.Addr)
	require.Equal(t, "league", c.DBName)
	require.True(t, c.ParseTime)
	require.Equal(t, "utf8mb4", c.Params["charset"])
}

func TestOpenSQLite_AppliesSchemaIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reg.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('venues','time_slots','registrations','settings','admins','refresh_tokens')`).Scan(&n)
	require.NoError(t, err)
	require.Equal(t, 6, n)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
