package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/league-registration/internal/database"
	"github.com/iliyamo/league-registration/internal/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sqliteArgs(t *testing.T) (path string, flags []string) {
	t.Helper()
	t.Setenv("BCRYPT_COST", "4")
	path = filepath.Join(t.TempDir(), "reg.db")
	return path, []string{"--db-driver", "sqlite", "--sqlite-path", path}
}

func TestSeedIsOneShot(t *testing.T) {
	_, flags := sqliteArgs(t)

	out, err := run(t, append([]string{"seed"}, flags...)...)
	require.NoError(t, err)
	require.Equal(t, "created 7 venues, 10 slots, 2 settings\n", out)

	_, err = run(t, append([]string{"seed"}, flags...)...)
	require.Error(t, err)
}

func TestWindowSetAndShow(t *testing.T) {
	_, flags := sqliteArgs(t)

	out, err := run(t, append([]string{"window", "set", "--open=false", "--deadline", "2026-03-01T19:00:00+01:00"}, flags...)...)
	require.NoError(t, err)
	require.Equal(t, "open: false\ndeadline: Sun, Mar 1 2026 18:00 UTC\n", out)

	out, err = run(t, append([]string{"window", "set"}, flags...)...)
	require.NoError(t, err)
	require.Equal(t, "open: true\ndeadline: none\n", out)

	_, err = run(t, append([]string{"window", "set", "--deadline", "friday"}, flags...)...)
	require.ErrorContains(t, err, "RFC 3339")
}

func TestAdminCreate(t *testing.T) {
	_, flags := sqliteArgs(t)

	out, err := run(t, append([]string{"admin", "create", "--email", " Ops@Example.com", "--password", "pw"}, flags...)...)
	require.NoError(t, err)
	require.Equal(t, "admin 1 created for ops@example.com\n", out)

	_, err = run(t, append([]string{"admin", "create", "--email", "ops@example.com", "--password", "pw"}, flags...)...)
	require.Error(t, err, "duplicate email")

	out, err = run(t, append([]string{"admin", "create", "--email", "ops@example.com", "--password", "new", "--reset"}, flags...)...)
	require.NoError(t, err)
	require.Contains(t, out, "password reset")

	_, err = run(t, append([]string{"admin", "create", "--email", "ops@example.com"}, flags...)...)
	require.ErrorContains(t, err, "required")
}

func TestExportAndDelete(t *testing.T) {
	path, flags := sqliteArgs(t)

	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	v := testutil.InsertVenue(t, db, "Gauss", "championship", true)
	s := testutil.InsertSlot(t, db, v, "Day 1", 10, true)
	testutil.InsertRegistration(t, db, "42", v, s)
	require.NoError(t, db.Close())

	out, err := run(t, append([]string{"export", "csv"}, flags...)...)
	require.NoError(t, err)
	require.Equal(t, "Team Number,League,Venue 1 Day,Venue 2 Day,Venue 3 Day\n42,Gauss,,,\n", out)

	file := filepath.Join(t.TempDir(), "out.csv")
	_, err = run(t, append([]string{"export", "csv", "-o", file}, flags...)...)
	require.NoError(t, err)
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "Team Number,League"))

	out, err = run(t, append([]string{"registrations", "delete", "--team", "42"}, flags...)...)
	require.NoError(t, err)
	require.Equal(t, "deleted 1 rows for team 42\n", out)

	_, err = run(t, append([]string{"registrations", "delete", "--team", "42"}, flags...)...)
	require.ErrorContains(t, err, "no registrations")
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "regctl.yaml")
	body := "db_driver: sqlite\nsqlite_path: " + filepath.Join(dir, "reg.db") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	out, err := run(t, "window", "show", "--config", cfgPath)
	require.NoError(t, err)
	require.Equal(t, "open: true\ndeadline: none\n", out)

	_, err = run(t, "window", "show", "--config", filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestMigrateRejectsSQLite(t *testing.T) {
	_, flags := sqliteArgs(t)
	_, err := run(t, append([]string{"migrate", "up"}, flags...)...)
	require.ErrorContains(t, err, "mysql only")
}

func TestMigrateDownHelpMatchesDefault(t *testing.T) {
	var down *cobra.Command
	for _, c := range NewRootCmd().Commands() {
		if c.Name() == "migrate" {
			down, _, _ = c.Find([]string{"down"})
		}
	}
	require.NotNil(t, down)
	steps := down.Flags().Lookup("steps")
	require.NotNil(t, steps)
	require.Equal(t, "1", steps.DefValue)
	require.Contains(t, down.Short, "default 1")
	require.NotContains(t, down.Short, "all unless")
}
