// Package testutil provides SQLite-backed fixtures for package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/league-registration/internal/database"
)

// NewDB opens a fresh SQLite database with the full schema in a temp dir.
// A file is used rather than :memory: so every pooled connection sees the
// same database.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// InsertVenue writes a venue row and returns its id.
func InsertVenue(t testing.TB, db *sql.DB, name, kind string, active bool) uint64 {
	t.Helper()
	now := time.Now().UnixMilli()
	res, err := db.Exec(
		`INSERT INTO venues (name, kind, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		name, kind, active, now, now)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// InsertVenueDated is InsertVenue with a base date.
func InsertVenueDated(t testing.TB, db *sql.DB, name, kind, date string) uint64 {
	t.Helper()
	id := InsertVenue(t, db, name, kind, true)
	_, err := db.Exec(`UPDATE venues SET base_date = ? WHERE id = ?`, date, id)
	require.NoError(t, err)
	return id
}

// InsertSlot writes a time slot row and returns its id.
func InsertSlot(t testing.TB, db *sql.DB, venueID uint64, day string, capacity int, active bool) uint64 {
	t.Helper()
	now := time.Now().UnixMilli()
	res, err := db.Exec(
		`INSERT INTO time_slots (venue_id, day_label, capacity, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		venueID, day, capacity, active, now, now)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// InsertRegistration writes a ledger row directly, bypassing all checks.
func InsertRegistration(t testing.TB, db *sql.DB, team string, venueID, slotID uint64) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO registrations (team_number, venue_id, time_slot_id, created_at) VALUES (?, ?, ?, ?)`,
		team, venueID, slotID, time.Now().UnixMilli())
	require.NoError(t, err)
}

// CountRows returns the number of rows in table.
func CountRows(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}
