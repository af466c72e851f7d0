package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/league-registration/internal/database"
	"github.com/iliyamo/league-registration/internal/model"
)

// RegistrationRepo reads and appends ledger rows. Rows are never updated;
// occupancy is always counted from them.
type RegistrationRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewRegistrationRepo returns a RegistrationRepo bound to db.
func NewRegistrationRepo(db *sql.DB, dialect database.Dialect) *RegistrationRepo {
	return &RegistrationRepo{db: db, dialect: dialect}
}

// TeamExistsTx reports whether any row exists for team. It is a locking
// read so that two submissions for the same team cannot both see "no".
func (r *RegistrationRepo) TeamExistsTx(ctx context.Context, tx *sql.Tx, team string) (bool, error) {
	var id uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM registrations WHERE team_number = ? LIMIT 1`+r.dialect.ForUpdate(), team).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountBySlotsTx returns the current number of rows per slot for the given
// ids. Slots with no rows are absent from the map. The read locks the
// counted rows so it observes every committed registration rather than
// the transaction's snapshot.
func (r *RegistrationRepo) CountBySlotsTx(ctx context.Context, tx *sql.Tx, slotIDs []uint64) (map[uint64]int, error) {
	counts := make(map[uint64]int, len(slotIDs))
	if len(slotIDs) == 0 {
		return counts, nil
	}
	q := `SELECT time_slot_id FROM registrations WHERE time_slot_id IN (` + placeholders(len(slotIDs)) + `)` + r.dialect.ForUpdate()
	rows, err := tx.QueryContext(ctx, q, uint64Args(slotIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var slotID uint64
		if err := rows.Scan(&slotID); err != nil {
			return nil, err
		}
		counts[slotID]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// InsertBulkTx writes all rows in a single multi-row INSERT within the
// caller's transaction and returns the ids of the team's rows in insertion
// order.  Every row must carry the same team number; the caller has
// already checked that the team had no rows, so the read-back below sees
// exactly this batch.  The caller must commit or roll back.
func (r *RegistrationRepo) InsertBulkTx(ctx context.Context, tx *sql.Tx, regs []model.Registration) ([]uint64, error) {
	if len(regs) == 0 {
		return nil, nil
	}
	query := `INSERT INTO registrations (team_number, venue_id, time_slot_id, created_at) VALUES `
	args := make([]any, 0, len(regs)*4)
	for i, reg := range regs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, reg.TeamNumber, reg.VenueID, reg.TimeSlotID, reg.CreatedAt.UnixMilli())
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	// LastInsertId semantics for multi-row inserts differ between drivers,
	// so the ids are read back. The team had no rows before this insert.
	rows, err := tx.QueryContext(ctx, `SELECT id FROM registrations WHERE team_number = ? ORDER BY id`, regs[0].TeamNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0, len(regs))
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountsBySlot returns the number of rows per slot across the ledger.
func (r *RegistrationRepo) CountsBySlot(ctx context.Context) (map[uint64]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT time_slot_id, COUNT(*) FROM registrations GROUP BY time_slot_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[uint64]int)
	for rows.Next() {
		var (
			slotID uint64
			n      int
		)
		if err := rows.Scan(&slotID, &n); err != nil {
			return nil, err
		}
		counts[slotID] = n
	}
	return counts, rows.Err()
}

const detailQuery = `SELECT r.id, r.team_number, r.venue_id, r.time_slot_id, r.created_at,
       v.name, v.kind, v.base_date, s.day_label, s.slot_date
FROM registrations r
JOIN venues v ON v.id = r.venue_id
JOIN time_slots s ON s.id = r.time_slot_id`

func (r *RegistrationRepo) listDetailed(ctx context.Context, q string, args ...any) ([]model.RegistrationDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.RegistrationDetail, 0)
	for rows.Next() {
		var (
			d       model.RegistrationDetail
			created int64
			kind    string
		)
		if err := rows.Scan(&d.ID, &d.TeamNumber, &d.VenueID, &d.TimeSlotID, &created,
			&d.VenueName, &kind, &d.VenueDate, &d.DayLabel, &d.SlotDate); err != nil {
			return nil, err
		}
		d.CreatedAt = time.UnixMilli(created).UTC()
		d.VenueKind = model.VenueKind(kind)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDetailed returns every row joined with venue and slot, newest first.
func (r *RegistrationRepo) ListDetailed(ctx context.Context) ([]model.RegistrationDetail, error) {
	return r.listDetailed(ctx, detailQuery+` ORDER BY r.created_at DESC, r.id DESC`)
}

// ListBySlot returns the rows occupying one slot, oldest first.
func (r *RegistrationRepo) ListBySlot(ctx context.Context, slotID uint64) ([]model.RegistrationDetail, error) {
	return r.listDetailed(ctx, detailQuery+` WHERE r.time_slot_id = ? ORDER BY r.id`, slotID)
}

// ListByTeam returns a team's rows in insertion order.
func (r *RegistrationRepo) ListByTeam(ctx context.Context, team string) ([]model.RegistrationDetail, error) {
	return r.listDetailed(ctx, detailQuery+` WHERE r.team_number = ? ORDER BY r.id`, team)
}

// DeleteByTeam removes all rows of a team and returns how many went.  It
// is the only way rows leave the ledger; freed capacity shows up on the
// next availability read since counts are never stored.
func (r *RegistrationRepo) DeleteByTeam(ctx context.Context, team string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE team_number = ?`, team)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
