package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/league-registration/internal/database"
	"github.com/iliyamo/league-registration/internal/model"
)

// TimeSlotRepo provides access to time slots and the joined
// slot/venue/count rows behind the availability view.
type TimeSlotRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewTimeSlotRepo returns a TimeSlotRepo bound to db.
func NewTimeSlotRepo(db *sql.DB, dialect database.Dialect) *TimeSlotRepo {
	return &TimeSlotRepo{db: db, dialect: dialect}
}

const slotColumns = `id, venue_id, day_label, slot_date, capacity, is_active, created_at, updated_at`

func scanSlot(s rowScanner) (*model.TimeSlot, error) {
	var (
		ts               model.TimeSlot
		created, updated int64
	)
	if err := s.Scan(&ts.ID, &ts.VenueID, &ts.DayLabel, &ts.Date, &ts.Capacity, &ts.IsActive, &created, &updated); err != nil {
		return nil, err
	}
	ts.CreatedAt = time.UnixMilli(created).UTC()
	ts.UpdatedAt = time.UnixMilli(updated).UTC()
	return &ts, nil
}

func collectSlots(rows *sql.Rows) ([]*model.TimeSlot, error) {
	defer rows.Close()
	out := make([]*model.TimeSlot, 0)
	for rows.Next() {
		ts, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a slot. The venue must exist; ErrVenueNotFound otherwise.
func (r *TimeSlotRepo) Create(ctx context.Context, ts *model.TimeSlot) error {
	var venueID uint64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM venues WHERE id = ?`, ts.VenueID).Scan(&venueID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVenueNotFound
		}
		return err
	}
	return r.create(ctx, r.db, ts)
}

// CreateTx inserts a slot within the caller's transaction.
func (r *TimeSlotRepo) CreateTx(ctx context.Context, tx *sql.Tx, ts *model.TimeSlot) error {
	return r.create(ctx, tx, ts)
}

func (r *TimeSlotRepo) create(ctx context.Context, q querier, ts *model.TimeSlot) error {
	const qInsert = `INSERT INTO time_slots (venue_id, day_label, slot_date, capacity, is_active, created_at, updated_at)
	                 VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := q.ExecContext(ctx, qInsert, ts.VenueID, ts.DayLabel, ts.Date, ts.Capacity, ts.IsActive, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ts.ID = uint64(id)
	ts.CreatedAt, ts.UpdatedAt = now, now
	return nil
}

// GetByID returns ErrTimeSlotNotFound when no row matches.
func (r *TimeSlotRepo) GetByID(ctx context.Context, id uint64) (*model.TimeSlot, error) {
	ts, err := scanSlot(r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTimeSlotNotFound
		}
		return nil, err
	}
	return ts, nil
}

// ListAll returns every slot regardless of state.
func (r *TimeSlotRepo) ListAll(ctx context.Context) ([]*model.TimeSlot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+slotColumns+` FROM time_slots ORDER BY venue_id, day_label, id`)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

// ListByVenue returns a venue's slots, optionally only the active ones.
func (r *TimeSlotRepo) ListByVenue(ctx context.Context, venueID uint64, activeOnly bool) ([]*model.TimeSlot, error) {
	q := `SELECT ` + slotColumns + ` FROM time_slots WHERE venue_id = ?`
	if activeOnly {
		q += ` AND is_active = 1`
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY day_label, id`, venueID)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

// LockByIDsTx loads the given slots inside tx and holds a row lock on each
// until the transaction ends.  Rows are locked in ascending id order, so
// two submissions that share slots queue behind each other rather than
// deadlocking.  Missing ids are simply absent from the result; the caller
// turns that into a rejection.  On SQLite the suffix is empty; its
// transactions are opened IMMEDIATE and already hold the write lock.
func (r *TimeSlotRepo) LockByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]*model.TimeSlot, error) {
	out := make(map[uint64]*model.TimeSlot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := `SELECT ` + slotColumns + ` FROM time_slots WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id` + r.dialect.ForUpdate()
	rows, err := tx.QueryContext(ctx, q, uint64Args(ids)...)
	if err != nil {
		return nil, err
	}
	slots, err := collectSlots(rows)
	if err != nil {
		return nil, err
	}
	for _, ts := range slots {
		out[ts.ID] = ts
	}
	return out, nil
}

// Update changes day label, date and capacity. Capacity may drop below the
// number of teams already registered; existing rows are kept.
func (r *TimeSlotRepo) Update(ctx context.Context, id uint64, dayLabel, date string, capacity int) error {
	const q = `UPDATE time_slots SET day_label = ?, slot_date = ?, capacity = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, id, q, dayLabel, date, capacity, time.Now().UnixMilli(), id)
}

// SetActive toggles whether the slot may be selected.
func (r *TimeSlotRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE time_slots SET is_active = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, id, q, active, time.Now().UnixMilli(), id)
}

func (r *TimeSlotRepo) execOne(ctx context.Context, id uint64, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a slot that nobody has registered for.  The slot row is
// locked first so a submission cannot land between the count and the
// delete.  Slots with registrations return ErrConflict and should be
// deactivated instead; ErrTimeSlotNotFound is returned for unknown ids.
func (r *TimeSlotRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var exists uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM time_slots WHERE id = ?`+r.dialect.ForUpdate(), id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTimeSlotNotFound
		}
		return err
	}
	var regs int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE time_slot_id = ?`, id).Scan(&regs); err != nil {
		return err
	}
	if regs > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM time_slots WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

const availabilityQuery = `SELECT s.id, v.id, v.name, v.kind, v.location, v.address, v.base_date,
       s.day_label, s.slot_date, s.capacity, COALESCE(c.n, 0), s.is_active, v.is_active
FROM time_slots s
JOIN venues v ON v.id = s.venue_id
LEFT JOIN (SELECT time_slot_id, COUNT(*) AS n FROM registrations GROUP BY time_slot_id) c ON c.time_slot_id = s.id`

func scanAvailability(s rowScanner) (*model.SlotAvailability, error) {
	var (
		a    model.SlotAvailability
		kind string
	)
	if err := s.Scan(&a.SlotID, &a.VenueID, &a.VenueName, &kind, &a.Location, &a.Address, &a.VenueDate,
		&a.DayLabel, &a.Date, &a.Capacity, &a.CurrentCount, &a.IsActive, &a.VenueIsActive); err != nil {
		return nil, err
	}
	a.VenueKind = model.VenueKind(kind)
	return &a, nil
}

// ListAvailability returns slots joined with venue data and registration
// counts. With activeOnly, only active slots of active venues are included.
// Derived fields are left for the caller to fill.
func (r *TimeSlotRepo) ListAvailability(ctx context.Context, activeOnly bool) ([]*model.SlotAvailability, error) {
	q := availabilityQuery
	if activeOnly {
		q += ` WHERE s.is_active = 1 AND v.is_active = 1`
	}
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.SlotAvailability, 0)
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAvailability returns the availability row of one slot.
func (r *TimeSlotRepo) GetAvailability(ctx context.Context, id uint64) (*model.SlotAvailability, error) {
	a, err := scanAvailability(r.db.QueryRowContext(ctx, availabilityQuery+` WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTimeSlotNotFound
		}
		return nil, err
	}
	return a, nil
}
