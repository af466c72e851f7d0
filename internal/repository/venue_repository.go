package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/league-registration/internal/model"
)

// VenueRepo provides CRUD operations for venues. Kind is written once at
// creation and never updated.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo constructs a VenueRepo with the given DB handle.
func NewVenueRepo(db *sql.DB) *VenueRepo {
	return &VenueRepo{db: db}
}

const venueColumns = `id, name, kind, is_active, location, address, base_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVenue(s rowScanner) (*model.Venue, error) {
	var (
		v                model.Venue
		kind             string
		created, updated int64
	)
	if err := s.Scan(&v.ID, &v.Name, &kind, &v.IsActive, &v.Location, &v.Address, &v.Date, &created, &updated); err != nil {
		return nil, err
	}
	v.Kind = model.VenueKind(kind)
	v.CreatedAt = time.UnixMilli(created).UTC()
	v.UpdatedAt = time.UnixMilli(updated).UTC()
	return &v, nil
}

// Create inserts a venue and fills in its ID and timestamps.
func (r *VenueRepo) Create(ctx context.Context, v *model.Venue) error {
	return r.create(ctx, r.db, v)
}

// CreateTx is Create within the caller's transaction.
func (r *VenueRepo) CreateTx(ctx context.Context, tx *sql.Tx, v *model.Venue) error {
	return r.create(ctx, tx, v)
}

func (r *VenueRepo) create(ctx context.Context, q querier, v *model.Venue) error {
	const qInsert = `INSERT INTO venues (name, kind, is_active, location, address, base_date, created_at, updated_at)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := q.ExecContext(ctx, qInsert, v.Name, string(v.Kind), v.IsActive, v.Location, v.Address, v.Date, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	v.CreatedAt, v.UpdatedAt = now, now
	return nil
}

// GetByID returns ErrVenueNotFound when no row matches.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	v, err := scanVenue(r.db.QueryRowContext(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return v, nil
}

// List returns every venue, regular first, then by name.
func (r *VenueRepo) List(ctx context.Context) ([]*model.Venue, error) {
	return r.list(ctx, r.db, `SELECT `+venueColumns+` FROM venues ORDER BY kind = 'championship', name, id`)
}

// ListActive returns active venues, regular first, then by name.
func (r *VenueRepo) ListActive(ctx context.Context) ([]*model.Venue, error) {
	return r.ListActiveTx(ctx, nil)
}

// ListActiveTx reads active venues inside tx (or the pool when tx is nil).
func (r *VenueRepo) ListActiveTx(ctx context.Context, tx *sql.Tx) ([]*model.Venue, error) {
	var q querier = r.db
	if tx != nil {
		q = tx
	}
	return r.list(ctx, q, `SELECT `+venueColumns+` FROM venues WHERE is_active = 1 ORDER BY kind = 'championship', name, id`)
}

func (r *VenueRepo) list(ctx context.Context, q querier, query string, args ...any) ([]*model.Venue, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Venue, 0)
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of venues of any kind or state.
func (r *VenueRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM venues`).Scan(&n)
	return n, err
}

// UpdateDetails changes the descriptive fields. Kind is left untouched.
func (r *VenueRepo) UpdateDetails(ctx context.Context, id uint64, name, location, address, date string) error {
	const q = `UPDATE venues SET name = ?, location = ?, address = ?, base_date = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, id, q, name, location, address, date, time.Now().UnixMilli(), id)
}

// SetActive toggles whether the venue is visible and selectable.
func (r *VenueRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE venues SET is_active = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, id, q, active, time.Now().UnixMilli(), id)
}

func (r *VenueRepo) execOne(ctx context.Context, id uint64, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	// A no-op update reports zero affected rows on MySQL, so confirm
	// existence before calling it a miss.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a venue together with its time slots. It returns
// ErrConflict when any registration references the venue.
func (r *VenueRepo) Delete(ctx context.Context, id uint64) error {
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
	if err := tx.QueryRowContext(ctx, `SELECT id FROM venues WHERE id = ?`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVenueNotFound
		}
		return err
	}
	var regs int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE venue_id = ?`, id).Scan(&regs); err != nil {
		return err
	}
	if regs > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM time_slots WHERE venue_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM venues WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
